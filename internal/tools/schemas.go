package tools

// Argument schemas, JSON Schema draft 2020-12.
const (
	customerRefSchema = `{
  "type": "object",
  "properties": {
    "customer_id": {"type": "string", "minLength": 1},
    "email": {"type": "string", "format": "email"}
  },
  "additionalProperties": false
}`

	identifySchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 200},
    "email": {"type": "string", "minLength": 3, "maxLength": 254},
    "phone": {"type": "string", "maxLength": 40}
  },
  "required": ["name", "email"],
  "additionalProperties": false
}`

	updateProfileSchema = `{
  "type": "object",
  "properties": {
    "customer_id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "email": {"type": "string"},
    "phone": {"type": "string"},
    "company_name": {"type": "string"},
    "customer_type": {"enum": ["particular", "empresa", "cooperativa", "autonomo"]},
    "sector": {"type": "string"},
    "location": {"type": "string"},
    "hectares": {"type": "number", "minimum": 0},
    "main_crops": {"type": "array", "items": {"type": "string"}},
    "current_machinery": {"type": "array", "items": {"type": "string"}}
  },
  "minProperties": 1,
  "additionalProperties": false
}`

	searchSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "maxLength": 200},
    "category": {"enum": ["tractores", "cosechadoras", "implementos", "ganaderia", "forestal", "jardineria", "recambios", "servicios"]},
    "min_price": {"type": "number", "minimum": 0},
    "max_price": {"type": "number", "minimum": 0},
    "limit": {"type": "integer", "minimum": 1, "maximum": 50}
  },
  "additionalProperties": false
}`

	productRefSchema = `{
  "type": "object",
  "properties": {
    "product_id": {"type": "string", "minLength": 1}
  },
  "required": ["product_id"],
  "additionalProperties": false
}`

	recommendationsSchema = `{
  "type": "object",
  "properties": {
    "customer_id": {"type": "string", "minLength": 1},
    "limit": {"type": "integer", "minimum": 1, "maximum": 20}
  },
  "additionalProperties": false
}`

	addToCartSchema = `{
  "type": "object",
  "properties": {
    "product_id": {"type": "string", "minLength": 1},
    "quantity": {"type": "integer", "minimum": 1, "default": 1}
  },
  "required": ["product_id"],
  "additionalProperties": false
}`

	emptySchema = `{
  "type": "object",
  "additionalProperties": false
}`

	applyCodeSchema = `{
  "type": "object",
  "properties": {
    "code": {"type": "string", "minLength": 1, "maxLength": 64}
  },
  "required": ["code"],
  "additionalProperties": false
}`

	checkoutSchema = `{
  "type": "object",
  "properties": {
    "payment_method": {"type": "string"},
    "delivery_address": {"type": "object", "additionalProperties": {"type": "string"}},
    "billing_info": {"type": "object", "additionalProperties": {"type": "string"}},
    "special_instructions": {"type": "string", "maxLength": 1000}
  },
  "required": ["payment_method"],
  "additionalProperties": false
}`

	scheduleSchema = `{
  "type": "object",
  "properties": {
    "customer_id": {"type": "string", "minLength": 1},
    "service_type": {"type": "string"},
    "preferred_date": {"type": "string"},
    "location": {"type": "string", "minLength": 1},
    "product_id": {"type": "string"},
    "notes": {"type": "string", "maxLength": 1000}
  },
  "required": ["service_type", "preferred_date", "location"],
  "additionalProperties": false
}`

	discountSchema = `{
  "type": "object",
  "properties": {
    "customer_id": {"type": "string", "minLength": 1},
    "discount_type": {"type": "string"},
    "reason": {"type": "string", "maxLength": 200}
  },
  "additionalProperties": false
}`
)
