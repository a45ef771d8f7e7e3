package tools

import (
	"context"
	"fmt"
	"strings"

	"agrofunnel/internal/domain"
	"agrofunnel/internal/funnel"
	"agrofunnel/internal/service/booking"
	"agrofunnel/internal/service/catalog"
	"agrofunnel/internal/service/checkout"
	"agrofunnel/internal/service/customer"
	"agrofunnel/internal/service/discount"
)

func (r *Registry) definitions() []*tool {
	return []*tool{
		{
			name:        "get_customer_profile",
			description: "Look up a customer profile by id or email.",
			schemaJSON:  customerRefSchema,
			intents:     []funnel.Intent{funnel.IntentIdentify},
			handle:      r.getCustomerProfile,
		},
		{
			name:        "identify_customer",
			description: "Identify the customer by name and email, registering them on first contact, and bind them to the session.",
			schemaJSON:  identifySchema,
			intents:     []funnel.Intent{funnel.IntentIdentify},
			handle:      r.identifyCustomer,
		},
		{
			name:        "update_customer_profile",
			description: "Update profile fields such as farm size, sector, crops or current machinery.",
			schemaJSON:  updateProfileSchema,
			intents:     []funnel.Intent{funnel.IntentProvideProfile},
			handle:      r.updateCustomerProfile,
		},
		{
			name:        "search_products",
			description: "Search the catalog by text, category and price range.",
			schemaJSON:  searchSchema,
			intents:     []funnel.Intent{funnel.IntentSearch},
			handle:      r.searchProducts,
		},
		{
			name:        "get_product_details",
			description: "Get the full details of a product.",
			schemaJSON:  productRefSchema,
			intents:     []funnel.Intent{funnel.IntentSelectProduct},
			handle:      r.getProductDetails,
		},
		{
			name:        "get_recommendations",
			description: "Recommend available products that fit the customer's farm profile.",
			schemaJSON:  recommendationsSchema,
			intents:     []funnel.Intent{funnel.IntentBrowse},
			handle:      r.getRecommendations,
		},
		{
			name:        "add_to_cart",
			description: "Add a product to the cart.",
			schemaJSON:  addToCartSchema,
			intents:     []funnel.Intent{funnel.IntentAddToCart},
			handle:      r.addToCart,
		},
		{
			name:        "remove_from_cart",
			description: "Remove a product from the cart.",
			schemaJSON:  productRefSchema,
			intents:     []funnel.Intent{funnel.IntentRemoveFromCart},
			handle:      r.removeFromCart,
		},
		{
			name:        "get_cart_summary",
			description: "Show the cart contents and subtotal.",
			schemaJSON:  emptySchema,
			intents:     []funnel.Intent{funnel.IntentViewCart},
			handle:      r.getCartSummary,
		},
		{
			name:        "apply_discount_code",
			description: "Attach a discount code to the cart. The discount is applied at checkout.",
			schemaJSON:  applyCodeSchema,
			intents:     []funnel.Intent{funnel.IntentViewCart},
			handle:      r.applyDiscountCode,
		},
		{
			name:        "process_checkout",
			description: "Place the order for the cart with a payment method: transfer, financing or card.",
			schemaJSON:  checkoutSchema,
			intents:     []funnel.Intent{funnel.IntentCheckout, funnel.IntentOrderPlaced},
			handle:      r.processCheckout,
		},
		{
			name:        "schedule_service",
			description: "Book a demo, installation, maintenance or training visit on a weekday within the next 30 days.",
			schemaJSON:  scheduleSchema,
			intents:     []funnel.Intent{funnel.IntentScheduleService},
			handle:      r.scheduleService,
		},
		{
			name:        "generate_discount_code",
			description: "Issue a discount code: loyalty, new_customer, referral or seasonal.",
			schemaJSON:  discountSchema,
			intents:     []funnel.Intent{funnel.IntentRequestDiscount},
			handle:      r.generateDiscountCode,
		},
	}
}

// customerFor resolves the customer a tool acts on. A session bound to a customer
// may only act on that customer.
func customerFor(sess *domain.Session, given string) (string, error) {
	given = strings.TrimSpace(given)
	if sess.HasCustomer() {
		if given != "" && given != *sess.CustomerID {
			return "", domain.NewError(domain.KindUnauthenticated, "customer %s is not the customer of this conversation", given)
		}
		return *sess.CustomerID, nil
	}
	if given == "" {
		return "", domain.NewError(domain.KindUnauthenticated, "identify the customer first")
	}
	return given, nil
}

func (r *Registry) getCustomerProfile(ctx context.Context, c call) (interface{}, string, error) {
	var args struct {
		CustomerID string `json:"customer_id"`
		Email      string `json:"email"`
	}
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	id := args.CustomerID
	if id == "" && args.Email == "" {
		var err error
		if id, err = customerFor(c.sess, ""); err != nil {
			return nil, "", err
		}
	}
	cust, err := r.svc.Customers.Lookup(ctx, id, args.Email)
	if err != nil {
		return nil, "", err
	}
	if c.sess.HasCustomer() && cust.ID != *c.sess.CustomerID {
		return nil, "", domain.NewError(domain.KindUnauthenticated, "that profile belongs to another customer")
	}
	return cust, fmt.Sprintf("Profile of %s", cust.Name), nil
}

func (r *Registry) identifyCustomer(ctx context.Context, c call) (interface{}, string, error) {
	var args customer.IdentifyInput
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	cust, created, err := r.svc.Customers.Identify(ctx, args)
	if err != nil {
		return nil, "", err
	}
	id := cust.ID
	c.sess.CustomerID = &id

	msg := fmt.Sprintf("Welcome back, %s", cust.Name)
	if created {
		msg = fmt.Sprintf("Welcome, %s", cust.Name)
	}
	return map[string]interface{}{"customer": cust, "created": created}, msg, nil
}

func (r *Registry) updateCustomerProfile(ctx context.Context, c call) (interface{}, string, error) {
	var args struct {
		CustomerID       string               `json:"customer_id"`
		Name             *string              `json:"name"`
		Email            *string              `json:"email"`
		Phone            *string              `json:"phone"`
		CompanyName      *string              `json:"company_name"`
		Type             *domain.CustomerType `json:"customer_type"`
		Sector           *string              `json:"sector"`
		Location         *string              `json:"location"`
		Hectares         *float64             `json:"hectares"`
		MainCrops        []string             `json:"main_crops"`
		CurrentMachinery []string             `json:"current_machinery"`
	}
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	id, err := customerFor(c.sess, args.CustomerID)
	if err != nil {
		return nil, "", err
	}
	cust, err := r.svc.Customers.Update(ctx, id, domain.CustomerUpdate{
		Name:             args.Name,
		Email:            args.Email,
		Phone:            args.Phone,
		CompanyName:      args.CompanyName,
		Type:             args.Type,
		Sector:           args.Sector,
		Location:         args.Location,
		Hectares:         args.Hectares,
		MainCrops:        args.MainCrops,
		CurrentMachinery: args.CurrentMachinery,
	})
	if err != nil {
		return nil, "", err
	}
	return cust, "Profile updated", nil
}

func (r *Registry) searchProducts(ctx context.Context, c call) (interface{}, string, error) {
	var args catalog.SearchInput
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	products, err := r.svc.Catalog.Search(ctx, args)
	if err != nil {
		return nil, "", err
	}
	if args.Category != "" {
		c.sess.SelectedCategory = domain.ProductCategory(strings.ToLower(args.Category))
	}
	msg := fmt.Sprintf("Found %d products", len(products))
	if len(products) == 0 {
		msg = "No products match the search"
	}
	return map[string]interface{}{"products": products, "count": len(products)}, msg, nil
}

func (r *Registry) getProductDetails(ctx context.Context, c call) (interface{}, string, error) {
	var args struct {
		ProductID string `json:"product_id"`
	}
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	p, err := r.svc.Catalog.Get(ctx, args.ProductID)
	if err != nil {
		return nil, "", err
	}
	c.sess.MarkViewed(p.ID)
	c.sess.SelectedProduct = p.ID
	c.sess.SelectedCategory = p.Category
	return p, p.Name, nil
}

func (r *Registry) getRecommendations(ctx context.Context, c call) (interface{}, string, error) {
	var args struct {
		CustomerID string `json:"customer_id"`
		Limit      int    `json:"limit"`
	}
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	var profile *domain.Customer
	if id, err := customerFor(c.sess, args.CustomerID); err == nil {
		if profile, err = r.svc.Customers.Get(ctx, id); err != nil {
			return nil, "", err
		}
	} else if args.CustomerID != "" {
		return nil, "", err
	}

	exclude := make([]string, 0, len(c.sess.Cart.Items))
	for _, item := range c.sess.Cart.Items {
		exclude = append(exclude, item.ProductID)
	}
	products, err := r.svc.Catalog.Recommend(ctx, profile, exclude, args.Limit)
	if err != nil {
		return nil, "", err
	}
	return map[string]interface{}{"products": products, "count": len(products)},
		fmt.Sprintf("%d recommended products", len(products)), nil
}

func (r *Registry) addToCart(ctx context.Context, c call) (interface{}, string, error) {
	args := struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}{Quantity: 1}
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	summary, err := r.svc.Cart.Add(ctx, c.sess, args.ProductID, args.Quantity)
	if err != nil {
		return nil, "", err
	}
	return summary, fmt.Sprintf("Added %d x %s to the cart", args.Quantity, itemName(summary.Items, args.ProductID)), nil
}

func (r *Registry) removeFromCart(ctx context.Context, c call) (interface{}, string, error) {
	var args struct {
		ProductID string `json:"product_id"`
	}
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	name := itemName(c.sess.Cart.Items, args.ProductID)
	summary, removed, err := r.svc.Cart.Remove(ctx, c.sess, args.ProductID)
	if err != nil {
		return nil, "", err
	}
	if !removed {
		return summary, fmt.Sprintf("%s was not in the cart", args.ProductID), nil
	}
	return summary, fmt.Sprintf("Removed %s from the cart", name), nil
}

func (r *Registry) getCartSummary(_ context.Context, c call) (interface{}, string, error) {
	summary := r.svc.Cart.Summarize(c.sess.Cart)
	if summary.TotalItems == 0 {
		return summary, "The cart is empty", nil
	}
	return summary, fmt.Sprintf("%d items, subtotal %s %s", summary.TotalItems, summary.Subtotal.StringFixed(2), summary.Currency), nil
}

func (r *Registry) applyDiscountCode(ctx context.Context, c call) (interface{}, string, error) {
	var args struct {
		Code string `json:"code"`
	}
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	summary, code, err := r.svc.Cart.ApplyCode(ctx, c.sess, args.Code)
	if err != nil {
		return nil, "", err
	}
	return map[string]interface{}{"cart": summary, "code": code.Code, "percentage": code.Percentage},
		fmt.Sprintf("Code %s (%d%%) will be applied at checkout", code.Code, code.Percentage), nil
}

func (r *Registry) processCheckout(ctx context.Context, c call) (interface{}, string, error) {
	var args checkout.Input
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	res, err := r.svc.Checkout.Checkout(ctx, c.sess, args)
	if err != nil {
		return nil, "", err
	}
	return res, fmt.Sprintf("Order %s placed, total %s %s", res.OrderID, res.Total.StringFixed(2), res.Currency), nil
}

func (r *Registry) scheduleService(ctx context.Context, c call) (interface{}, string, error) {
	var args booking.Input
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	id, err := customerFor(c.sess, args.CustomerID)
	if err != nil {
		return nil, "", err
	}
	args.CustomerID = id
	res, err := r.svc.Booking.Schedule(ctx, args)
	if err != nil {
		return nil, "", err
	}
	return res, fmt.Sprintf("%s booked for %s", res.Details.Service, res.Details.Date), nil
}

func (r *Registry) generateDiscountCode(ctx context.Context, c call) (interface{}, string, error) {
	var args discount.Input
	if err := decode(c.args, &args); err != nil {
		return nil, "", err
	}
	id, err := customerFor(c.sess, args.CustomerID)
	if err != nil {
		return nil, "", err
	}
	args.CustomerID = id
	res, err := r.svc.Discounts.Generate(ctx, args)
	if err != nil {
		return nil, "", err
	}
	return res, fmt.Sprintf("Code %s gives %d%% off until %s", res.Code, res.Percentage, res.ValidUntil), nil
}

func itemName(items []domain.CartItem, productID string) string {
	for _, item := range items {
		if item.ProductID == productID {
			return item.Name
		}
	}
	return productID
}

