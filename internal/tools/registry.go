// Package tools exposes the sales workflows as named tools for the conversational
// assistant. Every call runs under the session lock and returns a Result envelope.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"agrofunnel/internal/domain"
	"agrofunnel/internal/funnel"
	"agrofunnel/internal/service/booking"
	"agrofunnel/internal/service/cart"
	"agrofunnel/internal/service/catalog"
	"agrofunnel/internal/service/checkout"
	"agrofunnel/internal/service/customer"
	"agrofunnel/internal/service/discount"
	"agrofunnel/internal/service/session"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Services are the workflows the tools dispatch to.
type Services struct {
	Sessions  *session.Service
	Customers *customer.Service
	Catalog   *catalog.Service
	Cart      *cart.Service
	Checkout  *checkout.Service
	Booking   *booking.Service
	Discounts *discount.Service
}

// Result is the envelope returned for every tool call.
type Result struct {
	Status  string            `json:"status"`
	Kind    domain.ErrorKind  `json:"kind,omitempty"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Step    domain.FunnelStep `json:"funnelStep,omitempty"`
}

// Descriptor advertises a tool to the assistant.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// call is one tool invocation inside the session lock.
type call struct {
	sess *domain.Session
	args json.RawMessage
}

type handler func(ctx context.Context, c call) (data interface{}, message string, err error)

type tool struct {
	name        string
	description string
	schemaJSON  string
	schema      *jsonschema.Schema
	intents     []funnel.Intent
	handle      handler
}

// Registry holds the compiled tools.
type Registry struct {
	svc    Services
	tools  map[string]*tool
	logger *zap.Logger
}

// New compiles every tool schema. It fails only on a malformed schema.
func New(svc Services, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{svc: svc, tools: map[string]*tool{}, logger: logger}
	for _, t := range r.definitions() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://agrofunnel.local/tools/%s.schema.json", t.name)
		if err := c.AddResource(url, strings.NewReader(t.schemaJSON)); err != nil {
			return nil, fmt.Errorf("load %s schema: %w", t.name, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", t.name, err)
		}
		t.schema = compiled
		r.tools[t.name] = t
	}
	return r, nil
}

// List returns the tool descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{Name: t.name, Description: t.description, Parameters: json.RawMessage(t.schemaJSON)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs tool name for the session. Workflow failures come back as an error
// envelope; only unexpected failures are logged at error level.
func (r *Registry) Call(ctx context.Context, sessionID, name string, args json.RawMessage) Result {
	t, ok := r.tools[name]
	if !ok {
		return failure(domain.NewError(domain.KindUnknownTool, "unknown tool %q", name))
	}
	if len(bytes.TrimSpace(args)) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		args = json.RawMessage("{}")
	}
	if err := validate(t.schema, args); err != nil {
		return failure(err)
	}

	var (
		data    interface{}
		message string
	)
	sess, err := r.svc.Sessions.Run(ctx, sessionID, t.intents, func(ctx context.Context, sess *domain.Session) error {
		var err error
		data, message, err = t.handle(ctx, call{sess: sess, args: args})
		return err
	})
	if err != nil {
		if domain.KindOf(err) == "" || domain.KindOf(err) == domain.KindPersistenceFailed {
			r.logger.Error("tool failed", zap.String("tool", name), zap.String("session_id", sessionID), zap.Error(err))
		} else {
			r.logger.Info("tool rejected", zap.String("tool", name), zap.String("session_id", sessionID),
				zap.String("kind", string(domain.KindOf(err))), zap.String("reason", err.Error()))
		}
		return failure(err)
	}
	r.logger.Info("tool called", zap.String("tool", name), zap.String("session_id", sessionID), zap.String("step", string(sess.Step)))
	return Result{Status: StatusSuccess, Message: message, Data: data, Step: sess.Step}
}

func validate(schema *jsonschema.Schema, args json.RawMessage) error {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return domain.NewError(domain.KindInvalidArguments, "arguments are not valid JSON")
	}
	if err := schema.Validate(v); err != nil {
		msg := err.Error()
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			msg = describe(ve)
		}
		return &domain.Error{Kind: domain.KindInvalidArguments, Message: msg, Err: err}
	}
	return nil
}

// describe reports the deepest validation failure, which names the offending field.
func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("invalid arguments at %s: %s", loc, ve.Message)
}

func decode(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return domain.NewError(domain.KindInvalidArguments, "invalid arguments: %v", err)
	}
	return nil
}

func failure(err error) Result {
	var e *domain.Error
	if errors.As(err, &e) {
		return Result{Status: StatusError, Kind: e.Kind, Message: e.Message}
	}
	return Result{Status: StatusError, Kind: domain.KindPersistenceFailed, Message: domain.ErrPersistenceFailed.Message}
}
