// Package funnel is the explicit state machine of a sales conversation. Intents
// reported by the assistant or implied by tool calls move a session between steps.
package funnel

import (
	"sort"

	"agrofunnel/internal/domain"
)

// Intent is a structured signal of what the customer wants to do next.
type Intent string

const (
	IntentIdentify        Intent = "identify"
	IntentProvideProfile  Intent = "provide_profile"
	IntentBrowse          Intent = "browse"
	IntentSearch          Intent = "search"
	IntentSelectProduct   Intent = "select_product"
	IntentAddToCart       Intent = "add_to_cart"
	IntentRemoveFromCart  Intent = "remove_from_cart"
	IntentViewCart        Intent = "view_cart"
	IntentCheckout        Intent = "checkout"
	IntentOrderPlaced     Intent = "order_placed"
	IntentScheduleService Intent = "schedule_service"
	IntentRequestDiscount Intent = "request_discount"
)

// Steps lists every funnel step in conversational order.
var Steps = []domain.FunnelStep{
	domain.StepGreeting,
	domain.StepProfiling,
	domain.StepBrowsing,
	domain.StepDetail,
	domain.StepCart,
	domain.StepCheckout,
}

type rule struct {
	from map[domain.FunnelStep]bool // nil allows every step
	to   func(domain.FunnelStep) domain.FunnelStep
}

func steps(s ...domain.FunnelStep) map[domain.FunnelStep]bool {
	m := make(map[domain.FunnelStep]bool, len(s))
	for _, step := range s {
		m[step] = true
	}
	return m
}

func goTo(step domain.FunnelStep) func(domain.FunnelStep) domain.FunnelStep {
	return func(domain.FunnelStep) domain.FunnelStep { return step }
}

func stay(from domain.FunnelStep) domain.FunnelStep { return from }

// profiling moves an opening conversation into profiling and leaves later steps alone.
func profiling(from domain.FunnelStep) domain.FunnelStep {
	if from == domain.StepGreeting {
		return domain.StepProfiling
	}
	return from
}

var rules = map[Intent]rule{
	IntentIdentify:       {to: profiling},
	IntentProvideProfile: {to: profiling},
	IntentBrowse:         {to: goTo(domain.StepBrowsing)},
	IntentSearch:         {to: goTo(domain.StepBrowsing)},
	IntentSelectProduct:  {to: goTo(domain.StepDetail)},
	IntentAddToCart: {
		from: steps(domain.StepBrowsing, domain.StepDetail, domain.StepCart, domain.StepCheckout),
		to:   goTo(domain.StepCart),
	},
	IntentRemoveFromCart: {
		from: steps(domain.StepBrowsing, domain.StepDetail, domain.StepCart, domain.StepCheckout),
		to:   goTo(domain.StepCart),
	},
	IntentViewCart: {to: goTo(domain.StepCart)},
	// checkout's own rules decide whether an order can be placed
	IntentCheckout: {to: goTo(domain.StepCheckout)},
	IntentOrderPlaced: {
		from: steps(domain.StepCheckout),
		to:   goTo(domain.StepBrowsing),
	},
	IntentScheduleService: {to: stay},
	IntentRequestDiscount: {to: stay},
}

// Known reports whether i is a recognised intent.
func Known(i Intent) bool {
	_, ok := rules[i]
	return ok
}

// Next returns the step reached from `from` on intent, or an invalid_transition error.
func Next(from domain.FunnelStep, intent Intent) (domain.FunnelStep, error) {
	r, ok := rules[intent]
	if !ok {
		return from, domain.NewError(domain.KindInvalidTransition, "unknown intent %q", intent)
	}
	if r.from != nil && !r.from[from] {
		return from, domain.NewError(domain.KindInvalidTransition, "cannot %s from %s", intent, from)
	}
	return r.to(from), nil
}

// Allowed lists the intents accepted in step, sorted by name.
func Allowed(step domain.FunnelStep) []Intent {
	var out []Intent
	for intent, r := range rules {
		if r.from == nil || r.from[step] {
			out = append(out, intent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
