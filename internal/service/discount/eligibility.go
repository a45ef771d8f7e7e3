package discount

import (
	"fmt"

	"agrofunnel/internal/domain"
	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"
)

// eligibilityRules are evaluated against the customer's purchase history. Amounts
// are compared in decimal before evaluation and reach the rules as signs (-1, 0, 1),
// so they agree exactly with the checkout's loyalty check.
// Types without a rule are open to every customer.
var eligibilityRules = map[domain.DiscountType]string{
	domain.DiscountLoyalty:     `purchases_vs_threshold >= 0`,
	domain.DiscountNewCustomer: `purchases_sign == 0`,
}

// Eligibility holds the compiled rules.
type Eligibility struct {
	programs  map[domain.DiscountType]cel.Program
	threshold decimal.Decimal
}

// NewEligibility compiles the rules once; threshold is the loyalty purchase total.
func NewEligibility(threshold decimal.Decimal) (*Eligibility, error) {
	env, err := cel.NewEnv(
		cel.Variable("purchases_vs_threshold", cel.IntType),
		cel.Variable("purchases_sign", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("discount rules env: %w", err)
	}

	programs := make(map[domain.DiscountType]cel.Program, len(eligibilityRules))
	for t, expr := range eligibilityRules {
		ast, iss := env.Compile(expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("compile %s rule: %w", t, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program %s rule: %w", t, err)
		}
		programs[t] = prg
	}
	return &Eligibility{programs: programs, threshold: threshold}, nil
}

// Eligible reports whether c may receive a code of type t.
func (e *Eligibility) Eligible(t domain.DiscountType, c domain.Customer) (bool, error) {
	prg, ok := e.programs[t]
	if !ok {
		return true, nil
	}
	out, _, err := prg.Eval(map[string]interface{}{
		"purchases_vs_threshold": int64(c.TotalPurchases.Cmp(e.threshold)),
		"purchases_sign":         int64(c.TotalPurchases.Sign()),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %s rule: %w", t, err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%s rule returned %T", t, out.Value())
	}
	return allowed, nil
}
