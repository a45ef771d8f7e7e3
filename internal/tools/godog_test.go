package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"agrofunnel/internal/domain"
	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type funnelTestContext struct {
	h         *harness
	sessionID string
	last      Result
}

func (c *funnelTestContext) reset() error {
	h, err := buildHarness()
	if err != nil {
		return err
	}
	*c = funnelTestContext{h: h}
	return nil
}

func (c *funnelTestContext) aNewConversation() error {
	started, err := c.h.sessions.Start(context.Background(), "es")
	if err != nil {
		return err
	}
	c.sessionID = started.Session.ID
	return nil
}

func (c *funnelTestContext) aCustomerWithTotalPurchases(name, email string, total int) error {
	_, err := c.h.customers.Create(context.Background(), domain.Customer{
		ID:             "cust_" + strings.SplitN(email, "@", 2)[0],
		Name:           name,
		Email:          email,
		TotalPurchases: decimal.NewFromInt(int64(total)),
	})
	return err
}

func (c *funnelTestContext) call(name, args string) error {
	c.last = c.h.registry.Call(context.Background(), c.sessionID, name, json.RawMessage(args))
	return nil
}

func (c *funnelTestContext) iCallWith(name string, args *godog.DocString) error {
	return c.call(name, args.Content)
}

func (c *funnelTestContext) theCustomerIdentifiesAs(name, email string) error {
	args, _ := json.Marshal(map[string]string{"name": name, "email": email})
	if err := c.call("identify_customer", string(args)); err != nil {
		return err
	}
	return c.theCallSucceeds()
}

func (c *funnelTestContext) iRequestAServiceOn(serviceType, date string) error {
	args, _ := json.Marshal(map[string]string{"service_type": serviceType, "preferred_date": date, "location": "Jaén"})
	return c.call("schedule_service", string(args))
}

func (c *funnelTestContext) iRequestAServiceDaysFromToday(serviceType string, days int) error {
	return c.iRequestAServiceOn(serviceType, today().AddDate(0, 0, days).Format("2006-01-02"))
}

func (c *funnelTestContext) iRequestAServiceOnTheNextSaturday(serviceType string) error {
	return c.iRequestAServiceOn(serviceType, nextSaturday().Format("2006-01-02"))
}

func (c *funnelTestContext) iRequestAServiceOnTheMondayAfter(serviceType string) error {
	return c.iRequestAServiceOn(serviceType, nextSaturday().AddDate(0, 0, 2).Format("2006-01-02"))
}

func (c *funnelTestContext) theCallSucceeds() error {
	if c.last.Status != StatusSuccess {
		return fmt.Errorf("expected success, got %s: %s", c.last.Kind, c.last.Message)
	}
	return nil
}

func (c *funnelTestContext) theCallFailsWithKind(kind string) error {
	if c.last.Status != StatusError {
		return errors.New("expected the call to fail but it succeeded")
	}
	if string(c.last.Kind) != kind {
		return fmt.Errorf("expected kind %s, got %s (%s)", kind, c.last.Kind, c.last.Message)
	}
	return nil
}

func (c *funnelTestContext) theResultFieldIs(path, want string) error {
	v, err := c.field(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", path, want, got)
	}
	return nil
}

func (c *funnelTestContext) theResultFieldHasEntries(path string, n int) error {
	v, err := c.field(path)
	if err != nil {
		return err
	}
	list, ok := v.([]interface{})
	if !ok {
		return fmt.Errorf("%s is not a list: %v", path, v)
	}
	if len(list) != n {
		return fmt.Errorf("expected %d entries in %s, got %d", n, path, len(list))
	}
	return nil
}

func (c *funnelTestContext) theFunnelStepIs(step string) error {
	if string(c.last.Step) != step {
		return fmt.Errorf("expected funnel step %s, got %s", step, c.last.Step)
	}
	return nil
}

func (c *funnelTestContext) theConversationStaysAt(step string) error {
	sess, err := c.h.sessions.Load(context.Background(), c.sessionID)
	if err != nil {
		return err
	}
	if string(sess.Step) != step {
		return fmt.Errorf("expected stored step %s, got %s", step, sess.Step)
	}
	return nil
}

func (c *funnelTestContext) theCartHoldsItems(n int) error {
	if err := c.call("get_cart_summary", `{}`); err != nil {
		return err
	}
	if err := c.theCallSucceeds(); err != nil {
		return err
	}
	return c.theResultFieldIs("total_items", strconv.Itoa(n))
}

func (c *funnelTestContext) theCustomerHasTotalPurchases(email string, total int) error {
	cust, err := c.h.customers.GetByEmail(context.Background(), email)
	if err != nil {
		return err
	}
	if !cust.TotalPurchases.Equal(decimal.NewFromInt(int64(total))) {
		return fmt.Errorf("expected total purchases %d, got %s", total, cust.TotalPurchases)
	}
	return nil
}

// field walks a dotted path through the JSON form of the last result's data.
func (c *funnelTestContext) field(path string) (interface{}, error) {
	raw, err := json.Marshal(c.last.Data)
	if err != nil {
		return nil, err
	}
	var cur interface{}
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, err
	}
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("no field %q in result", path)
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("bad index %q in %q", part, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q", path)
		}
	}
	return cur, nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func nextSaturday() time.Time {
	d := today().AddDate(0, 0, 1)
	for d.Weekday() != time.Saturday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &funnelTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})

	ctx.Step(`^a new conversation$`, tc.aNewConversation)
	ctx.Step(`^a customer "([^"]*)" with email "([^"]*)" and total purchases of (\d+)$`, tc.aCustomerWithTotalPurchases)

	ctx.Step(`^the customer identifies as "([^"]*)" with email "([^"]*)"$`, tc.theCustomerIdentifiesAs)
	ctx.Step(`^I call "([^"]*)" with:$`, tc.iCallWith)
	ctx.Step(`^I request a "([^"]*)" service on "([^"]*)"$`, tc.iRequestAServiceOn)
	ctx.Step(`^I request a "([^"]*)" service (\d+) days from today$`, tc.iRequestAServiceDaysFromToday)
	ctx.Step(`^I request a "([^"]*)" service on the next Saturday$`, tc.iRequestAServiceOnTheNextSaturday)
	ctx.Step(`^I request a "([^"]*)" service on the Monday after next Saturday$`, tc.iRequestAServiceOnTheMondayAfter)

	ctx.Step(`^the call succeeds$`, tc.theCallSucceeds)
	ctx.Step(`^the call fails with kind "([^"]*)"$`, tc.theCallFailsWithKind)
	ctx.Step(`^the result field "([^"]*)" is "([^"]*)"$`, tc.theResultFieldIs)
	ctx.Step(`^the result field "([^"]*)" has (\d+) entries$`, tc.theResultFieldHasEntries)
	ctx.Step(`^the funnel step is "([^"]*)"$`, tc.theFunnelStepIs)
	ctx.Step(`^the conversation stays at "([^"]*)"$`, tc.theConversationStaysAt)
	ctx.Step(`^the cart holds (\d+) items$`, tc.theCartHoldsItems)
	ctx.Step(`^the customer "([^"]*)" has total purchases of (\d+)$`, tc.theCustomerHasTotalPurchases)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
