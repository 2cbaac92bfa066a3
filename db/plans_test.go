package db

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPlans(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)

	// test not found plan
	_, err := testDB.Plan(100)
	c.Assert(err, qt.Equals, ErrNotFound)

	// create a couple of plans
	basicID, err := testDB.SetPlan(&Plan{
		Name:                "Basic",
		Default:             true,
		MonthlyPrice:        999,
		YearlyPrice:         9990,
		StripeMonthlyPrice:  "price_basic_m",
		StripeYearlyPrice:   "price_basic_y",
		PayPalMonthlyPlanID: "P-BASIC-M",
		PayPalYearlyPlanID:  "P-BASIC-Y",
	})
	c.Assert(err, qt.IsNil)

	proID, err := testDB.SetPlan(&Plan{
		Name:               "Pro",
		MonthlyPrice:       1999,
		YearlyPrice:        19990,
		StripeMonthlyPrice: "price_pro_m",
		StripeYearlyPrice:  "price_pro_y",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(proID, qt.Equals, basicID+1)

	// fetch a single plan and check the gateway price selection
	plan, err := testDB.Plan(basicID)
	c.Assert(err, qt.IsNil)
	c.Assert(plan.Name, qt.Equals, "Basic")
	c.Assert(plan.StripePriceID(TenureMonth), qt.Equals, "price_basic_m")
	c.Assert(plan.StripePriceID(TenureYear), qt.Equals, "price_basic_y")
	c.Assert(plan.PayPalPlanID(TenureMonth), qt.Equals, "P-BASIC-M")
	c.Assert(plan.PayPalPlanID(TenureYear), qt.Equals, "P-BASIC-Y")

	// the default plan is the basic one
	defaultPlan, err := testDB.DefaultPlan()
	c.Assert(err, qt.IsNil)
	c.Assert(defaultPlan.ID, qt.Equals, basicID)

	// list all plans
	plans, err := testDB.Plans()
	c.Assert(err, qt.IsNil)
	c.Assert(plans, qt.HasLen, 2)
	c.Assert(plans[0].ID, qt.Equals, basicID)
	c.Assert(plans[1].ID, qt.Equals, proID)

	// update a plan price
	plan.MonthlyPrice = 1099
	_, err = testDB.SetPlan(plan)
	c.Assert(err, qt.IsNil)
	plan, err = testDB.Plan(basicID)
	c.Assert(err, qt.IsNil)
	c.Assert(plan.MonthlyPrice, qt.Equals, int64(1099))

	// delete a plan
	c.Assert(testDB.DelPlan(plan), qt.IsNil)
	_, err = testDB.Plan(basicID)
	c.Assert(err, qt.Equals, ErrNotFound)
}
