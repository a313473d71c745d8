package harness

import (
	"fmt"
	"strings"
)

// AssertionError describes one expectation that did not hold.
type AssertionError struct {
	Where    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Where, e.Expected, e.Actual)
}

// checkExpect compares a step record with its expect clause.
func checkExpect(index int, rec StepRecord, exp *Expect) []string {
	var errs []string
	where := fmt.Sprintf("step %d (%s %s)", index, rec.Op, rec.Invoice)
	fail := func(field, expected, actual string) {
		errs = append(errs, (&AssertionError{
			Where:    where + " " + field,
			Expected: quoteOrNone(expected),
			Actual:   quoteOrNone(actual),
		}).Error())
	}

	if exp.Error != rec.Error {
		fail("error", exp.Error, rec.Error)
	}
	if exp.Status != "" && string(exp.Status) != rec.Status {
		fail("status", string(exp.Status), rec.Status)
	}
	if exp.Risk != "" && string(exp.Risk) != rec.Risk {
		fail("risk", string(exp.Risk), rec.Risk)
	}
	if exp.Determination != "" && string(exp.Determination) != rec.Determination {
		fail("determination", string(exp.Determination), rec.Determination)
	}
	if exp.Results != nil && !equalStrings(exp.Results, rec.Results) {
		fail("results", strings.Join(exp.Results, ","), strings.Join(rec.Results, ","))
	}
	return errs
}

// checkNotifications requires the deliveries to match expected in order.
// An expectation without a recipient matches any recipient.
func checkNotifications(expected []ExpectedDelivery, actual []DeliveryRecord) []string {
	var errs []string
	if len(expected) != len(actual) {
		errs = append(errs, (&AssertionError{
			Where:    "notifications",
			Expected: fmt.Sprintf("%d deliveries", len(expected)),
			Actual:   fmt.Sprintf("%d deliveries %s", len(actual), describeDeliveries(actual)),
		}).Error())
		return errs
	}
	for i, exp := range expected {
		got := actual[i]
		match := string(exp.Trigger) == got.Trigger &&
			exp.Invoice == got.Invoice &&
			exp.Channel == got.Channel &&
			(exp.Recipient == "" || exp.Recipient == got.Recipient) &&
			exp.Failed == !got.OK
		if !match {
			errs = append(errs, (&AssertionError{
				Where:    fmt.Sprintf("notification %d", i),
				Expected: fmt.Sprintf("%s %s %s %s ok=%t", exp.Trigger, exp.Invoice, exp.Channel, exp.Recipient, !exp.Failed),
				Actual:   fmt.Sprintf("%s %s %s %s ok=%t", got.Trigger, got.Invoice, got.Channel, got.Recipient, got.OK),
			}).Error())
		}
	}
	return errs
}

func describeDeliveries(ds []DeliveryRecord) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.Trigger + "/" + d.Channel + "/" + d.Recipient
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func quoteOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return fmt.Sprintf("%q", s)
}
