package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExpect(t *testing.T) {
	rec := StepRecord{
		Op:      OpAudit,
		Invoice: "inv-1",
		Status:  "NEEDS_REVIEW",
		Risk:    "HIGH",
		Results: []string{"SYS-PO-PRESENT:FAIL", "AI-PRICE:FAIL"},
	}

	assert.Empty(t, checkExpect(0, rec, &Expect{Status: "NEEDS_REVIEW", Risk: "HIGH"}))
	assert.Empty(t, checkExpect(0, rec, &Expect{Results: []string{"SYS-PO-PRESENT:FAIL", "AI-PRICE:FAIL"}}))

	errs := checkExpect(2, rec, &Expect{Status: "APPROVED", Error: "COOLDOWN", Results: []string{"AI-PRICE:FAIL"}})
	require.Len(t, errs, 3)
	assert.Equal(t, `step 2 (audit inv-1) error: expected "COOLDOWN", got (none)`, errs[0])
	assert.Equal(t, `step 2 (audit inv-1) status: expected "APPROVED", got "NEEDS_REVIEW"`, errs[1])
	assert.Contains(t, errs[2], "results")
}

func TestCheckExpect_UnexpectedErrorFails(t *testing.T) {
	rec := StepRecord{Op: OpEscalate, Invoice: "inv-1", Error: "NOT_ELIGIBLE"}
	errs := checkExpect(0, rec, &Expect{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `got "NOT_ELIGIBLE"`)
}

func TestCheckNotifications(t *testing.T) {
	actual := []DeliveryRecord{
		{Trigger: "AUDIT_FAILED", Invoice: "inv-1", Channel: "in_app", Recipient: "inbox", OK: true},
		{Trigger: "AUDIT_FAILED", Invoice: "inv-1", Channel: "email", Recipient: "bad@example.org", OK: false},
	}

	assert.Empty(t, checkNotifications([]ExpectedDelivery{
		{Trigger: "AUDIT_FAILED", Invoice: "inv-1", Channel: "in_app"},
		{Trigger: "AUDIT_FAILED", Invoice: "inv-1", Channel: "email", Recipient: "bad@example.org", Failed: true},
	}, actual))

	errs := checkNotifications([]ExpectedDelivery{
		{Trigger: "AUDIT_FAILED", Invoice: "inv-1", Channel: "in_app"},
		{Trigger: "AUDIT_FAILED", Invoice: "inv-1", Channel: "email"},
	}, actual)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "notification 1")

	errs = checkNotifications(nil, actual)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "AUDIT_FAILED/email/bad@example.org")
}
