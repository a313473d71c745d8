package notify

import (
	"context"
	"errors"
	"net/smtp"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/store"
	"github.com/roach88/ledgerguard/internal/testutil"
)

var testNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

type clientMap map[string]*domain.ClientProfile

func (m clientMap) Client(_ context.Context, id string) (*domain.ClientProfile, error) {
	return m[id], nil
}

func testInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:            "inv-1",
		TenantID:      "t1",
		InvoiceNumber: "INV-0042",
		SupplierName:  "Bright Gardens Pty Ltd",
		ClientID:      "client-1",
		Total:         300,
		Status:        domain.StatusNeedsReview,
		ValidationResults: []domain.ValidationResult{
			domain.Fail(domain.RuleBudget, domain.SeverityBlocking, "exceeds remaining balance by $108.57"),
		},
	}
}

func settingsWith(rules ...domain.NotificationRule) *config.Settings {
	s := config.Default()
	s.NotificationRules = rules
	return s
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDispatch_OneSendPerRecipient(t *testing.T) {
	gw := testutil.NewRecordingGateway("bad@example.org")
	rules := settingsWith(domain.NotificationRule{
		Trigger:    domain.TriggerAuditFailed,
		Email:      true,
		Recipients: "bad@example.org, ok@example.org",
	})
	e := NewEngine(rules, nil, gw)

	report := e.Dispatch(context.Background(), domain.TriggerAuditFailed, testInvoice())

	sent := gw.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "bad@example.org", sent[0].To)
	assert.False(t, sent[0].OK)
	assert.Equal(t, "ok@example.org", sent[1].To)
	assert.True(t, sent[1].OK)

	assert.Equal(t, 2, report.Attempted(ChannelEmail))
	require.Len(t, report.Failures, 1)
	var derr *domain.NotificationDispatchError
	require.ErrorAs(t, report.Err(), &derr)
	assert.Equal(t, "bad@example.org", derr.Recipient)
	assert.Equal(t, "inv-1", derr.InvoiceID)
	assert.ErrorIs(t, derr, ErrNotSent)
}

func TestDispatch_EmailDisabledSendsNothing(t *testing.T) {
	gw := testutil.NewRecordingGateway()
	rules := settingsWith(domain.NotificationRule{
		Trigger:    domain.TriggerAuditFailed,
		Email:      false,
		Recipients: "ops@example.org",
	})
	e := NewEngine(rules, nil, gw)

	report := e.Dispatch(context.Background(), domain.TriggerAuditFailed, testInvoice())

	assert.Empty(t, gw.Sent())
	assert.Empty(t, report.Deliveries)
	assert.NoError(t, report.Err())
}

func TestDispatch_EmptyRecipientListSendsNothing(t *testing.T) {
	gw := testutil.NewRecordingGateway()
	rules := settingsWith(domain.NotificationRule{Trigger: domain.TriggerAuditFailed, Email: true, Recipients: " , "})
	e := NewEngine(rules, nil, gw)

	e.Dispatch(context.Background(), domain.TriggerAuditFailed, testInvoice())
	assert.Empty(t, gw.Sent())
}

func TestDispatch_InAppEnqueuesInbox(t *testing.T) {
	st := newTestStore(t)
	rules := settingsWith(domain.NotificationRule{Trigger: domain.TriggerAuditFailed, InApp: true})
	e := NewEngine(rules, st, nil,
		WithIDs(testutil.NewSequentialIDs("ntf")),
		WithClock(testutil.NewFakeClock(testNow)))

	report := e.Dispatch(context.Background(), domain.TriggerAuditFailed, testInvoice())
	require.NoError(t, report.Err())
	assert.Equal(t, 1, report.Attempted(ChannelInApp))

	got, err := st.Notifications(context.Background(), "t1", true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ntf-0001", got[0].ID)
	assert.Equal(t, "inv-1", got[0].InvoiceID)
	assert.Equal(t, domain.TriggerAuditFailed, got[0].Trigger)
	assert.Equal(t, "Invoice INV-0042 from Bright Gardens Pty Ltd failed its compliance audit", got[0].Message)
}

func TestDispatch_ApprovalSendsClientCourtesy(t *testing.T) {
	gw := testutil.NewRecordingGateway()
	rules := settingsWith(domain.NotificationRule{
		Trigger:    domain.TriggerInvoiceApproved,
		Email:      true,
		Recipients: "finance@example.org",
	})
	clients := clientMap{"client-1": {ID: "client-1", Name: "Alex", Email: " alex@example.org "}}
	e := NewEngine(rules, nil, gw, WithClients(clients))

	inv := testInvoice()
	inv.Status = domain.StatusPosted
	report := e.Dispatch(context.Background(), domain.TriggerInvoiceApproved, inv)

	sent := gw.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "finance@example.org", sent[0].To)
	assert.Equal(t, "alex@example.org", sent[1].To)
	assert.Contains(t, sent[1].Body, "Hello Alex")
	assert.Contains(t, sent[1].Body, "$300.00")
	assert.Equal(t, 1, report.Attempted(ChannelCourtesy))
}

func TestDispatch_CourtesyIndependentOfStaffRule(t *testing.T) {
	gw := testutil.NewRecordingGateway()
	clients := clientMap{"client-1": {ID: "client-1", Name: "Alex", Email: "alex@example.org"}}
	e := NewEngine(settingsWith(), nil, gw, WithClients(clients))

	e.Dispatch(context.Background(), domain.TriggerInvoiceApproved, testInvoice())

	sent := gw.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alex@example.org", sent[0].To)
}

func TestDispatch_NoCourtesyWithoutClientEmail(t *testing.T) {
	gw := testutil.NewRecordingGateway()
	clients := clientMap{"client-1": {ID: "client-1", Name: "Alex"}}
	e := NewEngine(settingsWith(), nil, gw, WithClients(clients))

	e.Dispatch(context.Background(), domain.TriggerInvoiceApproved, testInvoice())
	e.Dispatch(context.Background(), domain.TriggerInvoiceRejected, testInvoice())

	assert.Empty(t, gw.Sent())
}

func TestParseRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, ParseRecipients(" a@x.io,, b@x.io ,"))
	assert.Nil(t, ParseRecipients(""))
}

func TestCompose_ListsBlockingFailures(t *testing.T) {
	inv := testInvoice()
	inv.RiskAssessment = &domain.RiskAssessment{Level: domain.RiskHigh, Score: 81, Justification: "Rate above schedule."}

	subject, body := Compose(domain.TriggerHighRiskDetected, inv)

	assert.Equal(t, "Invoice INV-0042 from Bright Gardens Pty Ltd was rated high risk", subject)
	assert.Contains(t, body, "Risk: HIGH (81)")
	assert.Contains(t, body, "- SYS-BUDGET: exceeds remaining balance by $108.57")
}

func TestAsync_DispatchesInOrder(t *testing.T) {
	gw := testutil.NewRecordingGateway()
	rules := settingsWith(
		domain.NotificationRule{Trigger: domain.TriggerAuditFailed, Email: true, Recipients: "ops@example.org"},
		domain.NotificationRule{Trigger: domain.TriggerInvoiceRejected, Email: true, Recipients: "ops@example.org"},
	)
	var reports []Report
	a := NewAsync(NewEngine(rules, nil, gw), nil, WithReportHook(func(r Report) {
		reports = append(reports, r)
	}))
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	a.Notify(ctx, domain.TriggerAuditFailed, testInvoice())
	a.Notify(ctx, domain.TriggerInvoiceRejected, testInvoice())
	cancel()
	a.Wait()

	sent := gw.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Subject, "failed its compliance audit")
	assert.Contains(t, sent[1].Subject, "was rejected")
	require.Len(t, reports, 2)
	assert.Equal(t, domain.TriggerInvoiceRejected, reports[1].Trigger)
}

func TestAsync_DropsAfterClose(t *testing.T) {
	gw := testutil.NewRecordingGateway()
	rules := settingsWith(domain.NotificationRule{Trigger: domain.TriggerAuditFailed, Email: true, Recipients: "ops@example.org"})
	a := NewAsync(NewEngine(rules, nil, gw), nil)
	a.Close()

	a.Notify(context.Background(), domain.TriggerAuditFailed, testInvoice())
	a.Wait()

	assert.Empty(t, gw.Sent())
}

func TestSMTPGateway_RefusesWhenUnconfigured(t *testing.T) {
	g := NewSMTPGateway(config.EmailSettings{}, nil)
	assert.False(t, g.Send(context.Background(), "a@x.io", "s", "b"))
}

func TestSMTPGateway_Send(t *testing.T) {
	g := NewSMTPGateway(config.EmailSettings{Host: "mail.local", Port: 2525, From: "audit@x.io"}, nil)
	var gotAddr string
	var gotMsg []byte
	g.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		return nil
	}

	require.True(t, g.Send(context.Background(), "ops@x.io", "Hello", "line1\nline2"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Contains(t, string(gotMsg), "To: ops@x.io\r\n")
	assert.Contains(t, string(gotMsg), "Subject: Hello\r\n")
	assert.Contains(t, string(gotMsg), "line1\r\nline2")
}

func TestSMTPGateway_TransportFailureReturnsFalse(t *testing.T) {
	g := NewSMTPGateway(config.EmailSettings{Host: "mail.local", Port: 25, From: "audit@x.io"}, nil)
	g.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	assert.False(t, g.Send(context.Background(), "ops@x.io", "s", "b"))
}

func TestSMTPGateway_RefusesHeaderInjection(t *testing.T) {
	g := NewSMTPGateway(config.EmailSettings{Host: "mail.local", Port: 25, From: "audit@x.io"}, nil)
	g.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not send")
		return nil
	}
	assert.False(t, g.Send(context.Background(), "ops@x.io\r\nBcc: x@y.z", "s", "b"))
}

func TestGatewayFromSettings(t *testing.T) {
	assert.IsType(t, &LogGateway{}, GatewayFromSettings(config.EmailSettings{}, nil))
	assert.IsType(t, &SMTPGateway{}, GatewayFromSettings(config.EmailSettings{Host: "mail.local"}, nil))
}
