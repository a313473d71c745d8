package notify

import (
	"errors"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Channel names used in reports and metrics.
const (
	ChannelInApp    = "in_app"
	ChannelEmail    = "email"
	ChannelCourtesy = "courtesy_email"
)

// ErrNotSent is recorded when a gateway reports a message as not sent.
var ErrNotSent = errors.New("gateway did not send")

// Delivery is one attempted send.
type Delivery struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	OK        bool   `json:"ok"`
}

// Report is the observable result of one dispatch.
type Report struct {
	Trigger    domain.Trigger `json:"trigger"`
	InvoiceID  string         `json:"invoiceId"`
	Deliveries []Delivery     `json:"deliveries"`
	// Failures holds one *domain.NotificationDispatchError per failed
	// delivery.
	Failures []error `json:"-"`
}

// Attempted returns the number of deliveries attempted on channel.
func (r Report) Attempted(channel string) int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Channel == channel {
			n++
		}
	}
	return n
}

// Err joins every failure, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Failures...)
}
