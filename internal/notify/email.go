package notify

import (
	"context"
	"fmt"
	"log/slog"

	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
)

// Email sends order confirmations through SendGrid. Delivery is best-effort:
// a failure is logged and swallowed, never surfaced to the placement flow.
type Email struct {
	client *sendgrid.Client
	from   *mail.Email
	log    *slog.Logger
}

func NewEmail(apiKey, from string, log *slog.Logger) *Email {
	if log == nil {
		log = slog.Default()
	}
	return &Email{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("PawMart Orders", from),
		log:    log,
	}
}

func (e *Email) OrderConfirmation(ctx context.Context, to, orderRef string, total decimal.Decimal) {
	subject := "Order confirmation"
	body := fmt.Sprintf("Thanks! Your order %s for a total of %s has been received.",
		orderRef, total.StringFixed(2))
	msg := mail.NewSingleEmail(e.from, subject, mail.NewEmail("", to), body, "")

	res, err := e.client.SendWithContext(ctx, msg)
	if err != nil {
		e.log.Warn("order confirmation email failed", "to", to, "error", err)
		return
	}
	if res.StatusCode >= 300 {
		e.log.Warn("order confirmation email rejected", "to", to, "status", res.StatusCode)
	}
}
