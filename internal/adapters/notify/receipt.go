package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/keighl/postmark"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
)

// PostmarkReceipts emails a delivery receipt to the customer.
type PostmarkReceipts struct {
	client *postmark.Client
	from   string
	log    *slog.Logger
}

func NewPostmarkReceipts(serverToken, from string, log *slog.Logger) *PostmarkReceipts {
	return &PostmarkReceipts{
		client: postmark.NewClient(serverToken, ""),
		from:   from,
		log:    log,
	}
}

func (r *PostmarkReceipts) SendReceipt(ctx context.Context, o *domain.Order) (err error) {
	defer obs.Time(ctx, r.log, "notify.receipt")(&err)

	if o.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", o.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text, htmlBody := receiptBodies(o)
	resp, err := r.client.SendEmail(postmark.Email{
		From:     r.from,
		To:       o.CustomerEmail,
		Subject:  fmt.Sprintf("Receipt for order #%s", o.ID),
		HtmlBody: htmlBody,
		TextBody: text,
		Tag:      "delivery-receipt",
	})
	if err != nil {
		return fmt.Errorf("send receipt for order %s: %w", o.ID, err)
	}

	r.log.Debug("receipt sent", "order_id", o.ID, "message_id", resp.MessageID)
	return nil
}

func receiptBodies(o *domain.Order) (text, htmlBody string) {
	var t, h strings.Builder

	fmt.Fprintf(&t, "Order #%s delivered to %s\n\n", o.ID, o.Address)
	fmt.Fprintf(&h, "<p>Order <strong>#%s</strong> delivered to %s</p><ul>", html.EscapeString(o.ID), html.EscapeString(o.Address))
	for _, it := range o.Items {
		fmt.Fprintf(&t, "%d x %s\n", it.Quantity, it.Name)
		fmt.Fprintf(&h, "<li>%d &times; %s</li>", it.Quantity, html.EscapeString(it.Name))
	}
	fmt.Fprintf(&t, "\nTotal: %.2f (%s, %s)\n", o.TotalAmount, o.PaymentMethod, o.PaymentStatus)
	fmt.Fprintf(&h, "</ul><p>Total: <strong>%.2f</strong> (%s, %s)</p>", o.TotalAmount, o.PaymentMethod, o.PaymentStatus)

	return t.String(), h.String()
}
