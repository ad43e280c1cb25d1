package email

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

func NewMailgunEmailer(mg *mailgun.MailgunImpl, host string) *MailgunEmailer {
	return &MailgunEmailer{
		mg:   mg,
		host: host,
	}
}

// MailgunEmailer is responsible for mailgun API interactions.
type MailgunEmailer struct {
	mg   *mailgun.MailgunImpl
	host string
}

const (
	resetPassword = "reset_password"
	orderReceipt  = "order_receipt"
)

// SendPasswordReset sends a reset_password email to the "to" email specified.
// Mailgun templates are used, acquire access to the Mailgun UI to learn more.
func (e MailgunEmailer) SendPasswordReset(ctx context.Context, to, hash string) error {
	msg := e.mg.NewMessage(e.sender("password-reset"), "Reset your password", "", to)
	msg.SetTemplate(resetPassword)
	if err := msg.AddTemplateVariable(
		"resetPasswordURL",
		fmt.Sprintf("%s/reset-password?hash=%s", e.host, hash),
	); err != nil {
		return err
	}

	return e.send(ctx, msg)
}

// SendOrderReceipt sends an order_receipt email to the "to" email specified.
func (e MailgunEmailer) SendOrderReceipt(ctx context.Context, to string, receipt Receipt) error {
	msg := e.mg.NewMessage(
		e.sender("orders"),
		fmt.Sprintf("Your order %s", receipt.OrderID),
		receipt.Text(),
		to,
	)
	msg.SetTemplate(orderReceipt)
	for name, val := range map[string]interface{}{
		"orderID":  receipt.OrderID,
		"items":    receipt.Items,
		"total":    FormatAmount(receipt.Total, receipt.Currency),
		"currency": receipt.Currency,
	} {
		if err := msg.AddTemplateVariable(name, val); err != nil {
			return err
		}
	}

	return e.send(ctx, msg)
}

// --- private ---

func (e MailgunEmailer) send(ctx context.Context, msg *mailgun.Message) error {
	if _, _, err := e.mg.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email; error: %w", err)
	}
	return nil
}

func (e MailgunEmailer) sender(local string) string {
	return fmt.Sprintf("%s@%s", local, e.mg.Domain())
}
