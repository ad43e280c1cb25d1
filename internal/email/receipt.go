package email

import (
	"fmt"
	"strings"
)

// Receipt is the content of an order receipt email.
type Receipt struct {
	OrderID  string
	Items    []ReceiptItem
	Total    int64
	Currency string
}

// ReceiptItem is a single line of a Receipt.
type ReceiptItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
}

// Text renders the plain-text body of the Receipt.
func (r Receipt) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order!\n\nOrder: %s\n\n", r.OrderID)
	for _, item := range r.Items {
		fmt.Fprintf(
			&b,
			"%dx %s  %s\n",
			item.Quantity,
			item.Name,
			FormatAmount(item.Subtotal, r.Currency),
		)
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", FormatAmount(r.Total, r.Currency))
	return b.String()
}

// FormatAmount formats a major unit amount with its currency code.
func FormatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d.00 %s", amount, strings.ToUpper(currency))
}
