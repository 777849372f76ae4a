package format

import (
	"fmt"
	"html"
)

// EscapeHTML escapes user-provided text before embedding it into
// HTML-formatted Telegram messages.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Amount renders a monetary value rounded to two decimal places.
func Amount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
