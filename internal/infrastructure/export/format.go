// Package export renders bills and orders as PDF documents and Excel workbooks.
package export

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var (
	titleCaser = cases.Title(language.English)
	printer    = message.NewPrinter(language.English)
)

// Label turns an enum value such as PARTIAL_PAID into "Partial Paid"
func Label(v string) string {
	if v == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(v, "_", " ")))
}

// Money formats an amount with thousands separators and two decimals
func Money(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func formatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeLayout)
}
