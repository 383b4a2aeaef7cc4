package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one row of an invoice's item table
type LineItem struct {
	Name      string `json:"name"`
	Spec      string `json:"spec"`
	Unit      string `json:"unit,omitempty"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
	TaxRate   string `json:"tax_rate"` // e.g. "13%"
}

// InvoiceResult is the structured invoice returned by the OCR service.
// Amounts are decimal strings exactly as transported; any field may be empty
// because the service only returns what it recognized with confidence.
type InvoiceResult struct {
	// Basic information
	InvoiceType   string `json:"invoice_type"`
	Title         string `json:"title"`
	InvoiceCode   string `json:"invoice_code"`
	InvoiceNumber string `json:"invoice_number"`
	CheckCode     string `json:"check_code"`
	InvoiceDate   string `json:"invoice_date"`

	// Amounts
	TotalAmount      string `json:"total_amount"`
	AmountWithoutTax string `json:"amount_without_tax"`
	TaxAmount        string `json:"tax_amount"`
	AmountInWords    string `json:"amount_in_words"`

	// Parties
	SellerName     string `json:"seller_name"`
	SellerTaxID    string `json:"seller_tax_id"`
	PurchaserName  string `json:"purchaser_name"`
	PurchaserTaxID string `json:"purchaser_tax_id"`

	Items []LineItem `json:"items"`

	// Other
	SpecialMark string `json:"special_mark"`
	Remark      string `json:"remark"`
}

// Field is a single named scalar value of an InvoiceResult
type Field struct {
	Name  string
	Value string
}

// Fields returns the scalar fields in declaration order, without the items
func (r *InvoiceResult) Fields() []Field {
	return append(r.headFields(), r.tailFields()...)
}

// headFields are the fields declared before items
func (r *InvoiceResult) headFields() []Field {
	return []Field{
		{"invoice_type", r.InvoiceType},
		{"title", r.Title},
		{"invoice_code", r.InvoiceCode},
		{"invoice_number", r.InvoiceNumber},
		{"check_code", r.CheckCode},
		{"invoice_date", r.InvoiceDate},
		{"total_amount", r.TotalAmount},
		{"amount_without_tax", r.AmountWithoutTax},
		{"tax_amount", r.TaxAmount},
		{"amount_in_words", r.AmountInWords},
		{"seller_name", r.SellerName},
		{"seller_tax_id", r.SellerTaxID},
		{"purchaser_name", r.PurchaserName},
		{"purchaser_tax_id", r.PurchaserTaxID},
	}
}

func (r *InvoiceResult) tailFields() []Field {
	return []Field{
		{"special_mark", r.SpecialMark},
		{"remark", r.Remark},
	}
}

// Amount parses a decimal string field. It returns false for empty or
// unparseable text so callers can fall back to showing the raw value.
func Amount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders a decimal string as a yuan amount with two decimals,
// or returns the text untouched when it is not a number.
func FormatAmount(s string) string {
	d, ok := Amount(s)
	if !ok {
		return s
	}
	return "¥" + d.StringFixed(2)
}
