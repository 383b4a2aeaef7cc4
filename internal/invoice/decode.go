package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses an OCR data object into an InvoiceResult. Decoding is lenient:
// unknown keys are ignored, missing keys stay empty, and scalar values of the
// wrong JSON type are kept as their literal text. Only a payload that is not
// a JSON object (or null) is an error.
func Decode(data []byte) (*InvoiceResult, error) {
	var r InvoiceResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding invoice: %w", err)
	}
	return &r, nil
}

// UnmarshalJSON implements lenient decoding for InvoiceResult
func (r *InvoiceResult) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	*r = InvoiceResult{}
	targets := map[string]*string{
		"invoice_type":       &r.InvoiceType,
		"title":              &r.Title,
		"invoice_code":       &r.InvoiceCode,
		"invoice_number":     &r.InvoiceNumber,
		"check_code":         &r.CheckCode,
		"invoice_date":       &r.InvoiceDate,
		"total_amount":       &r.TotalAmount,
		"amount_without_tax": &r.AmountWithoutTax,
		"tax_amount":         &r.TaxAmount,
		"amount_in_words":    &r.AmountInWords,
		"seller_name":        &r.SellerName,
		"seller_tax_id":      &r.SellerTaxID,
		"purchaser_name":     &r.PurchaserName,
		"purchaser_tax_id":   &r.PurchaserTaxID,
		"special_mark":       &r.SpecialMark,
		"remark":             &r.Remark,
	}
	for key, dst := range targets {
		*dst = lenientString(obj[key])
	}
	r.Items = lenientItems(obj["items"])
	return nil
}

// UnmarshalJSON implements lenient decoding for LineItem
func (li *LineItem) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	*li = LineItem{
		Name:      lenientString(obj["name"]),
		Spec:      lenientString(obj["spec"]),
		Unit:      lenientString(obj["unit"]),
		Quantity:  lenientString(obj["quantity"]),
		UnitPrice: lenientString(obj["unit_price"]),
		Amount:    lenientString(obj["amount"]),
		TaxRate:   lenientString(obj["tax_rate"]),
	}
	return nil
}

// decodeObject splits a JSON object into raw members. null yields an empty map.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return map[string]json.RawMessage{}, nil
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("expected JSON object, got %q", firstByte(data))
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("unmarshaling object: %w", err)
	}
	return obj, nil
}

// lenientString returns strings as-is and numbers or booleans as their
// literal text, so "100.00" and 100.00 decode identically without going
// through float64. Anything else is empty.
func lenientString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		// number, true or false
		return string(raw)
	}
}

// lenientItems decodes the items array, skipping entries that are not objects.
// Order of the remaining entries is preserved.
func lenientItems(raw json.RawMessage) []LineItem {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}

	items := make([]LineItem, 0, len(elems))
	for _, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var item LineItem
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func firstByte(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return string(data[:1])
}
