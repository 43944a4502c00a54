// Package model defines the record types flowing through the detection
// engine: raw input records, extracted signals, scored and classified
// records, and their provenance.
package model

import (
	"fmt"
	"strings"
)

// Field is an optional text field of a RawRecord. Absent fields are
// explicit: Set is false and Value is meaningless. Collectors must never
// substitute an empty string for a missing value.
type Field struct {
	Value string `json:"value,omitempty"`
	Set   bool   `json:"set"`
}

// String returns a set Field holding v.
func String(v string) Field {
	return Field{Value: v, Set: true}
}

// Unset returns an absent Field.
func Unset() Field {
	return Field{}
}

// Get returns the field value and whether it is set.
func (f Field) Get() (string, bool) {
	if !f.Set {
		return "", false
	}
	return f.Value, true
}

// Canonical RawRecord field names, used by source adapters, canonical
// serialization and the CSV header mapping. Order is fixed: the content
// hash depends on it.
const (
	FieldRecipientName = "recipient_name"
	FieldVendorName    = "vendor_name"
	FieldDescription   = "description"
	FieldCountry       = "country"
	FieldCity          = "city"
	FieldAddress       = "address"
	FieldPostalCode    = "postal_code"
	FieldPhone         = "phone"
	FieldDate          = "date"
	FieldRecordType    = "record_type"
)

// RawRecord is a single input record as produced by an external collector.
// It is immutable once created; the engine only reads it.
type RawRecord struct {
	// SourceFile and SourceLine locate the record in its source.
	SourceFile string `json:"source_file"`
	SourceLine int    `json:"source_line"`

	RecipientName Field `json:"recipient_name"`
	VendorName    Field `json:"vendor_name"`
	Description   Field `json:"description"`
	Country       Field `json:"country"`
	City          Field `json:"city"`
	Address       Field `json:"address"`
	PostalCode    Field `json:"postal_code"`
	Phone         Field `json:"phone"`
	Date          Field `json:"date"`
	RecordType    Field `json:"record_type"`
}

// NamedField pairs a canonical field name with its value.
type NamedField struct {
	Name  string
	Value string
}

// NameFields returns the set name-bearing fields (recipient, vendor) in
// declaration order.
func (r *RawRecord) NameFields() []NamedField {
	var out []NamedField
	if v, ok := r.RecipientName.Get(); ok {
		out = append(out, NamedField{FieldRecipientName, v})
	}
	if v, ok := r.VendorName.Get(); ok {
		out = append(out, NamedField{FieldVendorName, v})
	}
	return out
}

// SetFields returns every set field in canonical order.
func (r *RawRecord) SetFields() []NamedField {
	ordered := []struct {
		name string
		f    Field
	}{
		{FieldRecipientName, r.RecipientName},
		{FieldVendorName, r.VendorName},
		{FieldDescription, r.Description},
		{FieldCountry, r.Country},
		{FieldCity, r.City},
		{FieldAddress, r.Address},
		{FieldPostalCode, r.PostalCode},
		{FieldPhone, r.Phone},
		{FieldDate, r.Date},
		{FieldRecordType, r.RecordType},
	}
	var out []NamedField
	for _, e := range ordered {
		if v, ok := e.f.Get(); ok {
			out = append(out, NamedField{e.name, v})
		}
	}
	return out
}

// SetField assigns a value to the canonical field named name.
// Unknown names are ignored and reported to the caller.
func (r *RawRecord) SetField(name, value string) bool {
	switch name {
	case FieldRecipientName:
		r.RecipientName = String(value)
	case FieldVendorName:
		r.VendorName = String(value)
	case FieldDescription:
		r.Description = String(value)
	case FieldCountry:
		r.Country = String(value)
	case FieldCity:
		r.City = String(value)
	case FieldAddress:
		r.Address = String(value)
	case FieldPostalCode:
		r.PostalCode = String(value)
	case FieldPhone:
		r.Phone = String(value)
	case FieldDate:
		r.Date = String(value)
	case FieldRecordType:
		r.RecordType = String(value)
	default:
		return false
	}
	return true
}

// BestName returns the preferred display name: recipient, then vendor.
func (r *RawRecord) BestName() (string, bool) {
	if v, ok := r.RecipientName.Get(); ok {
		return v, true
	}
	return r.VendorName.Get()
}

// CanonicalBytes serializes the set fields in canonical order for content
// hashing. Unset fields are omitted entirely so "absent" and "empty" hash
// differently from each other and from any real value.
func (r *RawRecord) CanonicalBytes() []byte {
	var b strings.Builder
	for _, f := range r.SetFields() {
		fmt.Fprintf(&b, "%s\x1f%s\x1e", f.Name, f.Value)
	}
	return []byte(b.String())
}
