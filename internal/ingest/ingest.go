// Package ingest adapts external source formats (CSV/TSV, JSON lines,
// XLSX) into RawRecords. The engine itself is agnostic to source format;
// adapters only map columns to the canonical record fields and attach the
// source file + line provenance pointers.
package ingest

import (
	"context"
	"strings"

	"github.com/vectis-research/sinotrace/internal/model"
)

// RecordFunc receives each successfully parsed record. Returning an error
// aborts the source.
type RecordFunc func(rec model.RawRecord) error

// Source is one input file yielding RawRecords.
type Source interface {
	// ID is the stable source identifier used in provenance and the
	// checkpoint file.
	ID() string
	// Each streams records to fn. Malformed rows are skipped and counted,
	// never fatal; skipped reports how many were dropped.
	Each(ctx context.Context, fn RecordFunc) (skipped int, err error)
}

// headerAliases maps common source column names onto canonical record
// fields. Lookup is case-insensitive with spaces and dashes folded to
// underscores.
var headerAliases = map[string]string{
	"recipient_name":  model.FieldRecipientName,
	"recipient":       model.FieldRecipientName,
	"awardee":         model.FieldRecipientName,
	"awardee_name":    model.FieldRecipientName,
	"contractor":      model.FieldRecipientName,
	"name":            model.FieldRecipientName,
	"vendor_name":     model.FieldVendorName,
	"vendor":          model.FieldVendorName,
	"supplier":        model.FieldVendorName,
	"supplier_name":   model.FieldVendorName,
	"description":     model.FieldDescription,
	"award_description": model.FieldDescription,
	"title":           model.FieldDescription,
	"country":         model.FieldCountry,
	"country_code":    model.FieldCountry,
	"country_name":    model.FieldCountry,
	"city":            model.FieldCity,
	"city_name":       model.FieldCity,
	"address":         model.FieldAddress,
	"street_address":  model.FieldAddress,
	"postal_code":     model.FieldPostalCode,
	"zip":             model.FieldPostalCode,
	"zip_code":        model.FieldPostalCode,
	"phone":           model.FieldPhone,
	"phone_number":    model.FieldPhone,
	"date":            model.FieldDate,
	"award_date":      model.FieldDate,
	"action_date":     model.FieldDate,
	"record_type":     model.FieldRecordType,
	"award_type":      model.FieldRecordType,
	"type":            model.FieldRecordType,
}

// canonicalField resolves a source column header to a canonical field
// name, or "" when the column is unrecognized.
func canonicalField(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return headerAliases[h]
}

// rowToRecord builds a RawRecord from a header-mapped row. Blank cells
// stay unset: an empty string in the source is not evidence of anything.
func rowToRecord(file string, line int, fields []string, row []string) model.RawRecord {
	rec := model.RawRecord{SourceFile: file, SourceLine: line}
	for i, canon := range fields {
		if canon == "" || i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		rec.SetField(canon, v)
	}
	return rec
}

// mapHeader resolves every column of a header row, returning the
// canonical name (or "") per column and how many resolved.
func mapHeader(header []string) (fields []string, mapped int) {
	fields = make([]string, len(header))
	for i, h := range header {
		fields[i] = canonicalField(h)
		if fields[i] != "" {
			mapped++
		}
	}
	return fields, mapped
}
