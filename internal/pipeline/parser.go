package pipeline

// parser.go turns raw CSV bytes into the run's header list and rows.
//
// Tokenizing follows RFC 4180 with strict quoting: every record the reader
// rejects becomes a diagnostic, and any diagnostic fails the whole parse
// with a ParseError. Cell values are never rewritten — what the tokenizer
// yields is exactly what grouping and serialization see, so unmodified
// values round-trip byte for byte.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

// MaxParseDiagnostics caps how many tokenizer complaints a ParseError carries.
var MaxParseDiagnostics = 20

// Parse reads CSV text and returns the header list plus all data rows.
//
// The first non-empty record is the header; subsequent records map to it
// positionally. Fully empty records are skipped wherever they appear. Rows
// are not padded or truncated here — short rows simply read missing cells
// as empty, and cells beyond the header are dropped at serialization.
//
// A nil header with a nil error means the input held no records at all.
func Parse(data []byte) (Header, []Row, error) {
	data = sanitizeUTF8(stripBOM(data))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var (
		header Header
		rows   []Row
		diags  []Diagnostic
	)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, nil, &ResourceError{Op: "read", Err: err}
			}
			if len(diags) < MaxParseDiagnostics {
				diags = append(diags, Diagnostic{Line: perr.Line, Message: perr.Err.Error()})
			}
			continue
		}

		if isEmptyRecord(record) {
			continue
		}
		if header == nil {
			header = Header(record)
			continue
		}
		rows = append(rows, Row(record))
	}

	if len(diags) > 0 {
		return nil, nil, &ParseError{Diags: diags}
	}
	return header, rows, nil
}
