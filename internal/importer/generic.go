package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Built-in dialect names.
const (
	FormatGeneric = "generic"
	FormatBank    = "bank"
)

// Options configures a GenericParser.
type Options struct {
	Format          string
	DefaultCurrency string
	PreferTab       bool // tab wins delimiter ties
}

// GenericParser parses CSV exports of unknown origin by detecting the
// delimiter and mapping header names to column roles.
type GenericParser struct {
	opts Options
}

// NewGenericParser creates a parser. An empty Format means FormatGeneric.
func NewGenericParser(opts Options) *GenericParser {
	if opts.Format == "" {
		opts.Format = FormatGeneric
	}
	return &GenericParser{opts: opts}
}

// Format returns the dialect name.
func (p *GenericParser) Format() string { return p.opts.Format }

// Parse converts data into parsed transactions. Rows are independent: a bad
// row is recorded in Result.Errors and parsing continues. Only a
// *StructuralError is ever returned as error.
func (p *GenericParser) Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &StructuralError{Reason: "file is empty"}
	}

	defaultCurrency, err := money.ParseCurrency(p.opts.DefaultCurrency)
	if err != nil {
		return nil, &StructuralError{Reason: fmt.Sprintf("default currency: %v", err)}
	}

	delim := DetectDelimiter(data, p.opts.PreferTab)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &StructuralError{Reason: fmt.Sprintf("reading header: %v", err)}
	}
	cols, err := DetectColumns(header)
	if err != nil {
		return nil, err
	}

	res := &Result{Delimiter: delim, Header: header, Columns: cols}
	lastLine, _ := cr.FieldPos(0)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := errorLine(err, lastLine)
			lastLine = line
			res.addError(RowError{Row: line, Message: fmt.Sprintf("malformed CSV: %v", err)})
			continue
		}
		line, _ := cr.FieldPos(0)
		lastLine = line
		if blank(record) {
			continue
		}

		raw := rawData(header, record)
		txn, rowErr := p.parseRow(record, cols, defaultCurrency)
		if rowErr != nil {
			rowErr.Row = line
			rowErr.RawData = raw
			res.addError(*rowErr)
			continue
		}
		txn.Row = line
		txn.RawData = raw
		res.Transactions = append(res.Transactions, txn)
		res.Summary.Total++
		res.Summary.Valid++
	}
	return res, nil
}

// errorLine is the 1-based file line of a failed read. Errors that carry no
// position are placed on the line after the last one read.
func errorLine(err error, lastLine int) int {
	var pe *csv.ParseError
	if errors.As(err, &pe) && pe.StartLine > 0 {
		return pe.StartLine
	}
	return lastLine + 1
}

func (r *Result) addError(e RowError) {
	r.Errors = append(r.Errors, e)
	r.Summary.Total++
	r.Summary.Errored++
}

func (p *GenericParser) parseRow(record []string, cols Columns, defaultCurrency money.Currency) (model.ParsedTransaction, *RowError) {
	cell := func(role Role) string {
		i, ok := cols.Index(role)
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for _, role := range requiredRoles {
		if cell(role) == "" {
			return model.ParsedTransaction{}, &RowError{Field: string(role), Message: "missing " + string(role)}
		}
	}

	date, err := ParseDate(cell(RoleDate))
	if err != nil {
		return model.ParsedTransaction{}, &RowError{Field: string(RoleDate), Message: err.Error()}
	}

	amount, err := ParseAmount(cell(RoleAmount))
	if err != nil {
		return model.ParsedTransaction{}, &RowError{Field: string(RoleAmount), Message: err.Error()}
	}

	currency := defaultCurrency
	if code := cell(RoleCurrency); code != "" {
		currency, err = money.ParseCurrency(code)
		if err != nil {
			return model.ParsedTransaction{}, &RowError{Field: string(RoleCurrency), Message: err.Error()}
		}
	}
	m, err := money.New(amount, currency)
	if err != nil {
		return model.ParsedTransaction{}, &RowError{Field: string(RoleAmount), Message: err.Error()}
	}

	return model.ParsedTransaction{
		Date:             date,
		Amount:           m,
		Description:      cell(RoleDescription),
		PaymentReference: cell(RoleReference),
		Counterparty:     cell(RoleCounterparty),
	}, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// rawData keys cells by their original header; extra cells get "column_N".
func rawData(header, record []string) map[string]string {
	raw := make(map[string]string, len(record))
	for i, v := range record {
		key := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			key = strings.TrimSpace(header[i])
		}
		raw[key] = v
	}
	return raw
}
