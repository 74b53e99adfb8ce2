package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Header is the CSV header for transactions.csv.
const Header = "transaction_id,date,account_id,amount,currency,description,counterparty,payment_reference,category_id,hidden,hash"

const (
	numFields   = 11
	colID       = 0
	colDate     = 1
	colAcctID   = 2
	colAmount   = 3
	colCurrency = 4
	colDesc     = 5
	colCparty   = 6
	colRef      = 7
	colCategory = 8
	colHidden   = 9
	colHash     = 10
)

// ReadTransactions reads all rows from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// WriteTransactions writes a header and txns.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colDate] = t.Date.String()
	row[colAcctID] = t.AccountID
	row[colAmount] = t.Amount.StringFixed()
	row[colCurrency] = string(t.Amount.Currency())
	row[colDesc] = t.Description
	row[colCparty] = t.Counterparty
	row[colRef] = t.PaymentReference
	row[colCategory] = t.CategoryID
	row[colHidden] = strconv.FormatBool(t.Hidden)
	row[colHash] = t.Hash
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := money.ParseDate(record[colDate])
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := money.Parse(record[colAmount], money.Currency(record[colCurrency]))
	if err != nil {
		return model.Transaction{}, err
	}
	hidden := false
	if record[colHidden] != "" {
		hidden, err = strconv.ParseBool(record[colHidden])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing hidden %q: %w", record[colHidden], err)
		}
	}

	return model.Transaction{
		ID:               record[colID],
		AccountID:        record[colAcctID],
		Date:             date,
		Amount:           amount,
		Description:      record[colDesc],
		Counterparty:     record[colCparty],
		PaymentReference: record[colRef],
		CategoryID:       record[colCategory],
		Hidden:           hidden,
		Hash:             record[colHash],
	}, nil
}
