// Package actionlog keeps the append-only log of user import decisions
// that feeds the rule miner.
package actionlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Header is the CSV header for logs/actions.csv.
const Header = "timestamp,transaction_id,action,category_id,account_id,date,amount,currency,description,counterparty,payment_reference"

const (
	numFields      = 11
	logDir         = "logs"
	logFile        = "logs/actions.csv"
	colTimestamp   = 0
	colTxnID       = 1
	colAction      = 2
	colCategoryID  = 3
	colAccountID   = 4
	colDate        = 5
	colAmount      = 6
	colCurrency    = 7
	colDescription = 8
	colParty       = 9
	colReference   = 10
)

// MarshalAction converts a UserAction to a CSV row.
func MarshalAction(a model.UserAction) []string {
	t := a.Transaction
	row := make([]string, numFields)
	row[colTimestamp] = a.Timestamp.UTC().Format(time.RFC3339)
	row[colTxnID] = a.TransactionID
	row[colAction] = string(a.Action)
	row[colCategoryID] = a.CategoryID
	row[colAccountID] = t.AccountID
	row[colDate] = t.Date.String()
	row[colAmount] = t.Amount.StringFixed()
	row[colCurrency] = string(t.Amount.Currency())
	row[colDescription] = t.Description
	row[colParty] = t.Counterparty
	row[colReference] = t.PaymentReference
	return row
}

// UnmarshalAction converts a CSV row to a UserAction.
func UnmarshalAction(record []string) (model.UserAction, error) {
	if len(record) != numFields {
		return model.UserAction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return model.UserAction{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	action, err := model.ParseActionType(record[colAction])
	if err != nil {
		return model.UserAction{}, err
	}
	date, err := money.ParseDate(record[colDate])
	if err != nil {
		return model.UserAction{}, err
	}
	amount, err := money.Parse(record[colAmount], money.Currency(record[colCurrency]))
	if err != nil {
		return model.UserAction{}, err
	}

	return model.UserAction{
		TransactionID: record[colTxnID],
		Action:        action,
		CategoryID:    record[colCategoryID],
		Timestamp:     ts,
		Transaction: model.Transaction{
			ID:               record[colTxnID],
			AccountID:        record[colAccountID],
			Date:             date,
			Amount:           amount,
			Description:      record[colDescription],
			Counterparty:     record[colParty],
			PaymentReference: record[colReference],
			CategoryID:       record[colCategoryID],
			Hidden:           action == model.ActionOmit,
		},
	}, nil
}

// Append writes actions to <repoRoot>/logs/actions.csv, creating the file and header if needed.
func Append(repoRoot string, actions []model.UserAction) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening action log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, a := range actions {
		if err := cw.Write(MarshalAction(a)); err != nil {
			return fmt.Errorf("writing action %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all actions from <repoRoot>/logs/actions.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]model.UserAction, error) {
	f, err := os.Open(filepath.Join(repoRoot, logFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening action log: %w", err)
	}
	defer f.Close()

	return readActions(f)
}

func readActions(r io.Reader) ([]model.UserAction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading action log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var out []model.UserAction
	for i, rec := range records[1:] {
		a, err := UnmarshalAction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Log records actions under a project root.
type Log struct {
	root string
}

// New creates a Log rooted at repoRoot.
func New(repoRoot string) *Log {
	return &Log{root: repoRoot}
}

// Record appends actions to the log.
func (l *Log) Record(actions []model.UserAction) error {
	return Append(l.root, actions)
}

// All reads every recorded action.
func (l *Log) All() ([]model.UserAction, error) {
	return Read(l.root)
}
