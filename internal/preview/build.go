package preview

import (
	"sort"
	"strings"

	"github.com/cleared-dev/tally/internal/dedup"
	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/model"
)

// buildRows merges parsed transactions and row errors into one list in
// source line order. hashes, batch and existing are indexed like
// res.Transactions. A row is a duplicate if either the in-batch detector
// or the stored-hash lookup says so.
func buildRows(res *importer.Result, hashes []string, batch []dedup.BatchVerdict, existing []*model.ExistingRef) []Row {
	type entry struct {
		line int
		txn  int // index into res.Transactions, or -1
		err  int // index into res.Errors, or -1
	}
	entries := make([]entry, 0, len(res.Transactions)+len(res.Errors))
	for i, t := range res.Transactions {
		entries = append(entries, entry{line: t.Row, txn: i, err: -1})
	}
	for i, e := range res.Errors {
		entries = append(entries, entry{line: e.Row, txn: -1, err: i})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].line < entries[j].line })

	rowIDs := make([]string, len(res.Transactions))
	for seq, e := range entries {
		if e.txn >= 0 {
			rowIDs[e.txn] = id.FormatRowID(seq + 1)
		}
	}

	rows := make([]Row, 0, len(entries))
	for seq, e := range entries {
		rowID := id.FormatRowID(seq + 1)

		if e.err >= 0 {
			re := res.Errors[e.err]
			rows = append(rows, Row{
				ID:           rowID,
				Line:         re.Row,
				Status:       StatusError,
				Error:        re.Message,
				ErrorField:   re.Field,
				Description:  rawDescription(res, re.RawData),
				OriginalData: re.RawData,
			})
			continue
		}

		t := res.Transactions[e.txn]
		r := Row{
			ID:               rowID,
			Line:             t.Row,
			Date:             t.Date,
			Description:      t.Description,
			Amount:           t.Amount,
			PaymentReference: t.PaymentReference,
			Counterparty:     t.Counterparty,
			Status:           StatusNew,
			Selected:         true,
			OriginalData:     t.RawData,
			Hash:             hashes[e.txn],
		}

		switch {
		case existing[e.txn] != nil:
			r.IsDuplicate = true
			r.DuplicateOf = existing[e.txn].ID
			r.DuplicateReason = dedup.ReasonExistingTransaction
		case batch[e.txn].IsDuplicate:
			r.IsDuplicate = true
			r.DuplicateOf = rowIDs[batch[e.txn].DuplicateOf]
			r.DuplicateReason = batch[e.txn].Reason
		}
		if r.IsDuplicate {
			r.Status = StatusDuplicate
			r.Selected = false
		}
		rows = append(rows, r)
	}
	return rows
}

// rawDescription returns what the bank wrote in the description column of
// a rejected row, if anything.
func rawDescription(res *importer.Result, raw map[string]string) string {
	i, ok := res.Columns.Index(importer.RoleDescription)
	if !ok || i >= len(res.Header) {
		return ""
	}
	return strings.TrimSpace(raw[strings.TrimSpace(res.Header[i])])
}
