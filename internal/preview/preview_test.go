package preview

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/money"
)

func testRow(t *testing.T, id string, status Status, amount, desc string) Row {
	t.Helper()
	r := Row{ID: id, Status: status, Description: desc}
	if status == StatusError {
		r.Error = "unrecognized date"
		return r
	}
	m, err := money.Parse(amount, "EUR")
	require.NoError(t, err)
	r.Amount = m
	r.Date = money.NewDate(2025, 9, 1)
	r.Selected = status == StatusNew
	r.IsDuplicate = status == StatusDuplicate
	return r
}

func newTestPreview(t *testing.T, rows ...Row) *Preview {
	t.Helper()
	p, err := New("p1", "bank.csv", "checking", time.Now(), rows)
	require.NoError(t, err)
	return p
}

func standardPreview(t *testing.T) *Preview {
	return newTestPreview(t,
		testRow(t, "row-0001", StatusNew, "100.50", "Salary"),
		testRow(t, "row-0002", StatusDuplicate, "-25.30", "Groceries"),
		testRow(t, "row-0003", StatusError, "", ""),
		testRow(t, "row-0004", StatusNew, "-9.99", "Netflix"),
	)
}

func TestNew_Validation(t *testing.T) {
	now := time.Now()
	cases := map[string]struct {
		file, account string
	}{
		"empty file name": {"", "checking"},
		"not csv":         {"bank.xlsx", "checking"},
		"empty account":   {"bank.csv", "  "},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			_, err := New("p", tc.file, tc.account, now, nil)
			assert.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}

	_, err := New("p", "BANK.CSV", "checking", now, []Row{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInitialSelection(t *testing.T) {
	p := standardPreview(t)
	s := p.Summary()
	assert.Equal(t, 4, s.TotalTransactions)
	assert.Equal(t, 2, s.New)
	assert.Equal(t, 1, s.Duplicates)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 2, s.Selected)
	assert.Equal(t, 2, s.Importable)
}

func TestSelect_UnknownAndErrorRows(t *testing.T) {
	p := standardPreview(t)

	err := p.Select("row-9999")
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "row-9999", nf.ID)

	assert.ErrorIs(t, p.Select("row-0003"), ErrValidation)
	assert.ErrorIs(t, p.Deselect("row-0003"), ErrValidation)
	r, _ := p.Row("row-0003")
	assert.False(t, r.Selected)
}

func TestSelectDeselect(t *testing.T) {
	p := standardPreview(t)

	require.NoError(t, p.Select("row-0002"))
	r, _ := p.Row("row-0002")
	assert.True(t, r.Selected)
	assert.Equal(t, StatusDuplicate, r.Status)

	require.NoError(t, p.Deselect("row-0001"))
	r, _ = p.Row("row-0001")
	assert.False(t, r.Selected)
}

func TestSelectAllSkipsErrors(t *testing.T) {
	p := standardPreview(t)
	p.SelectAll()
	for _, r := range p.Rows() {
		assert.Equal(t, r.Status != StatusError, r.Selected, r.ID)
	}

	p.DeselectAll()
	assert.Empty(t, p.Importable())
	assert.Equal(t, 0, p.Summary().Selected)
}

func TestDiscard(t *testing.T) {
	p := standardPreview(t)

	require.NoError(t, p.Discard("row-0001"))
	r, _ := p.Row("row-0001")
	assert.Equal(t, StatusDiscarded, r.Status)
	assert.False(t, r.Selected)

	// selecting a discarded row does not make it importable
	require.NoError(t, p.Select("row-0001"))
	assert.Len(t, p.Importable(), 1)

	assert.ErrorIs(t, p.Discard("nope"), ErrNotFound)
	assert.ErrorIs(t, p.Discard("row-0003"), ErrValidation)
	r, _ = p.Row("row-0003")
	assert.Equal(t, StatusError, r.Status)
}

func TestDiscardDuplicates(t *testing.T) {
	p := newTestPreview(t,
		testRow(t, "a", StatusDuplicate, "1", "x"),
		testRow(t, "b", StatusNew, "1", "x"),
		testRow(t, "c", StatusDuplicate, "1", "x"),
	)
	require.NoError(t, p.Select("a"))

	assert.Equal(t, 2, p.DiscardDuplicates())
	assert.Equal(t, 0, p.DiscardDuplicates())

	s := p.Summary()
	assert.Equal(t, 2, s.Discarded)
	assert.Equal(t, 0, s.Duplicates)
	assert.Equal(t, 1, s.Importable)
	r, _ := p.Row("a")
	assert.False(t, r.Selected)
	assert.True(t, r.IsDuplicate)
}

func TestUpdateDescription(t *testing.T) {
	p := standardPreview(t)

	require.NoError(t, p.UpdateDescription("row-0001", "  Monthly salary "))
	r, _ := p.Row("row-0001")
	assert.Equal(t, "Monthly salary", r.Description)
	assert.True(t, r.IsEdited)
	assert.Equal(t, StatusEdited, r.Status)

	require.NoError(t, p.UpdateDescription("row-0002", "Groceries Rewe"))
	r, _ = p.Row("row-0002")
	assert.Equal(t, StatusDuplicate, r.Status, "duplicates keep their status")
	assert.True(t, r.IsEdited)

	require.NoError(t, p.Discard("row-0004"))
	require.NoError(t, p.UpdateDescription("row-0004", "Streaming"))
	r, _ = p.Row("row-0004")
	assert.Equal(t, StatusDiscarded, r.Status)

	err := p.UpdateDescription("row-0001", "   ")
	assert.ErrorIs(t, err, ErrValidation)
	r, _ = p.Row("row-0001")
	assert.Equal(t, "Monthly salary", r.Description)

	assert.ErrorIs(t, p.UpdateDescription("missing", "x"), ErrNotFound)
	assert.ErrorIs(t, p.UpdateDescription("row-0003", "x"), ErrValidation)
}

func TestAssignCategoryToSelected(t *testing.T) {
	p := standardPreview(t)

	_, err := p.AssignCategoryToSelected(" ")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, p.Select("row-0002"))
	n, err := p.AssignCategoryToSelected("household")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, r := range p.Rows() {
		switch r.ID {
		case "row-0001", "row-0004":
			assert.Equal(t, "household", r.CategoryID)
			assert.Equal(t, StatusEdited, r.Status)
		case "row-0002":
			assert.Equal(t, "household", r.CategoryID)
			assert.Equal(t, StatusDuplicate, r.Status)
		case "row-0003":
			assert.Empty(t, r.CategoryID)
		}
	}
}

func TestHideSelected(t *testing.T) {
	p := standardPreview(t)
	require.NoError(t, p.Deselect("row-0004"))

	assert.Equal(t, 1, p.HideSelected())
	r, _ := p.Row("row-0001")
	assert.True(t, r.WillBeHidden)
	assert.True(t, r.Selected)
	assert.Equal(t, StatusNew, r.Status)

	r, _ = p.Row("row-0004")
	assert.False(t, r.WillBeHidden)
	assert.Equal(t, 1, p.Summary().Hidden)
}

func TestValidate(t *testing.T) {
	t.Run("all discarded or error", func(t *testing.T) {
		p := standardPreview(t)
		require.NoError(t, p.Discard("row-0001"))
		require.NoError(t, p.Discard("row-0004"))
		p.SelectAll()
		require.NoError(t, p.Discard("row-0002"))

		err := p.Validate()
		assert.ErrorIs(t, err, ErrInvariant)
		assert.EqualError(t, err, "nothing to import")
	})

	t.Run("one valid new row", func(t *testing.T) {
		p := newTestPreview(t, testRow(t, "r1", StatusNew, "12.00", "Coffee"))
		assert.NoError(t, p.Validate())
	})

	t.Run("zero amount", func(t *testing.T) {
		p := newTestPreview(t,
			testRow(t, "r1", StatusNew, "12.00", "Coffee"),
			testRow(t, "r2", StatusNew, "0.00", "Fee reversal"),
		)
		err := p.Validate()
		var ie *InvariantError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, []string{"r2"}, ie.RowIDs)

		require.NoError(t, p.Deselect("r2"))
		assert.NoError(t, p.Validate())
	})

	t.Run("empty description", func(t *testing.T) {
		p := newTestPreview(t, testRow(t, "r1", StatusNew, "12.00", ""))
		assert.ErrorIs(t, p.Validate(), ErrInvariant)
	})
}

func TestSummary_MatchesRowsAfterOperations(t *testing.T) {
	p := standardPreview(t)

	check := func() {
		t.Helper()
		rows := p.Rows()
		s := p.Summary()
		assert.Equal(t, len(rows), s.TotalTransactions)

		counts := map[Status]int{}
		selected, importable := 0, 0
		for _, r := range rows {
			counts[r.Status]++
			if r.Selected {
				selected++
			}
			if r.Selected && r.Status != StatusError && r.Status != StatusDiscarded {
				importable++
			}
		}
		assert.Equal(t, counts[StatusNew], s.New)
		assert.Equal(t, counts[StatusDuplicate], s.Duplicates)
		assert.Equal(t, counts[StatusError], s.Errors)
		assert.Equal(t, counts[StatusEdited], s.Edited)
		assert.Equal(t, counts[StatusDiscarded], s.Discarded)
		assert.Equal(t, selected, s.Selected)
		assert.Equal(t, importable, s.Importable)
		assert.Len(t, p.Importable(), importable)
	}

	check()
	require.NoError(t, p.Select("row-0002"))
	check()
	require.NoError(t, p.UpdateDescription("row-0001", "Pay"))
	check()
	require.NoError(t, p.Discard("row-0004"))
	check()
	p.DiscardDuplicates()
	check()
	p.SelectAll()
	check()
	_, _ = p.AssignCategoryToSelected("c")
	check()
	p.DeselectAll()
	check()
}

func TestSummary_TotalsAndDates(t *testing.T) {
	a := testRow(t, "a", StatusNew, "100.50", "x")
	b := testRow(t, "b", StatusDuplicate, "-25.30", "y")
	b.Date = money.NewDate(2025, 8, 30)
	c := testRow(t, "c", StatusNew, "5.00", "z")
	c.Amount, _ = money.Parse("5.00", "USD")
	c.Date = money.NewDate(2025, 9, 12)
	e := testRow(t, "e", StatusError, "", "")

	s := newTestPreview(t, a, b, c, e).Summary()
	require.Len(t, s.TotalAmount, 2)
	assert.Equal(t, "75.20 EUR", s.TotalAmount[0].String())
	assert.Equal(t, "5.00 USD", s.TotalAmount[1].String())
	assert.Equal(t, "2025-08-30", s.MinDate.String())
	assert.Equal(t, "2025-09-12", s.MaxDate.String())
}
