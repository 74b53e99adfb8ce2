package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const netflixCSV = `Date,Description,Amount,Counterparty
2025-09-05,Card payment,-12.99,Netflix
2025-09-12,Card payment,-24.99,NETFLIX.COM
2025-09-19,Card payment,-55.00,netflix
`

func TestRules_SuggestSaveAndApply(t *testing.T) {
	dir := newProject(t)
	file := writeCSV(t, t.TempDir(), "netflix.csv", netflixCSV)

	_, err := runTally(t, "import", file, "--repo", dir, "--category", "media")
	require.NoError(t, err)

	out, err := runTally(t, "rules", "suggest", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `Categorize as media where counterparty contains "netflix"`)

	out, err = runTally(t, "rules", "list", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No rules.")

	out, err = runTally(t, "rules", "suggest", "--repo", dir, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved")

	out, err = runTally(t, "rules", "list", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `counterparty contains "netflix"`)
	assert.Contains(t, out, "yes")

	next := writeCSV(t, t.TempDir(), "oct.csv", "Date,Description,Amount,Counterparty\n2025-10-05,Card payment,-12.99,Netflix Intl\n")
	out, err = runTally(t, "preview", next, "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "media")
	assert.Contains(t, out, "rule ")
}

func TestRules_SuggestEmpty(t *testing.T) {
	dir := newProject(t)
	out, err := runTally(t, "rules", "suggest", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No rule suggestions.")
}
