package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	return New(dir, "Test Author", "test@example.com", zerolog.Nop()), dir
}

func TestInit(t *testing.T) {
	r, dir := newRepo(t)
	assert.False(t, IsRepo(dir), "empty dir should not be a repo")

	require.NoError(t, r.Init())
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")

	require.NoError(t, r.Init(), "init is idempotent")
}

func TestCommitAll(t *testing.T) {
	r, dir := newRepo(t)
	require.NoError(t, r.Init())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("hello"), 0o644))
	dirty, err := r.HasChanges()
	require.NoError(t, err)
	assert.True(t, dirty)

	hash, err := r.CommitAll("init: test commit")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	log := exec.Command("git", "log", "--format=%s|%an <%ae>|%cn", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init: test commit|Test Author <test@example.com>|Test Author")

	_, err = r.CommitAll("again")
	assert.ErrorIs(t, err, ErrNothingToCommit)
}

func TestImportMessage(t *testing.T) {
	assert.Equal(t, "import: sept.csv (3 transactions)", ImportMessage("/tmp/import/sept.csv", 3))
	assert.Equal(t, "import: one.csv (1 transaction)", ImportMessage("one.csv", 1))
}
