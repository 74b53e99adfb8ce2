package gitops

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNothingToCommit is returned by Commit when the working tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// Repo runs git in a project directory under a fixed identity.
type Repo struct {
	dir         string
	authorName  string
	authorEmail string
	log         zerolog.Logger
}

// New returns a Repo for dir. Commits use name/email as both author and
// committer, so no global git identity is required.
func New(dir, name, email string, log zerolog.Logger) *Repo {
	return &Repo{
		dir:         dir,
		authorName:  name,
		authorEmail: email,
		log:         log.With().Str("component", "git").Logger(),
	}
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Init initializes a repository unless one already exists.
func (r *Repo) Init() error {
	if IsRepo(r.dir) {
		return nil
	}
	if out, err := r.git("init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// HasChanges reports whether the working tree has staged, unstaged or
// untracked changes.
func (r *Repo) HasChanges() (bool, error) {
	out, err := r.git("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %s: %w", out, err)
	}
	return strings.TrimSpace(out) != "", nil
}

// CommitAll stages all files and creates a commit. Returns the short commit
// hash, or ErrNothingToCommit on a clean tree.
func (r *Repo) CommitAll(message string) (string, error) {
	if out, err := r.git("add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}

	dirty, err := r.HasChanges()
	if err != nil {
		return "", err
	}
	if !dirty {
		return "", ErrNothingToCommit
	}

	author := fmt.Sprintf("%s <%s>", r.authorName, r.authorEmail)
	if out, err := r.git("commit", "--quiet", "-m", message, "--author", author); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	out, err := r.git("rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	hash := strings.TrimSpace(out)
	r.log.Info().Str("commit", hash).Str("message", message).Msg("committed")
	return hash, nil
}

// ImportMessage formats the commit message for an import.
func ImportMessage(fileName string, count int) string {
	noun := "transactions"
	if count == 1 {
		noun = "transaction"
	}
	return fmt.Sprintf("import: %s (%d %s)", filepath.Base(fileName), count, noun)
}

func (r *Repo) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+r.authorName,
		"GIT_COMMITTER_EMAIL="+r.authorEmail,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
