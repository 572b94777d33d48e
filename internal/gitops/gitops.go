// Package gitops versions a tally repo with the git command line.
package gitops

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNothingToCommit is returned when the working tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// Init initializes a new git repository at dir.
func Init(dir string) error {
	if out, err := git(dir, "init"); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Committer records changes to a repo under a fixed author.
type Committer struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Commit stages everything and commits it. Returns the short commit hash, or
// ErrNothingToCommit when there are no changes.
func (c Committer) Commit(message string) (string, error) {
	status, err := git(c.Dir, "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git status: %s: %w", status, err)
	}
	if strings.TrimSpace(status) == "" {
		return "", ErrNothingToCommit
	}

	if out, err := git(c.Dir, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}

	author := fmt.Sprintf("%s <%s>", c.AuthorName, c.AuthorEmail)
	args := []string{
		"-c", "user.name=" + c.AuthorName,
		"-c", "user.email=" + c.AuthorEmail,
		"commit", "-m", message, "--author", author,
	}
	if out, err := git(c.Dir, args...); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	hash, err := git(c.Dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}
