package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestInit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	assert.False(t, IsRepo(dir), "empty dir should not be a repo")

	require.NoError(t, Init(dir))
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")
}

func TestCommitter_Commit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	c := Committer{Dir: dir, AuthorName: "Test Author", AuthorEmail: "test@example.com"}

	_, err := c.Commit("empty")
	assert.ErrorIs(t, err, ErrNothingToCommit)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tally.yaml"), []byte("business: {}\n"), 0o644))
	hash, err := c.Commit("import: 5 transactions from chase_jan.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	out, err := git(dir, "log", "--format=%s|%an <%ae>", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "import: 5 transactions from chase_jan.csv|Test Author <test@example.com>")

	_, err = c.Commit("again")
	assert.ErrorIs(t, err, ErrNothingToCommit)
}
