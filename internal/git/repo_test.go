package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo builds a repository with two commits touching app.py.
func initTestRepo(t *testing.T) *Repository {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	write := func(name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	if err := exec.Command("git", "version").Run(); err != nil {
		t.Skip("git not available")
	}

	run("init")
	run("config", "user.email", "alice@example.com")
	run("config", "user.name", "Alice")
	run("checkout", "-b", "main")

	write("app.py", "def main():\n    pass\n")
	run("add", ".")
	run("commit", "-m", "feat: initial app")

	write("app.py", "def main():\n    return 0\n")
	run("add", ".")
	run("commit", "-m", "fix: return a status")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	repo, err := Open(dir, 100, logger)
	require.NoError(t, err)
	return repo
}

func TestChangeFrequency(t *testing.T) {
	r := initTestRepo(t)
	ctx := context.Background()

	n, err := r.ChangeFrequency(ctx, "main", "app.py", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Days <= 0 walks the whole history.
	n, err = r.ChangeFrequency(ctx, "main", "app.py", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.ChangeFrequency(ctx, "main", "missing.py", 30)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestActiveBranchAndMergeBase(t *testing.T) {
	r := initTestRepo(t)
	ctx := context.Background()

	branch, err := r.ActiveBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	base, err := r.MergeBase(ctx, "main", "main")
	require.NoError(t, err)
	assert.Len(t, base, 40)
}
