package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	enginerr "github.com/gitintel/gitintel-go/internal/errors"
)

// Repository is a handle to a local git repository. All access goes through
// the git CLI; no libgit bindings. Subprocess spawning is rate limited so
// batch paths cannot fork-bomb large repositories.
type Repository struct {
	path    string
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// Commit is the commit metadata the engine consumes.
type Commit struct {
	SHA         string
	AuthorName  string
	AuthorEmail string
	Timestamp   time.Time
	Message     string
	Parents     []string
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

// Branch is a local branch head with its last commit time.
type Branch struct {
	Name          string
	LastCommitted time.Time
}

// Open validates that path is a git working tree and returns a handle.
func Open(path string, ratePerSec int, logger *logrus.Logger) (*Repository, error) {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	r := &Repository{
		path:    path,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		logger:  logger,
	}

	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = path
	if err := cmd.Run(); err != nil {
		return nil, enginerr.Wrapf(err, enginerr.KindInput, "not a git repository: %s", path)
	}
	return r, nil
}

// Path returns the repository root path the handle was opened with.
func (r *Repository) Path() string { return r.path }

// run executes a git command in the repository, honoring the rate limiter
// and the context deadline.
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", enginerr.Wrap(err, enginerr.KindCollaborator, "git rate limiter")
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.path

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", enginerr.Wrapf(err, enginerr.KindCollaborator,
			"git %s failed: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ActiveBranch returns the currently checked-out branch name.
func (r *Repository) ActiveBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Branches lists local branch heads sorted most recently committed first.
func (r *Repository) Branches(ctx context.Context) ([]Branch, error) {
	out, err := r.run(ctx, "for-each-ref", "refs/heads",
		"--sort=-committerdate",
		"--format=%(refname:short)|%(committerdate:iso-strict)")
	if err != nil {
		return nil, err
	}

	var branches []Branch
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			ts = time.Time{}
		}
		branches = append(branches, Branch{Name: parts[0], LastCommitted: ts})
	}
	return branches, nil
}

// Commit resolves a ref to its commit metadata.
func (r *Repository) Commit(ctx context.Context, ref string) (*Commit, error) {
	out, err := r.run(ctx, "show", "-s", "--format=%H|%an|%ae|%aI|%P|%s", ref)
	if err != nil {
		return nil, enginerr.Wrapf(err, enginerr.KindInput, "cannot resolve ref %q", ref)
	}

	line := strings.TrimSpace(out)
	c, perr := parseCommitLine(line)
	if perr != nil {
		return nil, enginerr.Wrapf(perr, enginerr.KindCollaborator, "parse commit for ref %q", ref)
	}
	return c, nil
}

// parseCommitLine parses one "%H|%an|%ae|%aI|%P|%s" formatted line.
func parseCommitLine(line string) (*Commit, error) {
	parts := strings.SplitN(line, "|", 6)
	if len(parts) != 6 {
		return nil, fmt.Errorf("malformed commit line: %q", line)
	}

	ts, err := time.Parse(time.RFC3339, parts[3])
	if err != nil {
		ts = time.Time{}
	}

	var parents []string
	if p := strings.TrimSpace(parts[4]); p != "" {
		parents = strings.Fields(p)
	}

	return &Commit{
		SHA:         parts[0],
		AuthorName:  parts[1],
		AuthorEmail: parts[2],
		Timestamp:   ts,
		Message:     parts[5],
		Parents:     parents,
	}, nil
}

// MergeBase returns the most recent common ancestor of two refs. A missing
// merge base (unrelated histories) is an input error, not a collaborator
// failure.
func (r *Repository) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := r.run(ctx, "merge-base", a, b)
	if err != nil {
		return "", enginerr.Wrapf(err, enginerr.KindInput,
			"no common ancestor between %s and %s", a, b)
	}
	return strings.TrimSpace(out), nil
}

// RevListCount counts the commits selected by a range expression such as
// "main..feature".
func (r *Repository) RevListCount(ctx context.Context, rangeExpr string) (int, error) {
	out, err := r.run(ctx, "rev-list", "--count", rangeExpr)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return 0, enginerr.Wrapf(convErr, enginerr.KindCollaborator, "parse rev-list count")
	}
	return n, nil
}

// FileSize returns the blob size of a file at a ref, 0 if the file does not
// exist there.
func (r *Repository) FileSize(ctx context.Context, ref, path string) int64 {
	out, err := r.run(ctx, "cat-file", "-s", fmt.Sprintf("%s:%s", ref, path))
	if err != nil {
		return 0
	}
	size, convErr := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if convErr != nil {
		return 0
	}
	return size
}

// LastTouched returns the author time of the most recent commit on branch
// that touched path. The zero time means no such commit was found.
func (r *Repository) LastTouched(ctx context.Context, branch, path string) time.Time {
	out, err := r.run(ctx, "log", "-1", "--format=%aI", branch, "--", path)
	if err != nil {
		return time.Time{}
	}
	ts, perr := time.Parse(time.RFC3339, strings.TrimSpace(out))
	if perr != nil {
		return time.Time{}
	}
	return ts
}

// ShowFile returns the content of path at ref.
func (r *Repository) ShowFile(ctx context.Context, ref, path string) (string, error) {
	return r.run(ctx, "show", fmt.Sprintf("%s:%s", ref, path))
}
