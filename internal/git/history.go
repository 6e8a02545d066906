package git

import (
	"bufio"
	"context"
	"strconv"
	"strings"
	"time"

	enginerr "github.com/gitintel/gitintel-go/internal/errors"
)

// CommitStat is one commit with its per-file numstat totals, as produced by
// a single `git log --numstat` walk.
type CommitStat struct {
	Commit
	Files []FileStat
}

// FileStat is one numstat line: additions/deletions for a path. Binary files
// report -1 for both counts in git's output; we record them as zero.
type FileStat struct {
	Path      string
	Additions int
	Deletions int
}

// Log walks commits reachable from rangeExpr (a ref or a range like
// "base..head"), newest first, capped at maxCommits. Stats come from a
// single --numstat pass so large histories need only one subprocess.
func (r *Repository) Log(ctx context.Context, rangeExpr string, maxCommits int) ([]CommitStat, error) {
	args := []string{
		"log",
		"--format=%x1e%H|%an|%ae|%aI|%P|%s",
		"--numstat",
	}
	if maxCommits > 0 {
		args = append(args, "-n", strconv.Itoa(maxCommits))
	}
	args = append(args, rangeExpr)

	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLogNumstat(out)
}

// parseLogNumstat splits --numstat log output on the 0x1e record separator
// embedded in the format string, then parses each record's header line and
// tab-separated stat lines.
func parseLogNumstat(out string) ([]CommitStat, error) {
	var commits []CommitStat

	for _, record := range strings.Split(out, "\x1e") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		scanner := bufio.NewScanner(strings.NewReader(record))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		if !scanner.Scan() {
			continue
		}
		header, err := parseCommitLine(scanner.Text())
		if err != nil {
			return nil, enginerr.Wrap(err, enginerr.KindCollaborator, "parse log record")
		}

		cs := CommitStat{Commit: *header}
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			fs, ok := parseNumstatLine(line)
			if !ok {
				continue
			}
			cs.Files = append(cs.Files, fs)
		}
		commits = append(commits, cs)
	}
	return commits, nil
}

// parseNumstatLine parses "additions<TAB>deletions<TAB>path". Binary files
// show "-" for both counts; renames show "old => new" in the path.
func parseNumstatLine(line string) (FileStat, bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return FileStat{}, false
	}

	adds, dels := 0, 0
	if parts[0] != "-" {
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return FileStat{}, false
		}
		adds = n
	}
	if parts[1] != "-" {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return FileStat{}, false
		}
		dels = n
	}

	path := parts[2]
	if idx := strings.Index(path, " => "); idx >= 0 {
		path = renameTarget(path)
	}
	return FileStat{Path: path, Additions: adds, Deletions: dels}, true
}

// renameTarget resolves the new path from git's rename notation, which is
// either "old => new" or "prefix/{old => new}/suffix".
func renameTarget(path string) string {
	open := strings.Index(path, "{")
	arrow := strings.Index(path, " => ")
	if open >= 0 {
		close := strings.Index(path, "}")
		if close > arrow && arrow > open {
			return path[:open] + path[arrow+4:close] + path[close+1:]
		}
	}
	return path[arrow+4:]
}

// Authors returns the distinct author emails of commits in rangeExpr,
// ordered most recent first.
func (r *Repository) Authors(ctx context.Context, rangeExpr string) ([]string, error) {
	out, err := r.run(ctx, "log", "--format=%ae", rangeExpr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var authors []string
	for _, line := range strings.Split(out, "\n") {
		email := strings.TrimSpace(line)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		authors = append(authors, email)
	}
	return authors, nil
}

// FileAuthors returns the distinct author emails that touched path within
// rangeExpr.
func (r *Repository) FileAuthors(ctx context.Context, rangeExpr, path string) ([]string, error) {
	out, err := r.run(ctx, "log", "--format=%ae", rangeExpr, "--", path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var authors []string
	for _, line := range strings.Split(out, "\n") {
		email := strings.TrimSpace(line)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		authors = append(authors, email)
	}
	return authors, nil
}

// MergeCommits returns merge commits reachable from ref, newest first,
// capped at maxCommits. Used when bootstrapping patterns from history.
func (r *Repository) MergeCommits(ctx context.Context, ref string, maxCommits int) ([]CommitStat, error) {
	args := []string{
		"log",
		"--merges",
		"--format=%x1e%H|%an|%ae|%aI|%P|%s",
		"--numstat",
	}
	if maxCommits > 0 {
		args = append(args, "-n", strconv.Itoa(maxCommits))
	}
	args = append(args, ref)

	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLogNumstat(out)
}

// ChangeFrequency counts how often path changed in the window ending now.
// Days <= 0 means the whole history.
func (r *Repository) ChangeFrequency(ctx context.Context, ref, path string, days int) (int, error) {
	args := []string{"log", "--format=%H"}
	if days > 0 {
		since := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
		args = append(args, "--since="+since)
	}
	args = append(args, ref, "--", path)

	out, err := r.run(ctx, args...)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}
