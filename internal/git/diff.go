package git

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gitintel/gitintel-go/internal/models"
)

// hunkHeaderRe matches unified diff hunk headers. With -U0 the new-side
// range "+start,count" is exactly the changed region.
var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@(.*)$`)

// funcContextRe is a loose match for a function-ish signature in the hunk
// context git appends after the second @@.
var funcContextRe = regexp.MustCompile(`\b(func|def|function|fn|class|void|int|static|public|private)\b`)

// ChangedFiles returns the per-file change summaries for everything that
// differs between base and head, keyed by path. Line ranges come from a
// zero-context diff so overlap detection sees only truly modified lines.
func (r *Repository) ChangedFiles(ctx context.Context, base, head string) (map[string]models.FileChangeSummary, error) {
	statusOut, err := r.run(ctx, "diff", "--name-status", base, head)
	if err != nil {
		return nil, err
	}
	types := parseNameStatus(statusOut)
	if len(types) == 0 {
		return map[string]models.FileChangeSummary{}, nil
	}

	diffOut, err := r.run(ctx, "diff", "-U0", base, head)
	if err != nil {
		return nil, err
	}

	summaries := parseUnifiedDiff(diffOut)
	for path, ct := range types {
		s := summaries[path]
		s.ChangeType = ct
		summaries[path] = s
	}

	now := time.Now()
	for path, s := range summaries {
		s.Timestamp = r.LastTouched(ctx, head, path)
		if s.Timestamp.IsZero() {
			s.Timestamp = now
		}
		summaries[path] = s
	}
	return summaries, nil
}

// parseNameStatus parses `git diff --name-status` output. Rename lines carry
// a similarity score (R100) and two paths; the new path wins.
func parseNameStatus(out string) map[string]models.ChangeType {
	types := make(map[string]models.ChangeType)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		code := parts[0]
		path := parts[len(parts)-1]
		switch {
		case strings.HasPrefix(code, "A"):
			types[path] = models.ChangeAdded
		case strings.HasPrefix(code, "D"):
			types[path] = models.ChangeDeleted
		case strings.HasPrefix(code, "R"):
			types[path] = models.ChangeRenamed
		default:
			types[path] = models.ChangeModified
		}
	}
	return types
}

// parseUnifiedDiff walks a -U0 diff and accumulates, per file, the changed
// line count, the new-side line ranges, and a function count inferred from
// hunk context lines.
func parseUnifiedDiff(out string) map[string]models.FileChangeSummary {
	summaries := make(map[string]models.FileChangeSummary)
	var current string

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			current = diffHeaderPath(line)
		case strings.HasPrefix(line, "@@"):
			if current == "" {
				continue
			}
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			start, _ := strconv.Atoi(m[1])
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			s := summaries[current]
			if count > 0 {
				s.LineRanges = append(s.LineRanges, models.LineRange{
					Start: start,
					End:   start + count - 1,
				})
			}
			if funcContextRe.MatchString(m[3]) {
				s.FunctionsAffected++
			}
			summaries[current] = s
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			s := summaries[current]
			s.LinesChanged++
			summaries[current] = s
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			s := summaries[current]
			s.LinesChanged++
			summaries[current] = s
		}
	}
	return summaries
}

// diffHeaderPath extracts the b-side path from a "diff --git a/x b/x" line.
func diffHeaderPath(line string) string {
	idx := strings.Index(line, " b/")
	if idx < 0 {
		return ""
	}
	return line[idx+3:]
}

// DiffStat returns aggregate additions and deletions between two refs.
func (r *Repository) DiffStat(ctx context.Context, base, head string) (added, deleted int, err error) {
	out, err := r.run(ctx, "diff", "--numstat", base, head)
	if err != nil {
		return 0, 0, err
	}
	for _, line := range strings.Split(out, "\n") {
		fs, ok := parseNumstatLine(strings.TrimSpace(line))
		if !ok {
			continue
		}
		added += fs.Additions
		deleted += fs.Deletions
	}
	return added, deleted, nil
}
