package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitintel/gitintel-go/internal/models"
)

const sampleDiff = `diff --git a/src/auth.py b/src/auth.py
index 1111111..2222222 100644
--- a/src/auth.py
+++ b/src/auth.py
@@ -10,3 +10,5 @@ def login(user):
-    return check(user)
+    if user is None:
+        raise ValueError
+    return check(user)
@@ -40 +42 @@ def logout(user):
-    session.drop()
+    session.clear()
diff --git a/README.md b/README.md
index 3333333..4444444 100644
--- a/README.md
+++ b/README.md
@@ -1 +1,2 @@
-# old title
+# new title
+badge line
`

func TestParseUnifiedDiff(t *testing.T) {
	summaries := parseUnifiedDiff(sampleDiff)
	require.Len(t, summaries, 2)

	auth := summaries["src/auth.py"]
	require.Len(t, auth.LineRanges, 2)
	assert.Equal(t, models.LineRange{Start: 10, End: 14}, auth.LineRanges[0])
	assert.Equal(t, models.LineRange{Start: 42, End: 42}, auth.LineRanges[1])
	// Two hunks, both with def context.
	assert.Equal(t, 2, auth.FunctionsAffected)
	// 2 removals + 4 additions across both hunks.
	assert.Equal(t, 6, auth.LinesChanged)

	readme := summaries["README.md"]
	assert.Equal(t, 0, readme.FunctionsAffected)
	assert.Equal(t, 3, readme.LinesChanged)
	require.Len(t, readme.LineRanges, 1)
	assert.Equal(t, models.LineRange{Start: 1, End: 2}, readme.LineRanges[0])
}

func TestParseNameStatus(t *testing.T) {
	out := "M\tsrc/auth.py\nA\tsrc/new.py\nD\tsrc/gone.py\nR100\tsrc/old.py\tsrc/renamed.py\n"
	types := parseNameStatus(out)

	assert.Equal(t, models.ChangeModified, types["src/auth.py"])
	assert.Equal(t, models.ChangeAdded, types["src/new.py"])
	assert.Equal(t, models.ChangeDeleted, types["src/gone.py"])
	assert.Equal(t, models.ChangeRenamed, types["src/renamed.py"])
	_, hasOld := types["src/old.py"]
	assert.False(t, hasOld)
}

func TestHunkHeaderSingleLine(t *testing.T) {
	// A "+42" range with no count means exactly one line.
	m := hunkHeaderRe.FindStringSubmatch("@@ -40 +42 @@ func process() {")
	require.NotNil(t, m)
	assert.Equal(t, "42", m[1])
	assert.Equal(t, "", m[2])
	assert.True(t, funcContextRe.MatchString(m[3]))
}

func TestDiffHeaderPath(t *testing.T) {
	assert.Equal(t, "src/main.go", diffHeaderPath("diff --git a/src/main.go b/src/main.go"))
	assert.Equal(t, "", diffHeaderPath("diff --git malformed"))
}
