package hunks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTwoHunks(t *testing.T) {
	diff := "@@ -1,3 +1,4 @@\n+x\n@@ -10,1 +11,1 @@\n+y\n"

	got := Split(diff)
	require.Len(t, got, 2)
	assert.Equal(t, Hunk{Index: 1, Text: "@@ -1,3 +1,4 @@\n+x\n"}, got[0])
	assert.Equal(t, Hunk{Index: 2, Text: "@@ -10,1 +11,1 @@\n+y\n"}, got[1])
}

func TestSplitRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"no markers at all\n",
		"@@ -1 +1 @@\n-a\n+b\n",
		"diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1 +1 @@\n-a\n+b\n@@ -5,2 +5,2 @@\n c\n-d\n+e",
		"@@ -1 +1 @@\n+ not @@ a marker\n",
	}
	for _, diff := range cases {
		t.Run(diff, func(t *testing.T) {
			assert.Equal(t, diff, Join(Split(diff)))
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split(""))
	assert.Empty(t, Split(" \n\t"))
}

func TestSplitPreambleTakesFirstIndex(t *testing.T) {
	got := Split("--- a/x\n+++ b/x\n@@ -1 +1 @@\n+b\n")
	require.Len(t, got, 2)
	assert.Equal(t, "--- a/x\n+++ b/x\n", got[0].Text)
	assert.Equal(t, 2, got[1].Index)
}

func TestSplitDropsWhitespaceFragments(t *testing.T) {
	got := Split("\n@@ -1 +1 @@\n+b\n")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Index)
}

func TestByIndexAndTexts(t *testing.T) {
	got := Split("@@ -1 +1 @@\n+a\n@@ -4 +4 @@\n+b\n")

	h, ok := ByIndex(got, 2)
	require.True(t, ok)
	assert.Equal(t, "@@ -4 +4 @@\n+b\n", h.Text)

	_, ok = ByIndex(got, 3)
	assert.False(t, ok)
	_, ok = ByIndex(got, 0)
	assert.False(t, ok)

	assert.Equal(t, []string{"@@ -1 +1 @@\n+a\n", "@@ -4 +4 @@\n+b\n"}, Texts(got))
}

func TestFlatten(t *testing.T) {
	first := Split("@@ -1 +1 @@\n+a\n@@ -4 +4 @@\n+b\n")
	second := Split("@@ -2 +2 @@\n+c\n")

	got := Flatten(first, second)
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[2].Index)
	assert.Equal(t, "@@ -2 +2 @@\n+c\n", got[2].Text)
}

func TestRangeAndForLine(t *testing.T) {
	got := Split("@@ -1,2 +1,3 @@\n a\n+b\n c\n@@ -10,2 +11,2 @@\n x\n-y\n+z\n")

	r, err := got[1].Range()
	require.NoError(t, err)
	assert.Equal(t, Range{OrigStart: 10, OrigLines: 2, NewStart: 11, NewLines: 2}, r)

	h, ok := ForLine(got, 2)
	require.True(t, ok)
	assert.Equal(t, 1, h.Index)

	h, ok = ForLine(got, 12)
	require.True(t, ok)
	assert.Equal(t, 2, h.Index)

	_, ok = ForLine(got, 7)
	assert.False(t, ok)
}

func TestRangeBadHeader(t *testing.T) {
	_, err := Hunk{Index: 1, Text: "--- a/x\n"}.Range()
	assert.Error(t, err)
}
