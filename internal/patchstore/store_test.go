package patchstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeDocument = `{
  "src/main/java/org/acme/Foo.java": {
    "cve_id": "CVE-2024-0001",
    "repo": "shop",
    "file": {"filename": "src/main/java/org/acme/Foo.java", "status": "modified"},
    "diff": "@@ -1,2 +1,3 @@\n import a\n+String q = escape(input)\n",
    "message": "Fix SQL injection in the search endpoint by escaping user input"
  },
  "docs/README.md": {
    "cve_id": "CVE-2024-0001",
    "repo": "shop",
    "file": "docs/README.md",
    "diff": "@@ -1 +1 @@\n-old\n+new\n",
    "message": "Fix SQL injection in the search endpoint by escaping user input"
  }
}`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme_patch.json"), []byte(acmeDocument), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_patch.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	return NewStore(dir, hclog.NewNullLogger())
}

func TestLoadPatches(t *testing.T) {
	store := newTestStore(t)

	records := store.LoadPatches("acme")
	require.Len(t, records, 2)

	foo := records["src/main/java/org/acme/Foo.java"]
	assert.Equal(t, "acme", foo.Owner)
	assert.Equal(t, "src/main/java/org/acme/Foo.java", foo.Path)
	assert.Equal(t, "CVE-2024-0001", foo.CVEID)
	assert.Equal(t, "src/main/java/org/acme/Foo.java", foo.FileName())
	assert.Equal(t, "docs/README.md", records["docs/README.md"].FileName())
}

func TestLoadPatchesMissingOrBroken(t *testing.T) {
	store := newTestStore(t)

	for _, owner := range []string{"nobody", "broken", "", "../acme"} {
		t.Run(owner, func(t *testing.T) {
			records := store.LoadPatches(owner)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestFindPatch(t *testing.T) {
	store := newTestStore(t)

	got := store.FindPatch("escape(input)", "acme")
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "+String q")

	assert.Len(t, store.FindPatch("@@", "acme"), 2)
	assert.Empty(t, store.FindPatch("escape", "nobody"))
}

func TestByBasename(t *testing.T) {
	store := newTestStore(t)

	rec, ok := store.ByBasename("acme", "file_downloads/acme/new/Foo.java")
	require.True(t, ok)
	assert.Equal(t, "src/main/java/org/acme/Foo.java", rec.Path)

	_, ok = store.ByBasename("acme", "file_downloads/acme/new/Bar.java")
	assert.False(t, ok)
}

func TestMatchBasenamePrefersFirstPath(t *testing.T) {
	records := map[string]PatchRecord{
		"b/util.go": {Path: "b/util.go", Diff: "b"},
		"a/util.go": {Path: "a/util.go", Diff: "a"},
	}
	rec, ok := MatchBasename(records, "x/util.go")
	require.True(t, ok)
	assert.Equal(t, "a", rec.Diff)
}

func TestOwners(t *testing.T) {
	owners, err := newTestStore(t).Owners()
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "broken"}, owners)

	_, err = NewStore(filepath.Join(t.TempDir(), "missing"), nil).Owners()
	assert.Error(t, err)
}

func TestSavePatchesMergesAndSanitizes(t *testing.T) {
	store := newTestStore(t)

	err := store.SavePatches("acme", map[string]PatchRecord{
		"lib/db.go": {CVEID: "CVE-2024-0002", Repo: "shop", Diff: "@@ -1 +1 @@\n+x;y\n", Message: "a;b"},
	})
	require.NoError(t, err)

	records := store.LoadPatches("acme")
	require.Len(t, records, 3)
	db := records["lib/db.go"]
	assert.Equal(t, "@@ -1 +1 @@\n+x,y\n", db.Diff)
	assert.Equal(t, "a,b", db.Message)
	assert.Equal(t, "lib/db.go", db.FileName())

	var raw map[string]json.RawMessage
	data, err := os.ReadFile(store.DocumentPath("acme"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 3)
}

func TestSavePatchesRejectsInvalidOwner(t *testing.T) {
	err := NewStore(t.TempDir(), nil).SavePatches("../evil", map[string]PatchRecord{"a": {}})
	assert.True(t, errors.Is(err, ErrInvalidOwner))
}
