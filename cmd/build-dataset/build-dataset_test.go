package builddataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explainify/explainify/internal/dataset"
	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/internal/lineselect"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/files"
)

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line%d\n", i)
	}
	return b.String()
}

func setupWorkspace(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	file := "file_downloads/acme/new/App.java"

	require.NoError(t, files.WriteJSON(filepath.Join(dir, "sarif.json"), findings.Collection{"acme": {
		{ID: 1, Tool: findings.SARIFScanner, Project: "acme", File: file, StartLine: 7, EndLine: 7, CWE: "CWE-89"},
	}}))
	require.NoError(t, files.WriteJSON(filepath.Join(dir, "semgrep.json"), findings.Collection{"acme": {
		{ID: 1, Tool: findings.PatternScanner, Project: "acme", File: file, StartLine: 7, EndLine: 8, CWE: findings.UnknownCWE},
	}}))

	patches := filepath.Join(dir, "patches")
	require.NoError(t, os.MkdirAll(patches, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(patches, "acme_patch.json"), []byte(`{
		"src/main/App.java": {"cve_id": "CVE-2024-0005", "repo": "shop", "diff": "@@ -6,3 +6,3 @@\n a\n-b\n+c\n d\n", "message": "Fix query"}
	}`), 0o644))

	source := filepath.Join(dir, "downloads", "acme", "new")
	require.NoError(t, os.MkdirAll(source, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "App.java"), []byte(numberedLines(12)), 0o644))

	cfg := config.Default()
	cfg.Paths.PatchesFolder = patches
	cfg.Paths.DownloadsFolder = filepath.Join(dir, "downloads")
	cfg.Paths.ResultsFolder = filepath.Join(dir, "results")
	return dir, cfg
}

func TestValidate(t *testing.T) {
	two := map[string]string{"sarif": "a.json", "semgrep": "b.json"}

	_, err := validate(&RunOptions{Findings: map[string]string{"sarif": "a.json"}})
	assert.ErrorContains(t, err, "at least two tools")

	_, err = validate(&RunOptions{Findings: two, Window: "wide"})
	assert.ErrorContains(t, err, `unknown window "wide"`)

	o := &RunOptions{Findings: two}
	_, err = validate(o)
	require.NoError(t, err)
	assert.Equal(t, WindowReport, o.Window)
}

func TestBuildDatasetCommand(t *testing.T) {
	dir, cfg := setupWorkspace(t)

	selections := lineselect.Dataset{"acme_patch.json": {
		Patches: map[int][]string{0: {"@@ -6,3 +6,3 @@\n a\n-b\n+c\n d\n"}},
		Lines:   []lineselect.LineSelection{{PatchIndex: 1, Lines: []string{"+c"}}},
	}}
	selPath := filepath.Join(dir, "relevant_lines.json")
	require.NoError(t, selections.Save(selPath))

	Init(cfg)
	BuildDatasetCmd.SetArgs([]string{
		"--findings", "sarif=" + filepath.Join(dir, "sarif.json"),
		"--findings", "semgrep=" + filepath.Join(dir, "semgrep.json"),
		"--selections", selPath,
		"--window", WindowReport,
	})
	require.NoError(t, BuildDatasetCmd.Execute())

	records, err := dataset.Load(filepath.Join(dir, "results", "dataset.json"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "acme", r.Owner)
	assert.Equal(t, "CVE-2024-0005", r.CVEID)
	assert.Equal(t, []string{"CWE-89"}, r.CWE)
	assert.Equal(t, 8, r.EndLine)
	assert.Equal(t, 1, r.MatchedHunk)
	assert.Equal(t, "line5\nline6\nline7\nline8\nline9\nline10\n", r.SourceContext)
	require.Len(t, r.Selections, 1)
	assert.Equal(t, []string{"+c"}, r.Selections[0].Lines)
}
