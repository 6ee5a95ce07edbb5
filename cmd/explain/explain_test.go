package explain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	explainer "github.com/explainify/explainify/internal/explain"
	"github.com/explainify/explainify/internal/lineselect"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/files"
)

func newOllamaServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		last := body.Messages[len(body.Messages)-1].Content
		if !strings.Contains(last, "CWE-89") {
			t.Errorf("prompt does not name the weakness: %s", last)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": answer},
			"done":    true,
		})
	}))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	selections := filepath.Join(dir, "relevant_lines.json")
	require.NoError(t, os.WriteFile(selections, []byte("{}"), 0o644))

	assert.NoError(t, validate(&RunOptions{CWE: "CWE-89"}, selections, nil))
	assert.ErrorContains(t, validate(&RunOptions{}, filepath.Join(dir, "missing.json"), nil), "invalid selections path")
	assert.ErrorContains(t, validate(&RunOptions{CWE: "89"}, selections, nil), "'cwe' must look like CWE-89")
	assert.ErrorContains(t, validate(&RunOptions{}, selections, []string{"x"}), "unexpected positional arguments: x")
}

func TestExplainCommand(t *testing.T) {
	server := newOllamaServer(t, "\n  Summary: the query was built from raw input.")
	defer server.Close()

	dir := t.TempDir()
	patches := filepath.Join(dir, "patches")
	require.NoError(t, os.MkdirAll(patches, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(patches, "acme_patch.json"), []byte(`{
		"src/Query.java": {"cve_id": "CVE-2024-0009", "repo": "shop", "diff": "@@ -1 +1 @@\n-query(input);\n+query(escape(input));\n", "message": "Escape input"}
	}`), 0o644))

	selections := lineselect.Dataset{"acme_patch.json": {
		Patches: map[int][]string{0: {"@@ -1 +1 @@\n-query(input);\n+query(escape(input));\n"}},
		Lines:   []lineselect.LineSelection{{PatchIndex: 1, Lines: []string{"+query(escape(input));"}}},
	}}
	selPath := filepath.Join(dir, "relevant_lines.json")
	require.NoError(t, selections.Save(selPath))

	cfg := config.Default()
	cfg.Paths.PatchesFolder = patches
	cfg.Paths.ResultsFolder = filepath.Join(dir, "results")
	cfg.LLM.Provider = "ollama"
	cfg.LLM.BaseURL = server.URL
	Init(cfg)

	ExplainCmd.SetArgs([]string{"--selections", selPath, "--cwe", "CWE-89"})
	require.NoError(t, ExplainCmd.Execute())

	var out explainer.Explanations
	require.NoError(t, files.ReadJSON(filepath.Join(dir, "results", "explanations.json"), &out))
	require.Contains(t, out, "acme_patch.json")
	got := out["acme_patch.json"]
	assert.Equal(t, "Summary: the query was built from raw input.", got.Explanation)
	assert.Equal(t, "CWE-89", got.CWEID)
	assert.Equal(t, "CVE-2024-0009", got.CVEID)
	assert.Equal(t, "Escape input", got.CommitMessage)
}
