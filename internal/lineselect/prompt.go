package lineselect

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/explainify/explainify/internal/hunks"
)

const systemPrompt = "You are a security analyst."

var userPrompt = template.Must(template.New("line-selection").Parse(`You are given several code patches from a single commit. Every patch is preceded by its patch_index:
{{range .Hunks}}
[patch_index {{.Index}}]
{{.Text}}{{end}}
Commit message:
"{{.Message}}"

Task:
For each patch, find the most important *code lines* (not comments, not blank lines).

Return valid JSON ONLY, structured like this where the patch_index is the index of the patch where you got the most important lines from:
[
    {
        "patch_index": 1,
        "lines": ["important line 1", "important line 2"]
    },
    {
        "patch_index": 2,
        "lines": ["important line 3"]
    }
]

Rules:
- Include only *actual code lines* from the given patches that were added or modified.
- Do not include the whole patch as important code lines. More than {{.MaxLines}} lines is too much.
- Do not include explanations or natural language.
- Ensure your output is valid JSON that can be parsed by a strict JSON decoder.
`))

type promptData struct {
	Hunks    []hunks.Hunk
	Message  string
	MaxLines int
}

// BuildPrompt renders the system and user prompt for the patches of one commit.
// Hunks are numbered as in Entry.Hunks.
func (s *Selector) BuildPrompt(patches map[int][]string, message string) (string, string, error) {
	var buf bytes.Buffer
	data := promptData{
		Hunks:    Flatten(patches),
		Message:  message,
		MaxLines: s.cfg.MaxLinesPerHunk,
	}
	if err := userPrompt.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render line selection prompt: %w", err)
	}
	return systemPrompt, buf.String(), nil
}
