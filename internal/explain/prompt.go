package explain

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/explainify/explainify/internal/hunks"
	"github.com/explainify/explainify/internal/lineselect"
)

var systemPrompt = template.Must(template.New("system").Parse(
	`You are a security analyst. You are analyzing code commits that are related to the CWE: {{.CWEID}}.`))

var userPrompt = template.Must(template.New("explanation").Parse(`Each commit includes:
- CVE ID(s)
- Repository and commit hash
- Commit message
- Code changes (diffs)

Your task is:
1. Explain what the commit is fixing or mitigating.
2. Describe how this commit relates to the CWE ({{.CWEID}}).
3. Provide a short explanation of the risk if the issue had not been fixed.
4. Keep the explanation clear and concise for a technical audience.

Here is the commit to analyze:

CVE(s): {{.CVEID}}
Repository: {{.Repo}}

The most relevant diffs:
{{range .Hunks}}
[patch_index {{.Index}}]
{{.Text}}{{end}}
Most important lines in the diff:
{{range .Lines}}
[patch_index {{.PatchIndex}}]
{{range .Lines}}{{.}}
{{end}}{{end}}
---

Now provide your explanation by filling in the following template:
- Vulnerability Type:
- Severity:
- Root cause:
- Exploit scenario:
- Why it happens:
- Security implications:
- Suggested fix: [do not mention the actual diff or the commit message, describe it as if you suggested the fix]
`))

type promptData struct {
	CWEID string
	CVEID string
	Repo  string
	Hunks []hunks.Hunk
	Lines []lineselect.LineSelection
}

func buildPrompt(data promptData) (string, string, error) {
	var system, user bytes.Buffer
	if err := systemPrompt.Execute(&system, data); err != nil {
		return "", "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	if err := userPrompt.Execute(&user, data); err != nil {
		return "", "", fmt.Errorf("failed to render explanation prompt: %w", err)
	}
	return system.String(), user.String(), nil
}
