// Package explain asks a model for a written explanation of each CVE fix in a
// line-selection dataset.
package explain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/internal/dataset"
	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/internal/generation"
	"github.com/explainify/explainify/internal/lineselect"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared/files"
)

// Explanation is the model answer for one patch document.
type Explanation struct {
	Explanation   string `json:"explanation"`
	CWEID         string `json:"cwe_id"`
	CVEID         string `json:"cve_id,omitempty"`
	CommitMessage string `json:"commit_message"`
}

// Explanations maps a patch document name to its explanation.
type Explanations map[string]Explanation

// Save writes the explanations as indented JSON.
func (e Explanations) Save(path string) error {
	return files.WriteJSON(path, e)
}

// Explainer sends one prompt per dataset entry.
type Explainer struct {
	generator   generation.Generator
	store       *patchstore.Store
	cwes        map[string]string
	defaultCWE  string
	temperature float32
	logger      hclog.Logger
}

// NewExplainer creates an Explainer. cwes maps a patch document name to its
// weakness; documents without one use defaultCWE.
func NewExplainer(generator generation.Generator, store *patchstore.Store, cwes map[string]string, defaultCWE string, temperature float32, logger hclog.Logger) *Explainer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if defaultCWE == "" {
		defaultCWE = findings.UnknownCWE
	}
	return &Explainer{
		generator:   generator,
		store:       store,
		cwes:        cwes,
		defaultCWE:  defaultCWE,
		temperature: temperature,
		logger:      logger,
	}
}

// Explain returns the explanation of one entry. The repository and CVE come
// from the first record of the patch document.
func (e *Explainer) Explain(ctx context.Context, key string, entry lineselect.Entry) (Explanation, error) {
	owner := strings.TrimSuffix(key, patchstore.FileSuffix)
	records := e.store.LoadPatches(owner)

	var first patchstore.PatchRecord
	if paths := patchstore.SortedPaths(records); len(paths) > 0 {
		first = records[paths[0]]
	}
	message := entry.Message
	if message == "" {
		message = first.Message
	}
	cwe := e.cwes[key]
	if cwe == "" {
		cwe = e.defaultCWE
	}

	system, user, err := buildPrompt(promptData{
		CWEID: cwe,
		CVEID: first.CVEID,
		Repo:  first.Repo,
		Hunks: entry.Hunks(),
		Lines: entry.Lines,
	})
	if err != nil {
		return Explanation{}, err
	}

	answer, err := e.generator.Generate(ctx, generation.Request{
		System:      system,
		User:        user,
		Temperature: e.temperature,
	})
	if err != nil {
		e.logger.Error("explanation request failed", "file", key, "provider", e.generator.Name(), "error", err)
		return Explanation{}, fmt.Errorf("failed to explain %q: %w", key, err)
	}

	return Explanation{
		Explanation:   strings.TrimLeft(answer, " \t\r\n"),
		CWEID:         cwe,
		CVEID:         first.CVEID,
		CommitMessage: message,
	}, nil
}

// Run explains every entry in key order. It stops at the first failed request
// and returns the explanations gathered so far with the error.
func (e *Explainer) Run(ctx context.Context, selections lineselect.Dataset) (Explanations, error) {
	keys := make([]string, 0, len(selections))
	for k := range selections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := Explanations{}
	for _, key := range keys {
		e.logger.Info("explaining", "file", key)
		explanation, err := e.Explain(ctx, key, selections[key])
		if err != nil {
			return out, err
		}
		out[key] = explanation
	}
	e.logger.Info("explanations finished", "documents", len(out))
	return out, nil
}

// CWEsFromRecords picks a weakness per patch document from dataset records,
// preferring known values.
func CWEsFromRecords(records []dataset.Record) map[string]string {
	cwes := make(map[string]string)
	for _, r := range records {
		key := r.Owner + patchstore.FileSuffix
		for _, cwe := range r.CWE {
			if cwe == "" || cwe == findings.UnknownCWE {
				continue
			}
			if _, ok := cwes[key]; !ok {
				cwes[key] = cwe
			}
			break
		}
	}
	return cwes
}
