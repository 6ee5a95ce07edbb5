// Package lineselect asks a model which added lines of a CVE fix matter most and
// collects the answers into the line-selection dataset.
package lineselect

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/internal/generation"
	"github.com/explainify/explainify/internal/hunks"
	"github.com/explainify/explainify/internal/llmjson"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/pkg/shared/config"
	"github.com/explainify/explainify/pkg/shared/files"
)

// LineSelection lists the lines the model picked from one hunk.
type LineSelection struct {
	PatchIndex int      `json:"patch_index"`
	Lines      []string `json:"lines"`
}

// Entry is the dataset unit of one patch document. Patches is keyed by the
// position of the file in the document (sorted by path) and holds its hunks.
// PatchIndex values in Lines count hunks over all files, starting at 1, as
// returned by Hunks.
type Entry struct {
	Patches map[int][]string `json:"patches"`
	Message string           `json:"message"`
	Lines   []LineSelection  `json:"lines"`
}

// Hunks numbers the hunks of the entry the way they were shown to the model.
func (e Entry) Hunks() []hunks.Hunk {
	return Flatten(e.Patches)
}

// Hunk returns the hunk a selection points at. Out of range indices give false.
func (e Entry) Hunk(patchIndex int) (hunks.Hunk, bool) {
	return hunks.ByIndex(e.Hunks(), patchIndex)
}

// Dataset maps a patch document name to its entry.
type Dataset map[string]Entry

// Save writes the dataset as indented JSON.
func (d Dataset) Save(path string) error {
	return files.WriteJSON(path, d)
}

// LoadDataset reads a dataset written by Save.
func LoadDataset(path string) (Dataset, error) {
	d := Dataset{}
	if err := files.ReadJSON(path, &d); err != nil {
		return nil, fmt.Errorf("failed to read line selection dataset %q: %w", path, err)
	}
	return d, nil
}

// Config tunes the selection requests.
type Config struct {
	MaxLinesPerHunk int
	// BatchSize caps the number of documents sent in one run. Zero means no cap.
	BatchSize   int
	Temperature float32
}

// ConfigFrom reads the selection settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxLinesPerHunk: cfg.LineSelection.MaxLinesPerHunk,
		BatchSize:       cfg.LineSelection.BatchSize,
		Temperature:     cfg.LLM.Temperature,
	}
}

// Selector sends hunk sets to a Generator and parses the answers.
type Selector struct {
	generator generation.Generator
	cfg       Config
	logger    hclog.Logger
}

// NewSelector creates a Selector.
func NewSelector(generator generation.Generator, cfg Config, logger hclog.Logger) *Selector {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.MaxLinesPerHunk <= 0 {
		cfg.MaxLinesPerHunk = 10
	}
	return &Selector{generator: generator, cfg: cfg, logger: logger}
}

// Patches splits every diff of a patch document into hunks, keyed by the
// position of its path in sorted order. The message of the last path is
// returned with them.
func Patches(records map[string]patchstore.PatchRecord) (map[int][]string, string) {
	patches := make(map[int][]string, len(records))
	var message string
	for i, p := range patchstore.SortedPaths(records) {
		patches[i] = hunks.Texts(hunks.Split(records[p].Diff))
		message = records[p].Message
	}
	return patches, message
}

// Flatten numbers the hunks of patches from 1 over all files in key order.
func Flatten(patches map[int][]string) []hunks.Hunk {
	keys := make([]int, 0, len(patches))
	for k := range patches {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	groups := make([][]hunks.Hunk, 0, len(keys))
	for _, k := range keys {
		group := make([]hunks.Hunk, 0, len(patches[k]))
		for i, text := range patches[k] {
			group = append(group, hunks.Hunk{Index: i + 1, Text: text})
		}
		groups = append(groups, group)
	}
	return hunks.Flatten(groups...)
}

// Select asks for the important lines of one document. It returns false when
// the request fails or the answer is not valid JSON; both are logged.
func (s *Selector) Select(ctx context.Context, key string, patches map[int][]string, message string) (Entry, bool) {
	system, user, err := s.BuildPrompt(patches, message)
	if err != nil {
		s.logger.Error("failed to build prompt", "file", key, "error", err)
		return Entry{}, false
	}

	answer, err := s.generator.Generate(ctx, generation.Request{
		System:      system,
		User:        user,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.logger.Error("line selection request failed", "file", key, "provider", s.generator.Name(), "error", err)
		return Entry{}, false
	}

	lines, err := llmjson.Decode[[]LineSelection](answer)
	if err != nil {
		s.logger.Warn("invalid answer, skipping", "file", key, "answer", answer, "error", err)
		return Entry{}, false
	}
	if lines == nil {
		lines = []LineSelection{}
	}

	return Entry{Patches: patches, Message: message, Lines: lines}, true
}

// Run selects lines for every patch document of store, in owner order. Failing
// documents are left out of the dataset.
func (s *Selector) Run(ctx context.Context, store *patchstore.Store) (Dataset, error) {
	owners, err := store.Owners()
	if err != nil {
		return nil, err
	}

	dataset := Dataset{}
	sent := 0
	for _, owner := range owners {
		if s.cfg.BatchSize > 0 && sent >= s.cfg.BatchSize {
			s.logger.Info("batch size reached", "batch_size", s.cfg.BatchSize)
			break
		}
		key := owner + patchstore.FileSuffix

		records := store.LoadPatches(owner)
		if len(records) == 0 {
			continue
		}
		patches, message := Patches(records)
		if len(Flatten(patches)) == 0 {
			s.logger.Debug("no hunks in patch file", "file", key)
			continue
		}

		sent++
		s.logger.Info("selecting lines", "file", key, "files", len(patches))
		entry, ok := s.Select(ctx, key, patches, message)
		if !ok {
			continue
		}
		dataset[key] = entry
	}

	s.logger.Info("line selection finished", "documents", len(owners), "selected", len(dataset))
	return dataset, nil
}
