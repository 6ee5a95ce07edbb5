// Package dataset joins agreed findings, their fixing diffs, source context and
// selected lines into the records handed to the explanation stage.
package dataset

import (
	"path"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/internal/correlation"
	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/internal/hunks"
	"github.com/explainify/explainify/internal/lineselect"
	"github.com/explainify/explainify/internal/patchstore"
	"github.com/explainify/explainify/internal/snippet"
	"github.com/explainify/explainify/pkg/shared/files"
)

// Record is one agreed finding location with everything known about its fix.
// Hunk indexes count over every file of the owner's patch document, the same
// numbering as the patch_index of Selections.
type Record struct {
	ID              uuid.UUID                             `json:"id"`
	File            string                                `json:"file"`
	StartLine       int                                   `json:"start_line"`
	EndLine         int                                   `json:"end_line"`
	Owner           string                                `json:"owner"`
	CVEID           string                                `json:"cve_id"`
	CWE             []string                              `json:"cwe"`
	Message         string                                `json:"message"`
	Hunks           []hunks.Hunk                          `json:"hunks"`
	MatchedHunk     int                                   `json:"matched_hunk"`
	SourceContext   string                                `json:"source_context"`
	Selections      []lineselect.LineSelection            `json:"selections,omitempty"`
	PerToolFindings map[findings.Tool][]findings.Finding `json:"per_tool_findings"`
}

// Builder creates records from correlation agreements.
type Builder struct {
	extractor  *snippet.Extractor
	downloads  string
	patches    correlation.PatchSource
	selections lineselect.Dataset
	documents  map[string]map[string]patchstore.PatchRecord
	logger     hclog.Logger
	newID      func() uuid.UUID
}

// NewBuilder creates a Builder. Source files are looked up as
// <downloads>/<owner>/new/<basename>. patches supplies the full patch document of
// an owner, which fixes the hunk numbering shared with selections. selections
// may be nil.
func NewBuilder(extractor *snippet.Extractor, downloads string, patches correlation.PatchSource, selections lineselect.Dataset, logger hclog.Logger) *Builder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Builder{
		extractor:  extractor,
		downloads:  downloads,
		patches:    patches,
		selections: selections,
		documents:  make(map[string]map[string]patchstore.PatchRecord),
		logger:     logger,
		newID:      uuid.New,
	}
}

// SourcePath returns where the fixed version of file is stored for owner.
func (b *Builder) SourcePath(owner, file string) string {
	return filepath.Join(b.downloads, owner, "new", path.Base(filepath.ToSlash(file)))
}

// Build returns one record per agreement, in agreement order.
func (b *Builder) Build(agreements []correlation.Agreement) []Record {
	records := make([]Record, 0, len(agreements))
	for _, a := range agreements {
		records = append(records, b.record(a))
	}
	b.logger.Debug("dataset records built", "records", len(records))
	return records
}

// hunkOffset returns how many hunks precede the agreement's file in its patch
// document, with paths in sorted order. This is the numbering lineselect.Flatten
// shows to the model.
func (b *Builder) hunkOffset(a correlation.Agreement) int {
	records, ok := b.documents[a.Owner]
	if !ok {
		if b.patches != nil {
			records = b.patches.LoadPatches(a.Owner)
		}
		b.documents[a.Owner] = records
	}

	offset := 0
	for _, p := range patchstore.SortedPaths(records) {
		if p == a.PatchPath {
			return offset
		}
		offset += len(hunks.Split(records[p].Diff))
	}
	if len(records) > 0 {
		b.logger.Debug("patch path not in document, numbering hunks from 1", "owner", a.Owner, "path", a.PatchPath)
	}
	return 0
}

func (b *Builder) record(a correlation.Agreement) Record {
	offset := b.hunkOffset(a)
	split := hunks.Split(a.Diff)
	for i := range split {
		split[i].Index += offset
	}

	r := Record{
		ID:              b.newID(),
		File:            a.File,
		StartLine:       a.StartLine,
		EndLine:         endLine(a),
		Owner:           a.Owner,
		CVEID:           a.CVEID,
		CWE:             cweUnion(a.PerToolFindings),
		Message:         a.Message,
		Hunks:           split,
		PerToolFindings: a.PerToolFindings,
	}
	if h, ok := hunks.ForLine(split, a.StartLine); ok {
		r.MatchedHunk = h.Index
	}
	r.SourceContext = b.extractor.File(b.SourcePath(a.Owner, a.File), r.StartLine, r.EndLine)

	if entry, ok := b.selections[a.Owner+patchstore.FileSuffix]; ok {
		for _, sel := range entry.Lines {
			if sel.PatchIndex > offset && sel.PatchIndex <= offset+len(split) {
				r.Selections = append(r.Selections, sel)
			}
		}
		if r.Message == "" {
			r.Message = entry.Message
		}
	}
	return r
}

// endLine is the largest end line any tool reported for the location.
func endLine(a correlation.Agreement) int {
	end := a.StartLine
	for _, fs := range a.PerToolFindings {
		for _, f := range fs {
			if f.EndLine > end {
				end = f.EndLine
			}
		}
	}
	return end
}

func cweUnion(perTool map[findings.Tool][]findings.Finding) []string {
	seen := map[string]struct{}{}
	for _, fs := range perTool {
		for _, f := range fs {
			if f.CWE == "" {
				continue
			}
			seen[f.CWE] = struct{}{}
		}
	}
	if len(seen) > 1 {
		delete(seen, findings.UnknownCWE)
	}
	out := make([]string, 0, len(seen))
	for cwe := range seen {
		out = append(out, cwe)
	}
	sort.Strings(out)
	return out
}

// Save writes records as indented JSON.
func Save(path string, records []Record) error {
	return files.WriteJSON(path, records)
}

// Load reads records written by Save.
func Load(path string) ([]Record, error) {
	var records []Record
	if err := files.ReadJSON(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}
