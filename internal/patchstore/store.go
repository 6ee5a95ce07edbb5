// Package patchstore reads and writes the per-owner patch documents
// (<owner>_patch.json) that map a changed file path to its commit diff.
package patchstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/pkg/shared/files"
)

// FileSuffix is appended to the owner to name its patch document.
const FileSuffix = "_patch.json"

var ErrInvalidOwner = errors.New("invalid owner")

// PatchRecord is one changed file of a CVE fixing commit.
type PatchRecord struct {
	Owner   string          `json:"-"`
	Path    string          `json:"-"`
	CVEID   string          `json:"cve_id"`
	Repo    string          `json:"repo"`
	File    json.RawMessage `json:"file,omitempty"`
	Diff    string          `json:"diff"`
	Message string          `json:"message"`
}

// FileName returns the original path stored in the record. Older documents store
// the upstream file object instead of a string; its "filename" is used then.
func (r PatchRecord) FileName() string {
	if len(r.File) == 0 {
		return r.Path
	}
	var name string
	if err := json.Unmarshal(r.File, &name); err == nil && name != "" {
		return name
	}
	var object struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(r.File, &object); err == nil && object.Filename != "" {
		return object.Filename
	}
	return r.Path
}

// Store is a folder of patch documents.
type Store struct {
	dir    string
	logger hclog.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the store folder.
func (s *Store) Dir() string {
	return s.dir
}

// DocumentPath returns the path of the owner's patch document.
func (s *Store) DocumentPath(owner string) string {
	return filepath.Join(s.dir, owner+FileSuffix)
}

// LoadPatches returns the owner's records keyed by path. A missing or unparsable
// document is logged and yields an empty map.
func (s *Store) LoadPatches(owner string) map[string]PatchRecord {
	if err := validateOwner(owner); err != nil {
		s.logger.Warn("patch file not found", "owner", owner, "error", err)
		return map[string]PatchRecord{}
	}
	return s.LoadDocument(s.DocumentPath(owner), owner)
}

// LoadDocument reads a patch document from an explicit path.
func (s *Store) LoadDocument(docPath, owner string) map[string]PatchRecord {
	data, err := os.ReadFile(docPath)
	if err != nil {
		s.logger.Warn("patch file not found", "owner", owner, "path", docPath, "error", err)
		return map[string]PatchRecord{}
	}

	var doc map[string]PatchRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("patch file unparsable", "owner", owner, "path", docPath, "error", err)
		return map[string]PatchRecord{}
	}

	out := make(map[string]PatchRecord, len(doc))
	for p, rec := range doc {
		rec.Owner = owner
		rec.Path = p
		out[p] = rec
	}
	return out
}

// FindPatch returns every diff of the owner that contains literal, ordered by path.
// The match is a plain substring test.
func (s *Store) FindPatch(literal, owner string) []string {
	records := s.LoadPatches(owner)
	var out []string
	for _, p := range SortedPaths(records) {
		if strings.Contains(records[p].Diff, literal) {
			out = append(out, records[p].Diff)
		}
	}
	return out
}

// ByBasename returns the owner's record whose path has the same basename as file.
func (s *Store) ByBasename(owner, file string) (PatchRecord, bool) {
	return MatchBasename(s.LoadPatches(owner), file)
}

// MatchBasename picks the record whose path basename equals the basename of file.
// When several paths share the basename the lexicographically first path wins,
// so a finding is joined with at most one changed file. Other changed files
// with the same basename never produce an agreement for it.
func MatchBasename(records map[string]PatchRecord, file string) (PatchRecord, bool) {
	want := path.Base(filepath.ToSlash(file))
	for _, p := range SortedPaths(records) {
		if path.Base(filepath.ToSlash(p)) == want {
			return records[p], true
		}
	}
	return PatchRecord{}, false
}

// Owners lists the owners that have a patch document, sorted.
func (s *Store) Owners() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list patch folder %q: %w", s.dir, err)
	}
	var owners []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		owners = append(owners, strings.TrimSuffix(name, FileSuffix))
	}
	sort.Strings(owners)
	return owners, nil
}

// SavePatches merges records into the owner's document. Semicolons in diffs and
// messages are replaced by commas.
func (s *Store) SavePatches(owner string, records map[string]PatchRecord) error {
	if err := validateOwner(owner); err != nil {
		return err
	}

	doc := map[string]PatchRecord{}
	if _, err := os.Stat(s.DocumentPath(owner)); err == nil {
		doc = s.LoadPatches(owner)
	}
	for p, rec := range records {
		rec.Diff = Sanitize(rec.Diff)
		rec.Message = Sanitize(rec.Message)
		if len(rec.File) == 0 {
			raw, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to encode file name %q: %w", p, err)
			}
			rec.File = raw
		}
		doc[p] = rec
	}

	if err := files.WriteJSON(s.DocumentPath(owner), doc); err != nil {
		return fmt.Errorf("failed to write patch file for %q: %w", owner, err)
	}
	s.logger.Debug("patch file written", "owner", owner, "records", len(doc))
	return nil
}

// Sanitize replaces the field separator used by the commit list files.
func Sanitize(s string) string {
	return strings.ReplaceAll(s, ";", ",")
}

// SortedPaths returns the record paths in ascending order.
func SortedPaths(records map[string]PatchRecord) []string {
	paths := make([]string, 0, len(records))
	for p := range records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func validateOwner(owner string) error {
	if owner == "" || owner == "." || owner == ".." || strings.ContainsAny(owner, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidOwner, owner)
	}
	return nil
}
