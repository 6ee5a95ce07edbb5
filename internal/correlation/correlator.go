package correlation

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/explainify/explainify/internal/findings"
	"github.com/explainify/explainify/internal/patchstore"
)

// PatchSource loads the patch records of a repository owner.
type PatchSource interface {
	LoadPatches(owner string) map[string]patchstore.PatchRecord
}

// Agreement is a location reported by every tool, joined with the commit diff of its file.
type Agreement struct {
	File            string                                `json:"file"`
	StartLine       int                                   `json:"start_line"`
	Owner           string                                `json:"owner"`
	PatchPath       string                                `json:"patch_path"`
	CVEID           string                                `json:"cve_id,omitempty"`
	Diff            string                                `json:"diff"`
	Message         string                                `json:"message,omitempty"`
	PerToolFindings map[findings.Tool][]findings.Finding `json:"per_tool_findings"`
}

// Correlator computes which locations all tools agree on and resolves each agreed
// location to the patch of its file. Use NewCorrelator and call Process(); after
// processing, Agreed(), Agreements() and Exclusive() expose the results. Process is
// idempotent.
type Correlator struct {
	Indices map[findings.Tool]LocationIndex

	patches PatchSource
	logger  hclog.Logger

	// populated by Process()
	tools      []findings.Tool
	agreed     []Location
	agreements []Agreement
	processed  bool
}

// NewCorrelator creates a Correlator over one index per tool. The correlator is
// inert until Process() is called.
func NewCorrelator(indices map[findings.Tool]LocationIndex, patches PatchSource, logger hclog.Logger) *Correlator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Correlator{
		Indices: indices,
		patches: patches,
		logger:  logger,
	}
}

// Process intersects the location sets of all tools and joins every agreed location
// with the patch whose path has the same basename as the finding file. Locations
// without such a patch are skipped. Fewer than two tools never agree.
func (c *Correlator) Process() {
	if c.processed {
		return
	}
	c.processed = true

	c.tools = make([]findings.Tool, 0, len(c.Indices))
	for tool := range c.Indices {
		c.tools = append(c.tools, tool)
	}
	sort.Slice(c.tools, func(i, j int) bool { return c.tools[i] < c.tools[j] })

	if len(c.tools) < 2 {
		c.logger.Warn("correlation needs at least two tools", "tools", len(c.tools))
		return
	}

	indices := make([]LocationIndex, 0, len(c.tools))
	for _, tool := range c.tools {
		indices = append(indices, c.Indices[tool])
	}
	c.agreed = Intersect(indices...)

	// patch documents are loaded once per owner
	loaded := map[string]map[string]patchstore.PatchRecord{}

	for _, loc := range c.agreed {
		perTool := make(map[findings.Tool][]findings.Finding, len(c.tools))
		for _, tool := range c.tools {
			perTool[tool] = c.Indices[tool][loc]
		}
		owner := perTool[c.tools[0]][0].Project

		records, ok := loaded[owner]
		if !ok {
			records = c.patches.LoadPatches(owner)
			loaded[owner] = records
		}

		// one agreement per location, even when several changed files share the basename
		patch, ok := patchstore.MatchBasename(records, loc.File)
		if !ok {
			c.logger.Debug("no patch for agreed location", "file", loc.File, "line", loc.StartLine, "owner", owner)
			continue
		}

		c.agreements = append(c.agreements, Agreement{
			File:            loc.File,
			StartLine:       loc.StartLine,
			Owner:           owner,
			PatchPath:       patch.Path,
			CVEID:           patch.CVEID,
			Diff:            patch.Diff,
			Message:         patch.Message,
			PerToolFindings: perTool,
		})
	}

	c.logger.Debug("correlation finished", "agreed", len(c.agreed), "with_patch", len(c.agreements))
}

// Agreed returns every location present in all indices, with or without a patch.
func (c *Correlator) Agreed() []Location {
	c.Process()
	return c.agreed
}

// Agreements returns the agreed locations that were resolved to a patch, ordered by location.
func (c *Correlator) Agreements() []Agreement {
	c.Process()
	return c.agreements
}

// Exclusive returns the findings of tool at locations no other tool reported.
func (c *Correlator) Exclusive(tool findings.Tool) []findings.Finding {
	c.Process()

	own, ok := c.Indices[tool]
	if !ok {
		return nil
	}
	others := LocationIndex{}
	for other, idx := range c.Indices {
		if other == tool {
			continue
		}
		for loc := range idx {
			others[loc] = nil
		}
	}
	return Difference(own, others)
}

// Result is the persisted outcome of a correlation run.
type Result struct {
	Agreements []Agreement
	// Exclusive is only filled when tool exclusive findings were requested.
	Exclusive map[findings.Tool][]findings.Finding
}

// NewResult collects the results of c, including exclusive findings when requested.
func NewResult(c *Correlator, exclusive bool) Result {
	res := Result{Agreements: c.Agreements()}
	if res.Agreements == nil {
		res.Agreements = []Agreement{}
	}
	if exclusive {
		res.Exclusive = map[findings.Tool][]findings.Finding{}
		for tool := range c.Indices {
			only := c.Exclusive(tool)
			if only == nil {
				only = []findings.Finding{}
			}
			res.Exclusive[tool] = only
		}
	}
	return res
}

// MarshalJSON writes {"agreements": [...]} plus one "only_<tool>" list per tool.
func (r Result) MarshalJSON() ([]byte, error) {
	doc := map[string]interface{}{"agreements": r.Agreements}
	for tool, fs := range r.Exclusive {
		doc["only_"+string(tool)] = fs
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads a document written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.Agreements = nil
	r.Exclusive = nil
	for key, raw := range doc {
		if key == "agreements" {
			if err := json.Unmarshal(raw, &r.Agreements); err != nil {
				return err
			}
			continue
		}
		tool, ok := strings.CutPrefix(key, "only_")
		if !ok {
			continue
		}
		var fs []findings.Finding
		if err := json.Unmarshal(raw, &fs); err != nil {
			return err
		}
		if r.Exclusive == nil {
			r.Exclusive = map[findings.Tool][]findings.Finding{}
		}
		r.Exclusive[findings.Tool(tool)] = fs
	}
	return nil
}
