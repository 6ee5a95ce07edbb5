package sarif

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"
)

// noRuleIndex replaces negative rule indexes, which SARIF allows as "absent"
// but which do not fit the unsigned ruleIndex of the decoder.
const noRuleIndex = "4294967295"

var negativeRuleIndex = regexp.MustCompile(`("ruleIndex"\s*:\s*)-\d+`)

type Report struct {
	*sarif.Report
	logger hclog.Logger
}

type ToolMetadata struct {
	Name    string
	Version *string
}

// Location is the resolved first physical location of a result.
type Location struct {
	URI       string
	StartLine int
	EndLine   int
}

// FromBytes decodes a SARIF document.
func FromBytes(data []byte, logger hclog.Logger) (*Report, error) {
	data = negativeRuleIndex.ReplaceAll(data, []byte("${1}"+noRuleIndex))
	report, err := sarif.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SARIF report: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Report{Report: report, logger: logger}, nil
}

// ExtractToolNameAndVersion function extracts tool name and version from a sarif report
func (r Report) ExtractToolNameAndVersion() (*ToolMetadata, error) {
	if len(r.Runs) == 0 || r.Runs[0].Tool.Driver == nil {
		return nil, fmt.Errorf("report has no tool driver")
	}
	return &ToolMetadata{
		Name:    r.Runs[0].Tool.Driver.Name,
		Version: r.Runs[0].Tool.Driver.SemanticVersion,
	}, nil
}

// Rules returns the rule table of a run, nil when the run has no driver.
func Rules(run *sarif.Run) []*sarif.ReportingDescriptor {
	if run == nil || run.Tool.Driver == nil {
		return nil
	}
	return run.Tool.Driver.Rules
}

// RuleCWE resolves the result's ruleIndex into the run's rule table and returns the first
// entry of the rule's cwe property. The second value is false when any step is missing.
func RuleCWE(run *sarif.Run, result *sarif.Result) (string, bool) {
	if result == nil || result.RuleIndex == nil {
		return "", false
	}
	rules := Rules(run)
	idx := *result.RuleIndex
	if idx >= uint(len(rules)) || rules[idx] == nil {
		return "", false
	}
	return firstString(rules[idx].Properties["cwe"])
}

// firstString returns the first non-empty string of a property that is either a list or a string.
func firstString(v interface{}) (string, bool) {
	switch value := v.(type) {
	case string:
		value = strings.TrimSpace(value)
		return value, value != ""
	case []interface{}:
		if len(value) == 0 {
			return "", false
		}
		return firstString(value[0])
	case []string:
		if len(value) == 0 {
			return "", false
		}
		return firstString(value[0])
	}
	return "", false
}

// FirstLocation returns the first physical location of a result. Other locations are ignored.
// EndLine falls back to StartLine when the region has no end.
func FirstLocation(result *sarif.Result) (Location, bool) {
	if result == nil || len(result.Locations) == 0 || result.Locations[0] == nil {
		return Location{}, false
	}
	physical := result.Locations[0].PhysicalLocation
	if physical == nil || physical.ArtifactLocation == nil || physical.ArtifactLocation.URI == nil {
		return Location{}, false
	}

	loc := Location{URI: *physical.ArtifactLocation.URI}
	if region := physical.Region; region != nil {
		if region.StartLine != nil {
			loc.StartLine = *region.StartLine
		}
		if region.EndLine != nil {
			loc.EndLine = *region.EndLine
		}
	}
	if loc.EndLine < loc.StartLine {
		loc.EndLine = loc.StartLine
	}
	return loc, true
}

// MessageText returns the result message text, empty when absent.
func MessageText(result *sarif.Result) string {
	if result == nil || result.Message.Text == nil {
		return ""
	}
	return *result.Message.Text
}
