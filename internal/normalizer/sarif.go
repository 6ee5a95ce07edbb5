package normalizer

import (
	"path"
	"strings"

	"github.com/explainify/explainify/internal/findings"
	internalsarif "github.com/explainify/explainify/internal/sarif"
)

func (n *Normalizer) normalizeSARIF(raw []byte) (findings.Collection, error) {
	report, err := internalsarif.FromBytes(raw, n.logger)
	if err != nil {
		return nil, err
	}

	out := findings.Collection{}
	if len(report.Runs) == 0 {
		n.logger.Warn("SARIF report has no runs")
		return out, nil
	}

	if meta, err := report.ExtractToolNameAndVersion(); err == nil {
		n.logger.Debug("SARIF report tool", "name", meta.Name, "version", stringValue(meta.Version))
	}

	run := report.Runs[0]
	if len(internalsarif.Rules(run)) == 0 {
		n.logger.Warn("SARIF report has no rule definitions, CWE identifiers will be unknown")
	}

	for i, result := range run.Results {
		id := i + 1

		var file string
		var start, end int
		if loc, ok := internalsarif.FirstLocation(result); ok {
			file = n.sarifPath(loc.URI)
			start, end = loc.StartLine, loc.EndLine
		} else {
			n.logger.Debug("SARIF result without physical location", "id", id)
		}

		cwe, _ := internalsarif.RuleCWE(run, result)
		out.Add(newFinding(findings.SARIFScanner, id, file, start, end, internalsarif.MessageText(result), cwe))
	}

	n.logger.Debug("normalized SARIF report", "results", len(run.Results), "projects", len(out))
	return out, nil
}

// sarifPath prefixes a SARIF artifact URI so it shares its root with pattern scanner paths.
func (n *Normalizer) sarifPath(uri string) string {
	uri = strings.TrimPrefix(strings.TrimSpace(uri), "file://")
	if uri == "" {
		return ""
	}
	if n.opts.SARIFPathPrefix == "" {
		return uri
	}
	return path.Join(n.opts.SARIFPathPrefix, uri)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
