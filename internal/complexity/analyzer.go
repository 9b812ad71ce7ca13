// Package complexity classifies an incoming request's expected cost and
// proposes a processing path and timeout budget. It is pure and sits on the
// hot path of every request, so it never fails: malformed input falls back to
// a conservative classification.
package complexity

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openboard/relayq/pkg/models"
)

const (
	PathSync  = "sync"
	PathAsync = "async"
)

// Rune-length thresholds for classification. Counted in runes, not bytes,
// so multi-byte scripts are not penalized.
const (
	simpleMaxLen = 150
	mediumMaxLen = 500
)

// Timeout budget tiers, a fixed lookup so routing behavior stays auditable
// without a live worker.
var budgetByLevel = map[string]time.Duration{
	models.ComplexitySimple:  10 * time.Second,
	models.ComplexityMedium:  30 * time.Second,
	models.ComplexityComplex: 120 * time.Second,
}

// Structural cue patterns compiled once at package init.
var (
	reStructured = regexp.MustCompile(`(?i)\b(SELECT|UPDATE|DELETE|FROM|WHERE|function|class|interface|type)\b`)
	reReport     = regexp.MustCompile(`(?i)\b(report|incident|postmortem|root\s*cause)\b|보고서|리포트|장애\s*분석`)
	reAnalysis   = regexp.MustCompile(`(?i)\b(analy[sz]|diagnos|investigat|compar|trend)|분석|진단|원인`)
)

// Analysis is the analyzer's output, computed once at intake and immutable
// afterwards.
type Analysis struct {
	Level           string
	RecommendedPath string
	TimeoutBudget   time.Duration
	JobType         string
}

// Analyze classifies request content. Deterministic for identical input;
// empty or whitespace-only content yields the conservative default
// (medium, async) rather than an error.
func Analyze(content string) Analysis {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return build(models.ComplexityMedium, models.JobTypeQuery)
	}

	length := utf8.RuneCountInString(trimmed)
	hasCode := strings.Contains(trimmed, "```")
	multiPart := strings.Count(trimmed, "\n") >= 3
	structured := reStructured.MatchString(trimmed)
	jobType := inferType(trimmed)

	var level string
	switch {
	case hasCode, jobType == models.JobTypeReport, length > mediumMaxLen:
		level = models.ComplexityComplex
	case length > simpleMaxLen, structured, multiPart, jobType == models.JobTypeAnalysis:
		level = models.ComplexityMedium
	default:
		level = models.ComplexitySimple
	}

	return build(level, jobType)
}

func build(level, jobType string) Analysis {
	path := PathAsync
	if level == models.ComplexitySimple {
		path = PathSync
	}
	return Analysis{
		Level:           level,
		RecommendedPath: path,
		TimeoutBudget:   budgetByLevel[level],
		JobType:         jobType,
	}
}

func inferType(content string) string {
	switch {
	case reReport.MatchString(content):
		return models.JobTypeReport
	case reAnalysis.MatchString(content):
		return models.JobTypeAnalysis
	default:
		return models.JobTypeQuery
	}
}
