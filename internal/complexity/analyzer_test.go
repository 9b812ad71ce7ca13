package complexity_test

import (
	"strings"
	"testing"
	"time"

	"github.com/openboard/relayq/internal/complexity"
	"github.com/openboard/relayq/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestAnalyze_ShortQueryIsSimpleSync(t *testing.T) {
	a := complexity.Analyze("서버 상태?")

	assert.Equal(t, models.ComplexitySimple, a.Level)
	assert.Equal(t, complexity.PathSync, a.RecommendedPath)
	assert.Equal(t, models.JobTypeQuery, a.JobType)
	assert.Equal(t, 10*time.Second, a.TimeoutBudget)
}

func TestAnalyze_LongQueryIsComplexAsync(t *testing.T) {
	a := complexity.Analyze(strings.Repeat("x", 3000))

	assert.Equal(t, models.ComplexityComplex, a.Level)
	assert.Equal(t, complexity.PathAsync, a.RecommendedPath)
	assert.Equal(t, 120*time.Second, a.TimeoutBudget)
}

func TestAnalyze_EmptyInputDefaultsConservatively(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t"} {
		a := complexity.Analyze(content)
		assert.Equal(t, models.ComplexityMedium, a.Level, "content %q", content)
		assert.Equal(t, complexity.PathAsync, a.RecommendedPath)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	content := "compare cpu usage trends across web-01 and web-02 over the last week"
	first := complexity.Analyze(content)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, complexity.Analyze(content))
	}
}

func TestAnalyze_Classification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		level   string
		jobType string
		path    string
	}{
		{
			name:    "plain short question",
			content: "is web-03 up?",
			level:   models.ComplexitySimple,
			jobType: models.JobTypeQuery,
			path:    complexity.PathSync,
		},
		{
			name:    "code fence forces complex",
			content: "why does this fail?\n```\nSELECT 1\n```",
			level:   models.ComplexityComplex,
			jobType: models.JobTypeQuery,
			path:    complexity.PathAsync,
		},
		{
			name:    "sql keywords bump to medium",
			content: "SELECT count(*) FROM requests WHERE status = 500",
			level:   models.ComplexityMedium,
			jobType: models.JobTypeQuery,
			path:    complexity.PathAsync,
		},
		{
			name:    "analysis keyword infers analysis type",
			content: "analyze the memory spike on db-01",
			level:   models.ComplexityMedium,
			jobType: models.JobTypeAnalysis,
			path:    complexity.PathAsync,
		},
		{
			name:    "report request is complex",
			content: "generate an incident report for yesterday's outage",
			level:   models.ComplexityComplex,
			jobType: models.JobTypeReport,
			path:    complexity.PathAsync,
		},
		{
			name:    "korean report request",
			content: "어제 장애 분석 보고서 작성해줘",
			level:   models.ComplexityComplex,
			jobType: models.JobTypeReport,
			path:    complexity.PathAsync,
		},
		{
			name:    "multi-line content is at least medium",
			content: "check these\nweb-01\nweb-02\nweb-03\nweb-04",
			level:   models.ComplexityMedium,
			jobType: models.JobTypeQuery,
			path:    complexity.PathAsync,
		},
		{
			name:    "medium length text",
			content: strings.Repeat("서버 ", 60),
			level:   models.ComplexityMedium,
			jobType: models.JobTypeQuery,
			path:    complexity.PathAsync,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := complexity.Analyze(tt.content)
			assert.Equal(t, tt.level, a.Level)
			assert.Equal(t, tt.jobType, a.JobType)
			assert.Equal(t, tt.path, a.RecommendedPath)
		})
	}
}

func TestAnalyze_BudgetMatchesLevel(t *testing.T) {
	budgets := map[string]time.Duration{
		models.ComplexitySimple:  10 * time.Second,
		models.ComplexityMedium:  30 * time.Second,
		models.ComplexityComplex: 120 * time.Second,
	}
	for _, content := range []string{"hi", strings.Repeat("a", 200), strings.Repeat("a", 600)} {
		a := complexity.Analyze(content)
		assert.Equal(t, budgets[a.Level], a.TimeoutBudget)
	}
}
