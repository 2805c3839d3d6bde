// Package health measures extraction drift. A monitor samples a fixed set of
// known-good detail pages, re-runs the selector registry against them, and
// bands the aggregate success rate into a risk level with recommendations.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-catalog-sync/extract"
	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/scraper"
	"github.com/aluiziolira/go-catalog-sync/selectors"
)

// degradedThreshold marks a field as degraded below 50% sampled success.
const degradedThreshold = 0.5

// structuralChangeFields is how many independently degraded fields count as
// evidence of a structural site change rather than isolated drift.
const structuralChangeFields = 3

// Fetcher is the sampling fetch capability.
type Fetcher interface {
	FetchURL(ctx context.Context, pageURL string) ([]byte, error)
}

// Monitor runs drift checks against the live selector registry.
type Monitor struct {
	registry   *selectors.Registry
	fetch      Fetcher
	sampleURLs []string
	metrics    *scraper.Metrics

	lastDocs []*extract.Document

	Now func() time.Time
}

// NewMonitor builds a monitor sampling the given detail-page URLs.
func NewMonitor(registry *selectors.Registry, fetch Fetcher, sampleURLs []string, metrics *scraper.Metrics) *Monitor {
	return &Monitor{
		registry:   registry,
		fetch:      fetch,
		sampleURLs: sampleURLs,
		metrics:    metrics,
		Now:        time.Now,
	}
}

// Check samples the configured pages and produces a health report. Sampling
// runs against a cloned registry so the ongoing success counters are not
// polluted. Individual sample fetch failures are tolerated as long as at
// least one page comes back.
func (m *Monitor) Check(ctx context.Context) (*models.HealthReport, error) {
	if len(m.sampleURLs) == 0 {
		return nil, fmt.Errorf("no sample urls configured")
	}

	sampling := m.registry.Clone()
	fields := selectors.DetailFields()

	var docs []*extract.Document
	for _, sampleURL := range m.sampleURLs {
		body, err := m.fetch.FetchURL(ctx, sampleURL)
		if err != nil {
			slog.Warn("health sample fetch failed",
				slog.String("url", sampleURL),
				slog.Any("error", err),
			)
			continue
		}
		doc, err := extract.ParseDocument(string(body))
		if err != nil {
			slog.Warn("health sample parse failed",
				slog.String("url", sampleURL),
				slog.Any("error", err),
			)
			continue
		}
		docs = append(docs, doc)
		for _, field := range fields {
			sampling.Resolve(doc, field)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no sample pages reachable")
	}
	m.lastDocs = docs

	stats := sampling.Stats()
	report := &models.HealthReport{
		SampledURLs: len(docs),
		CheckedAt:   m.Now(),
	}

	totalSuccess, totalAttempts := 0, 0
	degraded := 0
	for _, field := range fields {
		stat := stats[field]
		rate := stat.SuccessRate()
		isDegraded := stat.Total > 0 && rate < degradedThreshold
		if isDegraded {
			degraded++
		}
		totalSuccess += stat.Success
		totalAttempts += stat.Total
		report.PerField = append(report.PerField, models.FieldHealthResult{
			Field:       field,
			Success:     stat.Success,
			Total:       stat.Total,
			SuccessRate: rate,
			Degraded:    isDegraded,
		})
	}

	if totalAttempts > 0 {
		report.OverallHealth = float64(totalSuccess) / float64(totalAttempts)
	}
	report.RiskLevel = bandRisk(report.OverallHealth)

	if degraded >= structuralChangeFields {
		now := m.Now()
		report.StructuralChangeAt = &now
	}
	report.Recommendations = recommend(report)

	m.metrics.SetHealth(report.OverallHealth)
	slog.Info("health check complete",
		slog.Float64("overall", report.OverallHealth),
		slog.String("risk", string(report.RiskLevel)),
		slog.Int("degraded_fields", degraded),
	)
	return report, nil
}

// AutoRepair narrows the live registry to only the selectors that still work
// on the last sampled pages. It is a temporary degraded-but-functional mode:
// it runs only at critical risk, and only when at least half the fields
// still have a working selector. Returns the narrowed field names.
func (m *Monitor) AutoRepair(report *models.HealthReport) ([]string, error) {
	if report.RiskLevel != models.RiskCritical {
		return nil, fmt.Errorf("auto-repair only runs at critical risk, current is %s", report.RiskLevel)
	}
	if len(m.lastDocs) == 0 {
		return nil, fmt.Errorf("no sampled pages available, run Check first")
	}

	fields := selectors.DetailFields()
	working := make(map[string][]selectors.Rule, len(fields))
	viable := 0
	for _, field := range fields {
		rules := m.workingRules(field)
		if len(rules) > 0 {
			viable++
		}
		working[field] = rules
	}
	if viable*2 < len(fields) {
		return nil, fmt.Errorf("only %d of %d fields still viable, refusing auto-repair", viable, len(fields))
	}

	var repaired []string
	for _, result := range report.PerField {
		if !result.Degraded {
			continue
		}
		rules := working[result.Field]
		if len(rules) == 0 {
			continue
		}
		if m.registry.Narrow(result.Field, rules) {
			repaired = append(repaired, result.Field)
			slog.Warn("narrowed field to working selectors",
				slog.String("field", result.Field),
				slog.Int("rules", len(rules)),
			)
		}
	}
	return repaired, nil
}

// workingRules unions the rules that match on any sampled page, deduplicated
// in first-seen order.
func (m *Monitor) workingRules(field string) []selectors.Rule {
	seen := make(map[selectors.Rule]struct{})
	var rules []selectors.Rule
	for _, doc := range m.lastDocs {
		for _, rule := range m.registry.MatchingRules(doc, field) {
			if _, dup := seen[rule]; dup {
				continue
			}
			seen[rule] = struct{}{}
			rules = append(rules, rule)
		}
	}
	return rules
}

func bandRisk(overall float64) models.RiskLevel {
	switch {
	case overall >= 0.9:
		return models.RiskLow
	case overall >= 0.7:
		return models.RiskMedium
	case overall >= 0.5:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

func recommend(report *models.HealthReport) []string {
	var recs []string
	for _, result := range report.PerField {
		if result.Degraded {
			recs = append(recs, fmt.Sprintf("field %s needs new selectors (%.0f%% success)",
				result.Field, result.SuccessRate*100))
		}
	}
	if report.StructuralChangeAt != nil {
		recs = append(recs, "multiple fields degraded at once: likely structural site change, review the page layout")
	}
	if report.RiskLevel == models.RiskCritical && len(recs) > 0 {
		recs = append(recs, "risk critical: consider auto-repair to narrow selectors to the working set")
	}
	if len(recs) == 0 {
		recs = append(recs, "all fields healthy, no action needed")
	}
	return recs
}
