package models

import "time"

// RiskLevel bands an overall extraction health score.
type RiskLevel string

// Risk bands, best to worst.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// FieldHealthResult is the sampled success rate of one selector field.
type FieldHealthResult struct {
	Field       string  `json:"field"`
	Success     int     `json:"success"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`
	Degraded    bool    `json:"degraded"`
}

// HealthReport is the ephemeral product of one drift-monitor sampling run.
type HealthReport struct {
	OverallHealth      float64             `json:"overall_health"`
	RiskLevel          RiskLevel           `json:"risk_level"`
	PerField           []FieldHealthResult `json:"per_field"`
	Recommendations    []string            `json:"recommendations,omitempty"`
	StructuralChangeAt *time.Time          `json:"structural_change_at,omitempty"`
	SampledURLs        int                 `json:"sampled_urls"`
	CheckedAt          time.Time           `json:"checked_at"`
}
