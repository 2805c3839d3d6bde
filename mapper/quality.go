package mapper

import (
	"fmt"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// QualityResult is the outcome of the soft validation pass. Records with
// IsValid false are excluded from writes but never stop the run; warnings
// alone never block anything.
type QualityResult struct {
	IsValid  bool
	Warnings []string
}

// ValidateQuality runs the softer data-quality pass over a canonical record.
// A missing title makes the record invalid; everything else is a warning.
func ValidateQuality(rec models.CanonicalRecord) QualityResult {
	result := QualityResult{IsValid: true}

	if rec.Title == "" {
		result.IsValid = false
		result.Warnings = append(result.Warnings, "empty title")
	}
	if rec.Seller == "" {
		result.Warnings = append(result.Warnings, "empty seller name")
	}
	if rec.Price.Original != nil && *rec.Price.Original < rec.Price.Current {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("non-monotonic discount: original %d < current %d",
				*rec.Price.Original, rec.Price.Current))
	}
	if rec.Rating != nil && (rec.Rating.Stars < 0 || rec.Rating.Stars > 5) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("rating %v out of range", rec.Rating.Stars))
	}
	if rec.SalesCount < 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("negative sales count %d", rec.SalesCount))
	}
	return result
}
