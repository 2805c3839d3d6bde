package extract

import (
	"io"
	"strings"

	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/selectors"
)

// creditRoles are the attribute-table keys treated as contributor credits.
var creditRoles = []string{"声優", "シナリオ", "イラスト", "音楽", "作者", "デザイン"}

// DetailPage extracts the independently recoverable facets of a detail page.
// Facets are merged with partial-success semantics: a miss in one never
// clears the others, so the caller always gets whatever the page still
// exposes.
func (e *Extractor) DetailPage(id string, r io.Reader) (models.DetailRecord, error) {
	doc, err := NewDocument(r)
	if err != nil {
		return models.DetailRecord{}, err
	}

	det := models.DetailRecord{ID: id}
	det.Attributes = extractAttributes(doc)
	det.FileInfo = e.extractFileInfo(doc, det.Attributes)
	det.Credits = extractCredits(det.Attributes)
	det.BonusNotes = doc.Texts("div.work_bonus li, .bonus_content li")
	det.Description, _ = e.reg.Resolve(doc, selectors.FieldDescription)
	det.ImageURL = e.resolveImage(doc, id)

	if class, ok := e.reg.Resolve(doc, selectors.FieldDetailRating); ok {
		// Detail pages carry hundredths precision (star_450 -> 4.50).
		if stars, ok := ParseStarClass(class, 100); ok {
			det.RatingStars = stars
			det.HasRating = true
		}
	}
	return det, nil
}

// extractAttributes reads the basic attributes table into key/value pairs.
func extractAttributes(doc *Document) map[string]string {
	attrs := make(map[string]string)
	doc.Each("table#work_outline tr, table.work_outline tr", func(row *Document) {
		key := selectors.NormalizeWhitespace(row.Text("th"))
		value := selectors.NormalizeWhitespace(row.Text("td"))
		if key != "" && value != "" {
			attrs[key] = value
		}
	})
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func (e *Extractor) extractFileInfo(doc *Document, attrs map[string]string) models.FileInfo {
	var info models.FileInfo

	if text, ok := e.reg.Resolve(doc, selectors.FieldFileSize); ok {
		if size, err := ParseSize(text); err == nil {
			info.SizeBytes = size
		}
	}
	if info.SizeBytes == 0 {
		if text, ok := attrs["ファイル容量"]; ok {
			if size, err := ParseSize(text); err == nil {
				info.SizeBytes = size
			}
		}
	}

	if text, ok := e.reg.Resolve(doc, selectors.FieldDuration); ok {
		if seconds, err := ParseDuration(text); err == nil {
			info.DurationSeconds = seconds
		}
	}
	if info.DurationSeconds == 0 {
		if text, ok := attrs["再生時間"]; ok {
			if seconds, err := ParseDuration(text); err == nil {
				info.DurationSeconds = seconds
			}
		}
	}

	if format, ok := e.reg.Resolve(doc, selectors.FieldFormat); ok {
		info.Format = format
	} else if text, ok := attrs["ファイル形式"]; ok {
		info.Format = text
	}
	return info
}

// extractCredits pulls contributor credits out of the attributes table. Names
// under one role are split on the separators the source uses.
func extractCredits(attrs map[string]string) []models.Credit {
	var credits []models.Credit
	for _, role := range creditRoles {
		value, ok := attrs[role]
		if !ok {
			continue
		}
		for _, name := range splitNames(value) {
			credits = append(credits, models.Credit{Role: role, Name: name})
		}
	}
	if len(credits) == 0 {
		return nil
	}
	return credits
}

func splitNames(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '、' || r == ','
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
