package selectors

import (
	"regexp"
	"strings"
)

// Field names shared by the extraction layer and the drift monitor.
const (
	FieldItemID        = "item_id"
	FieldTitle         = "title"
	FieldSeller        = "seller"
	FieldCategory      = "category"
	FieldPrice         = "price"
	FieldOriginalPrice = "original_price"
	FieldRating        = "rating"
	FieldRatingCount   = "rating_count"
	FieldSalesCount    = "sales_count"
	FieldImage         = "image"
	FieldDescription   = "description"
	FieldFileSize      = "file_size"
	FieldDuration      = "duration"
	FieldFormat        = "format"
	FieldDetailRating  = "detail_rating"
)

var (
	externalIDPattern = regexp.MustCompile(`[A-Z]{2}\d{4,}`)
	digitPattern      = regexp.MustCompile(`\d`)
	starClassPattern  = regexp.MustCompile(`star_\d+`)
)

func hasDigit(s string) bool { return digitPattern.MatchString(s) }

func looksLikeID(s string) bool { return externalIDPattern.MatchString(s) }

func looksLikeStarClass(s string) bool { return starClassPattern.MatchString(s) }

// ExtractID pulls the external identifier out of an href or raw text.
func ExtractID(s string) string { return externalIDPattern.FindString(s) }

func starClassOnly(s string) string { return starClassPattern.FindString(s) }

// DefaultFields returns the built-in selector configuration for the catalog
// target. The primary tier matches the current markup; secondary and fallback
// tiers cover the two prior site layouts.
func DefaultFields() []FieldConfig {
	return []FieldConfig{
		{
			Name:           FieldItemID,
			Primary:        []Rule{{Query: "dt.work_name a", Attr: "href"}},
			Secondary:      []Rule{{Query: "a.work_thumb_inner", Attr: "href"}},
			Fallback:       []Rule{{Query: "a[href*='/works/']", Attr: "href"}},
			MinSuccessRate: 0.95,
			Validate:       looksLikeID,
			Transform:      ExtractID,
		},
		{
			Name:           FieldTitle,
			Primary:        []Rule{{Query: "dt.work_name a"}},
			Secondary:      []Rule{{Query: ".work_name a", Attr: "title"}},
			Fallback:       []Rule{{Query: "h2.title, .item_title"}},
			MinSuccessRate: 0.9,
		},
		{
			Name:           FieldSeller,
			Primary:        []Rule{{Query: "dd.maker_name a"}},
			Secondary:      []Rule{{Query: ".maker_name"}},
			Fallback:       []Rule{{Query: "span.circle a"}},
			MinSuccessRate: 0.8,
		},
		{
			Name:           FieldCategory,
			Primary:        []Rule{{Query: "div.work_category a"}},
			Secondary:      []Rule{{Query: ".work_category"}},
			Fallback:       []Rule{{Query: "span.category"}},
			MinSuccessRate: 0.6,
		},
		{
			Name:           FieldPrice,
			Primary:        []Rule{{Query: "span.work_price"}},
			Secondary:      []Rule{{Query: ".work_price_wrap .price"}},
			Fallback:       []Rule{{Query: "span.price"}},
			MinSuccessRate: 0.9,
			Validate:       hasDigit,
		},
		{
			Name:           FieldOriginalPrice,
			Primary:        []Rule{{Query: "span.strike"}},
			Secondary:      []Rule{{Query: ".work_price_wrap .original_price"}},
			Fallback:       []Rule{{Query: "span.price_original"}},
			MinSuccessRate: 0.2,
			Validate:       hasDigit,
		},
		{
			Name:           FieldRating,
			Primary:        []Rule{{Query: "div.star_rating", Attr: "class"}},
			Secondary:      []Rule{{Query: ".work_rating span[class*='star_']", Attr: "class"}},
			Fallback:       []Rule{{Query: "[class*='star_']", Attr: "class"}},
			MinSuccessRate: 0.7,
			Validate:       looksLikeStarClass,
			Transform:      starClassOnly,
		},
		{
			Name:           FieldRatingCount,
			Primary:        []Rule{{Query: "div.star_rating span.count"}},
			Secondary:      []Rule{{Query: ".work_rating .count"}},
			Fallback:       []Rule{{Query: "span.rating_count"}},
			MinSuccessRate: 0.6,
			Validate:       hasDigit,
		},
		{
			Name:           FieldSalesCount,
			Primary:        []Rule{{Query: "span.work_dl span.dl_count"}},
			Secondary:      []Rule{{Query: ".work_dl"}},
			Fallback:       []Rule{{Query: "span.sales"}},
			MinSuccessRate: 0.6,
			Validate:       hasDigit,
		},
		{
			Name:           FieldImage,
			Primary:        []Rule{{Query: "div.work_img_main img", Attr: "src"}},
			Secondary:      []Rule{{Query: ".work_thumb img", Attr: "src"}},
			Fallback:       []Rule{{Query: "img[src*='/img/']", Attr: "src"}},
			MinSuccessRate: 0.8,
		},
		{
			Name:           FieldDescription,
			Primary:        []Rule{{Query: "div.work_storyline"}},
			Secondary:      []Rule{{Query: "div[itemprop='description']"}},
			Fallback:       []Rule{{Query: ".work_article"}},
			MinSuccessRate: 0.7,
		},
		{
			Name:           FieldFileSize,
			Primary:        []Rule{{Query: "div.work_capacity"}},
			Secondary:      []Rule{{Query: "th:contains('容量') + td"}},
			Fallback:       []Rule{{Query: ".file_size"}},
			MinSuccessRate: 0.6,
			Validate:       hasDigit,
		},
		{
			Name:           FieldDuration,
			Primary:        []Rule{{Query: "th:contains('再生時間') + td"}},
			Secondary:      []Rule{{Query: ".work_duration"}},
			Fallback:       []Rule{{Query: ".playtime"}},
			MinSuccessRate: 0.3,
			Validate:       hasDigit,
		},
		{
			Name:           FieldFormat,
			Primary:        []Rule{{Query: "th:contains('ファイル形式') + td"}},
			Secondary:      []Rule{{Query: ".work_format"}},
			Fallback:       []Rule{{Query: ".file_format"}},
			MinSuccessRate: 0.5,
		},
		{
			Name:           FieldDetailRating,
			Primary:        []Rule{{Query: "div.point_average[class*='star_']", Attr: "class"}},
			Secondary:      []Rule{{Query: ".work_point span[class*='star_']", Attr: "class"}},
			Fallback:       []Rule{{Query: "[class*='star_']", Attr: "class"}},
			MinSuccessRate: 0.5,
			Validate:       looksLikeStarClass,
			Transform:      starClassOnly,
		},
	}
}

// DefaultRegistry is a registry preloaded with DefaultFields.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultFields()...)
}

// listFields are the fields a listing entry is expected to expose.
var listFields = []string{
	FieldItemID, FieldTitle, FieldSeller, FieldCategory, FieldPrice,
	FieldOriginalPrice, FieldRating, FieldRatingCount, FieldSalesCount, FieldImage,
}

// detailFields are the fields sampled from detail pages.
var detailFields = []string{
	FieldTitle, FieldSeller, FieldDescription, FieldFileSize,
	FieldDuration, FieldFormat, FieldDetailRating, FieldImage,
}

// ListFields returns the listing-page field names.
func ListFields() []string { return append([]string(nil), listFields...) }

// DetailFields returns the detail-page field names.
func DetailFields() []string { return append([]string(nil), detailFields...) }

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
