package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/selectors"
)

// listContainerSelectors locate repeated listing entries, newest layout
// first. An empty match set is a valid outcome: it is how the orchestrator
// detects the end of the catalog.
var listContainerSelectors = []string{
	"li.search_result_img_box_inner",
	"table.work_1col_table tr.work_row",
	"div.search_result_list li",
	"li.work_item",
}

// Options configures an Extractor.
type Options struct {
	// BaseURL resolves relative links scraped off the page.
	BaseURL string
	// CDNBase is the image CDN root for canonical image construction.
	CDNBase string
	// DetailPath is the fmt pattern of a detail page path, taking the id.
	DetailPath string
}

// Extractor produces raw records from catalog markup.
type Extractor struct {
	reg        *selectors.Registry
	base       *url.URL
	cdnBase    string
	detailPath string
}

// New builds an extractor over the given registry.
func New(reg *selectors.Registry, opts Options) (*Extractor, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}
	detailPath := opts.DetailPath
	if detailPath == "" {
		detailPath = "/works/%s"
	}
	cdnBase := opts.CDNBase
	if cdnBase == "" {
		cdnBase = opts.BaseURL + "/img/works"
	}
	return &Extractor{
		reg:        reg,
		base:       base,
		cdnBase:    cdnBase,
		detailPath: detailPath,
	}, nil
}

// Registry returns the selector registry backing this extractor.
func (e *Extractor) Registry() *selectors.Registry { return e.reg }

// ListPage extracts every listing entry from a list page. Entries whose
// external id cannot be resolved are dropped; an empty page yields an empty
// slice and no error.
func (e *Extractor) ListPage(r io.Reader) ([]models.RawItemRecord, error) {
	doc, err := NewDocument(r)
	if err != nil {
		return nil, err
	}

	var records []models.RawItemRecord
	for _, containerSel := range listContainerSelectors {
		if doc.Count(containerSel) == 0 {
			continue
		}
		doc.Each(containerSel, func(item *Document) {
			rec, ok := e.listItem(item)
			if ok {
				records = append(records, rec)
			}
		})
		break
	}
	return records, nil
}

func (e *Extractor) listItem(item *Document) (models.RawItemRecord, bool) {
	id, ok := e.reg.Resolve(item, selectors.FieldItemID)
	if !ok {
		return models.RawItemRecord{}, false
	}

	rec := models.RawItemRecord{ID: id}
	rec.Title, _ = e.reg.Resolve(item, selectors.FieldTitle)
	rec.Seller, _ = e.reg.Resolve(item, selectors.FieldSeller)
	rec.Category, _ = e.reg.Resolve(item, selectors.FieldCategory)
	rec.URL = e.absURL(fmt.Sprintf(e.detailPath, id))

	if text, ok := e.reg.Resolve(item, selectors.FieldPrice); ok {
		if price, err := ParsePrice(text); err == nil {
			rec.Price = price
		}
	}
	if text, ok := e.reg.Resolve(item, selectors.FieldOriginalPrice); ok {
		if price, err := ParsePrice(text); err == nil {
			rec.OriginalPrice = price
		}
	}
	if class, ok := e.reg.Resolve(item, selectors.FieldRating); ok {
		// List pages encode the rating in tenths of a star.
		if stars, ok := ParseStarClass(class, 10); ok {
			rec.RatingStars = stars
		}
	}
	if text, ok := e.reg.Resolve(item, selectors.FieldRatingCount); ok {
		if count, err := ParseCount(text); err == nil {
			rec.RatingCount = count
		}
	}
	if text, ok := e.reg.Resolve(item, selectors.FieldSalesCount); ok {
		if count, err := ParseCount(text); err == nil {
			rec.SalesCount = count
		}
	}
	rec.ImageURL = e.resolveImage(item, id)
	rec.Tags = item.Texts("div.work_genre a, .search_tag a")
	rec.SampleImages = e.sampleImages(item)
	return rec, true
}

// resolveImage follows the image priority chain: deterministic CDN URL from
// the id, then the scraped main image upgraded to full size, then any URL
// already matching the full-size convention.
func (e *Extractor) resolveImage(doc *Document, id string) string {
	if u := CanonicalImageURL(e.cdnBase, id); u != "" {
		return u
	}
	if src, ok := e.reg.Resolve(doc, selectors.FieldImage); ok {
		return UpgradeImageURL(e.absURL(src))
	}
	for _, src := range doc.Attrs("img", "src") {
		if IsFullSizeImageURL(src) {
			return e.absURL(src)
		}
	}
	return ""
}

func (e *Extractor) sampleImages(doc *Document) []string {
	var out []string
	for _, src := range doc.Attrs("img.sample_img, .work_sample img", "src") {
		out = append(out, e.absURL(src))
	}
	return out
}

func (e *Extractor) absURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return e.base.ResolveReference(ref).String()
}
