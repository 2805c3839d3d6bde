// Package apiclient talks to the catalog's JSON product API. It is the
// quota-metered alternative to scraping: search pages carry a high fixed
// cost, per-item detail reads are cheap, and every call clears the quota
// governor before it goes out.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-catalog-sync/mapper"
	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/quota"
	"github.com/aluiziolira/go-catalog-sync/scraper"
	"github.com/aluiziolira/go-catalog-sync/store"
)

// DefaultPageSize caps how many item ids one detail request may carry.
const DefaultPageSize = 50

// Client is a quota-governed catalog API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	gov        *quota.Governor
	pageSize   int

	// Metrics is optional; the nil-safe helpers make an unset field a no-op.
	Metrics *scraper.Metrics
}

// New builds a client. A nil governor disables metering, which is only
// meant for tests.
func New(baseURL string, gov *quota.Governor, pageSize int, timeout time.Duration) *Client {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		gov:        gov,
		pageSize:   pageSize,
	}
}

// apiItem mirrors the product API's JSON shape for one item.
type apiItem struct {
	ID            string   `json:"workno"`
	Title         string   `json:"work_name"`
	Seller        string   `json:"maker_name"`
	Category      string   `json:"work_type"`
	URL           string   `json:"work_url"`
	ImageURL      string   `json:"work_image"`
	Price         int64    `json:"price"`
	OfficialPrice int64    `json:"official_price"`
	RateAverage   float64  `json:"rate_average_star"`
	RateCount     int      `json:"rate_count"`
	DownloadCount int      `json:"dl_count"`
	Genres        []string `json:"genres"`
}

type searchResponse struct {
	Items []apiItem `json:"works"`
	Total int       `json:"total_count"`
}

// Search runs one search page. The call costs quota.CostSearch regardless of
// how many results come back, so callers should prefer ItemDetails when they
// already know the ids.
func (c *Client) Search(ctx context.Context, query string, page int) ([]models.RawItemRecord, error) {
	if c.gov != nil {
		if err := c.gov.Consume(quota.OpSearch, 1); err != nil {
			c.Metrics.IncQuotaDenied()
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("keyword", query)
	params.Set("page", strconv.Itoa(page))
	var resp searchResponse
	if err := c.getJSON(ctx, "/api/search", params, &resp); err != nil {
		return nil, err
	}

	records := make([]models.RawItemRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		records = append(records, item.toRaw())
	}
	return records, nil
}

// ItemDetails fetches records for the given ids in chunks of at most the
// client page size, billing one unit per item. When the governor refuses a
// chunk the already-fetched records are returned alongside the quota error
// so a caller can sync the partial batch.
func (c *Client) ItemDetails(ctx context.Context, ids []string) ([]models.RawItemRecord, error) {
	var records []models.RawItemRecord
	for start := 0; start < len(ids); start += c.pageSize {
		end := start + c.pageSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		if c.gov != nil {
			if err := c.gov.Consume(quota.OpItemDetail, len(chunk)); err != nil {
				c.Metrics.IncQuotaDenied()
				return records, err
			}
		}

		params := url.Values{}
		params.Set("workno", strings.Join(chunk, ","))
		var items []apiItem
		if err := c.getJSON(ctx, "/api/product", params, &items); err != nil {
			return records, err
		}
		for _, item := range items {
			records = append(records, item.toRaw())
		}
	}
	return records, nil
}

// Syncer commits canonical records to the document store.
type Syncer interface {
	Sync(ctx context.Context, records []models.CanonicalRecord) (store.UpsertResult, error)
}

// IngestResult summarizes one API ingestion pass.
type IngestResult struct {
	Pages     int
	ItemsSeen int
	Skipped   int
	Created   int
	Updated   int
	Unchanged int
}

// Ingest pulls search pages for query and syncs each page through the writer,
// stopping when the results run dry or maxPages is reached (maxPages <= 0
// means no cap). Records failing mapping or the quality pass are skipped per
// record, never aborting the page. On a quota refusal the pages already
// synced stay synced and the refusal comes back to the caller.
func (c *Client) Ingest(ctx context.Context, writer Syncer, query string, maxPages int) (IngestResult, error) {
	var result IngestResult
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		raws, err := c.Search(ctx, query, page)
		if err != nil {
			return result, err
		}
		if len(raws) == 0 {
			break
		}
		result.Pages++
		result.ItemsSeen += len(raws)

		records := make([]models.CanonicalRecord, 0, len(raws))
		for _, raw := range raws {
			rec, err := mapper.ToCanonical(raw)
			if err != nil {
				result.Skipped++
				slog.Warn("api record failed mapping",
					slog.String("id", raw.ID),
					slog.Any("error", err),
				)
				continue
			}
			if quality := mapper.ValidateQuality(rec); !quality.IsValid {
				result.Skipped++
				continue
			}
			records = append(records, rec)
		}

		res, err := writer.Sync(ctx, records)
		if err != nil {
			return result, fmt.Errorf("sync api page %d: %w", page, err)
		}
		result.Created += res.Created
		result.Updated += res.Updated
		result.Unchanged += res.Unchanged
	}
	return result, nil
}

// CanSearch reports whether one more search page fits in the quota.
func (c *Client) CanSearch() bool {
	return c.gov == nil || c.gov.CanExecute(quota.OpSearch, 1)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("api request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (i apiItem) toRaw() models.RawItemRecord {
	raw := models.RawItemRecord{
		ID:          i.ID,
		Title:       i.Title,
		Seller:      i.Seller,
		Category:    i.Category,
		URL:         i.URL,
		ImageURL:    i.ImageURL,
		Price:       i.Price,
		RatingStars: i.RateAverage,
		RatingCount: i.RateCount,
		SalesCount:  i.DownloadCount,
		Tags:        i.Genres,
	}
	if i.OfficialPrice > i.Price {
		raw.OriginalPrice = i.OfficialPrice
	}
	return raw
}
