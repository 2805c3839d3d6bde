package extract

import (
	"strings"
	"testing"

	"github.com/aluiziolira/go-catalog-sync/selectors"
)

const listPageFixture = `
<html><body><ul>
<li class="search_result_img_box_inner">
  <dt class="work_name"><a href="/works/RJ123456.html">Sample Work</a></dt>
  <dd class="maker_name"><a href="/maker/x">Sample Circle</a></dd>
  <div class="work_category"><a href="#">Voice</a></div>
  <span class="work_price">1,100円</span>
  <span class="strike">2,200円</span>
  <div class="star_rating star_45"><span class="count">321</span></div>
  <span class="work_dl"><span class="dl_count">5,432</span></span>
  <div class="work_genre"><a href="#">healing</a><a href="#">asmr</a></div>
</li>
<li class="search_result_img_box_inner">
  <dt class="work_name"><a href="/works/RJ200001.html">Second Work</a></dt>
  <dd class="maker_name"><a href="/maker/y">Other Circle</a></dd>
  <span class="work_price">880円</span>
</li>
<li class="search_result_img_box_inner">
  <dt class="work_name"><a href="/about.html">Not an item</a></dt>
</li>
</ul></body></html>`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(selectors.DefaultRegistry(), Options{BaseURL: "https://catalog.example.com"})
	if err != nil {
		t.Fatalf("building extractor: %v", err)
	}
	return e
}

func TestListPage(t *testing.T) {
	e := newTestExtractor(t)
	records, err := e.ListPage(strings.NewReader(listPageFixture))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (entry without id dropped), got %d", len(records))
	}

	first := records[0]
	if first.ID != "RJ123456" {
		t.Fatalf("id = %q", first.ID)
	}
	if first.Title != "Sample Work" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.Seller != "Sample Circle" {
		t.Fatalf("seller = %q", first.Seller)
	}
	if first.Category != "Voice" {
		t.Fatalf("category = %q", first.Category)
	}
	if first.URL != "https://catalog.example.com/works/RJ123456" {
		t.Fatalf("url = %q", first.URL)
	}
	if first.Price != 1100 {
		t.Fatalf("price = %d", first.Price)
	}
	if first.OriginalPrice != 2200 {
		t.Fatalf("original price = %d", first.OriginalPrice)
	}
	if first.RatingStars != 4.5 {
		t.Fatalf("stars = %v", first.RatingStars)
	}
	if first.RatingCount != 321 {
		t.Fatalf("rating count = %d", first.RatingCount)
	}
	if first.SalesCount != 5432 {
		t.Fatalf("sales count = %d", first.SalesCount)
	}
	if want := "https://catalog.example.com/img/works/RJ124000/RJ123456_img_main.jpg"; first.ImageURL != want {
		t.Fatalf("image = %q, want %q", first.ImageURL, want)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "healing" {
		t.Fatalf("tags = %v", first.Tags)
	}

	second := records[1]
	if second.ID != "RJ200001" || second.Price != 880 {
		t.Fatalf("second record = %+v", second)
	}
	if second.RatingStars != 0 || second.RatingCount != 0 {
		t.Fatalf("missing rating should stay zero, got %+v", second)
	}
}

func TestListPageEmpty(t *testing.T) {
	e := newTestExtractor(t)
	records, err := e.ListPage(strings.NewReader("<html><body><p>終了</p></body></html>"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("empty page must yield no records, got %d", len(records))
	}
}

func TestListPageLegacyLayout(t *testing.T) {
	legacy := `
<html><body>
<table class="work_1col_table">
<tr class="work_row">
  <td><a class="work_thumb_inner" href="/works/RJ300000"></a>
  <dt class="work_name"><a href="/works/RJ300000">Legacy Work</a></dt>
  <span class="work_price">550円</span></td>
</tr>
</table>
</body></html>`
	e := newTestExtractor(t)
	records, err := e.ListPage(strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 1 || records[0].ID != "RJ300000" {
		t.Fatalf("legacy layout not handled: %+v", records)
	}
}
