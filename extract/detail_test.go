package extract

import (
	"strings"
	"testing"
)

const detailPageFixture = `
<html><body>
<div class="work_storyline">An immersive audio story set in a quiet town.</div>
<div class="point_average star_450"></div>
<table id="work_outline">
<tr><th>販売日</th><td>2026年01月15日</td></tr>
<tr><th>声優</th><td>Alice / Bob</td></tr>
<tr><th>シナリオ</th><td>Carol</td></tr>
<tr><th>ファイル容量</th><td>3.71 GB</td></tr>
<tr><th>再生時間</th><td>1時間20分</td></tr>
<tr><th>ファイル形式</th><td>WAV / MP3</td></tr>
</table>
<div class="work_bonus"><ul><li>Bonus track</li><li>Wallpaper set</li></ul></div>
</body></html>`

func TestDetailPage(t *testing.T) {
	e := newTestExtractor(t)
	det, err := e.DetailPage("RJ123456", strings.NewReader(detailPageFixture))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if det.ID != "RJ123456" {
		t.Fatalf("id = %q", det.ID)
	}
	if det.Description != "An immersive audio story set in a quiet town." {
		t.Fatalf("description = %q", det.Description)
	}
	if !det.HasRating || det.RatingStars != 4.5 {
		t.Fatalf("rating = %v has=%v", det.RatingStars, det.HasRating)
	}
	if det.FileInfo.SizeBytes != 3984588800 {
		t.Fatalf("size = %d", det.FileInfo.SizeBytes)
	}
	if det.FileInfo.DurationSeconds != 4800 {
		t.Fatalf("duration = %d", det.FileInfo.DurationSeconds)
	}
	if det.FileInfo.Format != "WAV / MP3" {
		t.Fatalf("format = %q", det.FileInfo.Format)
	}
	if det.Attributes["販売日"] != "2026年01月15日" {
		t.Fatalf("attributes = %v", det.Attributes)
	}
	if len(det.BonusNotes) != 2 || det.BonusNotes[0] != "Bonus track" {
		t.Fatalf("bonus notes = %v", det.BonusNotes)
	}

	wantCredits := map[string]string{"Alice": "声優", "Bob": "声優", "Carol": "シナリオ"}
	if len(det.Credits) != len(wantCredits) {
		t.Fatalf("credits = %v", det.Credits)
	}
	for _, c := range det.Credits {
		if wantCredits[c.Name] != c.Role {
			t.Fatalf("unexpected credit %+v", c)
		}
	}
}

func TestDetailPagePartial(t *testing.T) {
	partial := `<html><body><div class="work_storyline">Only a story.</div></body></html>`
	e := newTestExtractor(t)
	det, err := e.DetailPage("RJ999999", strings.NewReader(partial))
	if err != nil {
		t.Fatalf("a sparse page is not an error: %v", err)
	}
	if det.Description != "Only a story." {
		t.Fatalf("description = %q", det.Description)
	}
	if det.FileInfo.SizeBytes != 0 || det.Credits != nil || det.HasRating {
		t.Fatalf("missing facets must stay zero: %+v", det)
	}
}
