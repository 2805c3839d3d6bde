package extract

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"currency suffix", "1,100円", 1100, false},
		{"plain number", "880", 880, false},
		{"decorated", "価格: 12,800円 (税込)", 12800, false},
		{"no digits", "無料", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"hours and minutes", "1時間20分", 4800, false},
		{"minutes and seconds", "5分3秒", 303, false},
		{"hours only", "2時間", 7200, false},
		{"seconds only", "45秒", 45, false},
		{"no tokens", "長い", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"gigabytes round up", "3.71 GB", 3984588800, false},
		{"megabytes", "500 MB", 512000 * 1024, false},
		{"kilobytes", "12KB", 12 * 1024, false},
		{"bare bytes", "900 B", 900, false},
		{"no size", "計測不能", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseStarClass(t *testing.T) {
	tests := []struct {
		name  string
		class string
		scale int
		want  float64
		ok    bool
	}{
		{"list tenths", "star_rating star_45", 10, 4.5, true},
		{"detail hundredths", "point_average star_450", 100, 4.5, true},
		{"zero stars", "star_0", 10, 0, true},
		{"no star class", "rating", 10, 0, false},
		{"bad scale", "star_45", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStarClass(tt.class, tt.scale)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("got %v ok=%v, want %v ok=%v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	got, err := ParseCount("(1,234)")
	if err != nil || got != 1234 {
		t.Fatalf("got %d err=%v, want 1234", got, err)
	}
}
