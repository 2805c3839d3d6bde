package extract

import "testing"

func TestCanonicalImageURL(t *testing.T) {
	cdn := "https://img.catalog.example.com/works"
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"rounds up to bucket", "RJ123456", cdn + "/RJ124000/RJ123456_img_main.jpg"},
		{"exact boundary stays", "RJ124000", cdn + "/RJ124000/RJ124000_img_main.jpg"},
		{"short id keeps width", "RJ01234", cdn + "/RJ02000/RJ01234_img_main.jpg"},
		{"no numeric part", "JUNK", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalImageURL(cdn, tt.id); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpgradeImageURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"sample marker",
			"https://cdn.example.com/RJ124000/RJ123456_img_sam.jpg",
			"https://cdn.example.com/RJ124000/RJ123456_img_main.jpg",
		},
		{
			"smp1 marker",
			"https://cdn.example.com/RJ124000/RJ123456_img_smp1.jpg",
			"https://cdn.example.com/RJ124000/RJ123456_img_main.jpg",
		},
		{
			"resize suffix",
			"https://cdn.example.com/resize/RJ124000/RJ123456_img_main_240x240.jpg",
			"https://cdn.example.com/RJ124000/RJ123456_img_main.jpg",
		},
		{
			"already full size",
			"https://cdn.example.com/RJ124000/RJ123456_img_main.jpg",
			"https://cdn.example.com/RJ124000/RJ123456_img_main.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpgradeImageURL(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsFullSizeImageURL(t *testing.T) {
	if !IsFullSizeImageURL("https://cdn.example.com/RJ124000/RJ123456_img_main.jpg") {
		t.Fatal("main image should be full size")
	}
	if IsFullSizeImageURL("https://cdn.example.com/RJ124000/RJ123456_img_sam.jpg") {
		t.Fatal("sample image is not full size")
	}
}
