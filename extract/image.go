package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// imageBucketSize is the id-to-directory bucket width of the image CDN:
// item RJ123456 lives under RJ124000 (numeric id rounded up to the next
// thousand boundary).
const imageBucketSize = 1000

var (
	idPartsPattern  = regexp.MustCompile(`^([A-Z]{2})(\d+)$`)
	thumbSizeSuffix = regexp.MustCompile(`_\d+x\d+(\.\w+)$`)
	fullSizePattern = regexp.MustCompile(`_img_main\.\w+$`)
)

// CanonicalImageURL deterministically constructs the full-size image URL for
// an external id from the CDN numbering scheme. It is preferred over anything
// scraped off the page because it survives markup drift. Returns "" when the
// id does not carry a numeric part.
func CanonicalImageURL(cdnBase, id string) string {
	m := idPartsPattern.FindStringSubmatch(id)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}
	bucket := ((n + imageBucketSize - 1) / imageBucketSize) * imageBucketSize
	return fmt.Sprintf("%s/%s%0*d/%s_img_main.jpg",
		strings.TrimSuffix(cdnBase, "/"), m[1], len(m[2]), bucket, id)
}

// UpgradeImageURL rewrites a scraped thumbnail URL to its full-size variant:
// sample markers become the main image and resize suffixes are stripped.
func UpgradeImageURL(u string) string {
	u = strings.Replace(u, "_img_sam.", "_img_main.", 1)
	u = strings.Replace(u, "_img_smp1.", "_img_main.", 1)
	u = thumbSizeSuffix.ReplaceAllString(u, "$1")
	u = strings.Replace(u, "/resize/", "/", 1)
	return u
}

// IsFullSizeImageURL reports whether a URL already follows the CDN full-size
// path convention.
func IsFullSizeImageURL(u string) bool {
	return fullSizePattern.MatchString(u)
}
