package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern  = regexp.MustCompile(`[\d,]+`)
	hoursPattern   = regexp.MustCompile(`(\d+)\s*時間`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*分`)
	secondsPattern = regexp.MustCompile(`(\d+)\s*秒`)
	sizePattern    = regexp.MustCompile(`(?i)([\d.]+)\s*([KMGT]?B)`)
	starNumPattern = regexp.MustCompile(`star_(\d+)`)
)

// ParsePrice extracts an integer amount from a price string, stripping
// thousands separators and any currency decoration ("1,100円" -> 1100).
func ParsePrice(s string) (int64, error) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, fmt.Errorf("no amount in %q", s)
	}
	value, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", match, err)
	}
	return value, nil
}

// ParseCount extracts an integer count from decorated text ("(1,234)" -> 1234).
func ParseCount(s string) (int, error) {
	value, err := ParsePrice(s)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

// ParseDuration sums H時間/M分/S秒 tokens into seconds
// ("1時間20分" -> 4800, "5分3秒" -> 303).
func ParseDuration(s string) (int, error) {
	total := 0
	matched := false
	for _, part := range []struct {
		pattern *regexp.Regexp
		mult    int
	}{
		{hoursPattern, 3600},
		{minutesPattern, 60},
		{secondsPattern, 1},
	} {
		if m := part.pattern.FindStringSubmatch(s); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, fmt.Errorf("parse duration token %q: %w", m[1], err)
			}
			total += n * part.mult
			matched = true
		}
	}
	if !matched {
		return 0, fmt.Errorf("no duration tokens in %q", s)
	}
	return total, nil
}

// ParseSize converts "{number}{unit}" size text into bytes using 1024^n
// multipliers, rounding up at the next-smaller unit the way the source
// renders sizes ("3.71 GB" -> 3984588800).
func ParseSize(s string) (int64, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("no size in %q", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", m[1], err)
	}
	exp := 0
	switch strings.ToUpper(m[2]) {
	case "KB":
		exp = 1
	case "MB":
		exp = 2
	case "GB":
		exp = 3
	case "TB":
		exp = 4
	}
	if exp == 0 {
		return int64(math.Round(value)), nil
	}
	bytes := int64(math.Ceil(value * 1024))
	for i := 1; i < exp; i++ {
		bytes *= 1024
	}
	return bytes, nil
}

// ParseStarClass reads a star_NN class name into a star value. List pages
// encode tenths (star_45 -> 4.5 with scale 10), detail pages hundredths
// (star_450 -> 4.5 with scale 100).
func ParseStarClass(class string, scale int) (float64, bool) {
	m := starNumPattern.FindStringSubmatch(class)
	if m == nil || scale <= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return float64(n) / float64(scale), true
}
