package view

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"
)

// FormatRelativeTime formats a time.Time as a relative time string like "3 days ago".
func FormatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return timediff.TimeDiff(t)
}

// FormatFileSize formats a file size in bytes to a human-readable string.
func FormatFileSize(bytes int64) string {
	size, err := safecast.ToUint64(bytes)
	if err != nil {
		size = 0
	}
	return humanize.Bytes(size)
}

// FormatCount formats a count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// Stars renders an average rating on the five star scale, rounded to the nearest half star.
func Stars(avg float64) string {
	avg = math.Max(0, math.Min(5, avg))
	halves := int(math.Round(avg * 2))
	full, half := halves/2, halves%2
	empty := 5 - full - half
	return strings.Repeat("★", full) + strings.Repeat("⯪", half) + strings.Repeat("☆", empty)
}

// Rating renders the stars, the average and the number of ratings.
func Rating(avg float64, count int) string {
	if count == 0 {
		return subtleStyle.Render("no ratings yet")
	}
	noun := "ratings"
	if count == 1 {
		noun = "rating"
	}
	return ratingStyle.Render(Stars(avg)) + fmt.Sprintf(" %.1f (%s %s)", avg, FormatCount(count), noun)
}

// Tags renders tags as #hashtags.
func Tags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tagStyle.Render("#"+tag))
	}
	return strings.Join(out, " ")
}
