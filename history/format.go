package history

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// FormatSize renders a byte count as "0 B", "512 B", "1.5 KB", "12.3 MB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	i = min(i, len(units)-1)
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%.1f %s", v, units[i])
}

// TruncateFilename shortens name to at most limit runes, keeping the extension
// and marking the cut with "...".
func TruncateFilename(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}

	runes := []rune(name)
	ext := []rune{}
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i] == '.' {
			ext = runes[i:]
			break
		}
	}

	keep := limit - len(ext) - 3
	if keep < 1 {
		return string(runes[:limit])
	}
	return string(runes[:keep]) + "..." + string(ext)
}

// RelativeTime renders t relative to now: "just now", "5 min ago", "3h ago",
// "yesterday", "4 days ago", or the date.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}

	t = t.In(now.Location())
	days := int(dateOf(now).Sub(dateOf(t)).Hours() / 24)
	switch {
	case days <= 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	}
	return t.Format("2006-01-02")
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
