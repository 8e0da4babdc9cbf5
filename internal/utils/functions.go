package utils

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
)

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed == 0 {
		return "0 B/s"
	}
	bps := float64(bytes) / elapsed
	formatted := FormatBytes(uint64(bps))
	return formatted[:len(formatted)-1] + "B/s"
}

// FormatDuration renders an uptime like "2d 3h 4m 5s", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second).Seconds())
	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60
	secs = secs % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, mins, secs)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// UniqueName appends a second-resolution timestamp before the extension.
func UniqueName(name string, now time.Time) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", base, now.Format(TimestampLayout), ext)
}

// JobPath returns <root>/<jobID>/<name>, creating the job directory. Names
// that would resolve outside the job directory are rejected.
func JobPath(root string, jobID int, name string) (string, error) {
	dir := filepath.Join(root, fmt.Sprint(jobID))
	full := filepath.Join(dir, name)
	if rel, err := filepath.Rel(dir, full); err != nil || rel == "." || rel != filepath.Base(rel) || rel == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating download directory: %v", err)
	}
	return full, nil
}

// NameFromURL derives a file name from the last path segment of a URL.
// url.Parse has already decoded the path, so the segment is not unescaped again.
func NameFromURL(rawURL string, now time.Time) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if name := SanitizeFileName(path.Base(parsed.Path)); name != "" {
			return name
		}
	}
	return "download_" + now.Format(TimestampLayout)
}

// SanitizeFileName keeps a single path element: separators and control
// characters become underscores and dot-only names are dropped.
func SanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	if strings.Trim(cleaned, ".") == "" {
		return ""
	}
	return cleaned
}

func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// RemoveQuietly deletes a file, logging anything other than absence.
func RemoveQuietly(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("op", "utils/functions").Err(err).Msgf("could not remove %s", path)
	}
}

// RemoveJobDir deletes a per-request scratch directory and anything left in it.
func RemoveJobDir(root string, jobID int) {
	dir := filepath.Join(root, fmt.Sprint(jobID))
	if err := os.RemoveAll(dir); err != nil {
		log.Warn().Str("op", "utils/functions").Err(err).Msgf("could not remove %s", dir)
	}
}

// SleepContext waits for d or until ctx ends, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CollapseSpaces replaces every run of whitespace with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// FormatIDs lists up to ten ids inline, otherwise reports the count.
func FormatIDs(ids []int, noun string) string {
	if len(ids) <= 10 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprint(id)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%d %s", len(ids), noun)
}
