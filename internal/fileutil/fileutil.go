// Package fileutil provides filename and filesystem helpers shared by the
// dispatcher, cleanup scheduler, and HTTP layer.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// timestampedNamePattern matches the friendly output names the dispatcher
// produces: a sanitized stem followed by an 8-10 digit timestamp before the
// extension. The cleanup orphan sweep must never remove files matching this
// pattern mid-delivery.
var timestampedNamePattern = regexp.MustCompile(`_\d{8,10}\.`)

var unsafeRunPattern = regexp.MustCompile(`_+`)

// DetectExt returns the lower-cased extension of name including the dot, or
// an empty string when there is none.
func DetectExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Format strips the leading dot and lower-cases an extension, yielding the
// bare format token used throughout the registry and task model.
func Format(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SanitizeName normalizes a user-supplied filename stem for reuse in output
// names: Unicode is NFC-normalized, anything that is not a letter, digit, or
// underscore becomes an underscore, and runs of underscores collapse.
func SanitizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := unsafeRunPattern.ReplaceAllString(b.String(), "_")
	return strings.Trim(cleaned, "_")
}

// FriendlyName builds the deterministic output filename for a conversion:
// sanitized original stem plus a minute-resolution timestamp plus the target
// extension. Repeated conversions of the same document within one minute
// address the same name; the timestamp also protects the file from the
// orphan sweep.
func FriendlyName(originalStem, fallbackID, targetFormat string, now time.Time) string {
	stem := SanitizeName(originalStem)
	if stem == "" {
		id := fallbackID
		if len(id) > 6 {
			id = id[:6]
		}
		stem = "document_" + id
	}
	return fmt.Sprintf("%s_%s.%s", stem, now.Format("0601021504"), Format(targetFormat))
}

// IsTimestampedName reports whether a filename carries the friendly
// timestamp marker produced by FriendlyName.
func IsTimestampedName(name string) bool {
	return timestampedNamePattern.MatchString(name)
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReplaceFile moves src to dest, displacing any existing file at dest.
func ReplaceFile(src, dest string) error {
	if src == dest {
		return nil
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing target: %w", err)
	}
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// NonEmptyFile reports whether path exists, is a regular file, and has
// non-zero size.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// FormatFileSize renders a byte count for logs and status output.
func FormatFileSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	case size < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/(1024*1024*1024))
	}
}
