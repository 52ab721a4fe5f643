// Package pathutil holds the small string-manipulation helpers used to turn
// process/host names and Windows paths into safe archive member names.
// Grounded on original_source/varc_core/utils/string_manips.py.
package pathutil

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`\W+`)

// Sanitize strips every character that isn't a word character ([A-Za-z0-9_]),
// matching spec.md §6's "special characters stripped" rule for dump member
// names and machine name normalization. It is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(s string) string {
	return nonWord.ReplaceAllString(s, "")
}

// StripDrive removes a Windows drive prefix ("C:") from path, then trims a
// single leading path separator, mirroring os.path.splitdrive in the
// original Python implementation.
func StripDrive(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		path = path[2:]
	}
	if strings.HasPrefix(path, `\`) || strings.HasPrefix(path, "/") {
		path = path[1:]
	}
	return path
}

// ToArchiveSlashes converts OS-specific separators to forward slashes, since
// archive entry names always use forward slashes (spec.md §4.7).
func ToArchiveSlashes(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}
