// Package carver splits a raw process-memory dump into alternating binary
// and text runs, streaming forward through the dump exactly once. Grounded
// on original_source/varc_core/utils/dumpfile_extraction.py's
// combined_strings/split_buffer/write_file/extract_dumps.
package carver

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/cado-security/varc-go/internal/model"
	"github.com/cado-security/varc-go/internal/pathutil"
)

const (
	// DefaultReadAmount is the chunk size read from the dump on each pass,
	// matching the original's READ_AMOUNT.
	DefaultReadAmount = 10240
	// DefaultMaxFileSize forces a split once the pending buffer exceeds it,
	// matching the original's MAX_FILESIZE (10 MB).
	DefaultMaxFileSize = 10 * 1024 * 1024
	// stringsThreshold is the printable-character-count mode-switch
	// threshold (the original's hardcoded 1000).
	stringsThreshold = 1000
	// minStringsRun is the minimum repeat count for the combined strings
	// regex (the original's n=6).
	minStringsRun = 6
	// minGoodLineRun is the minimum run of "loggy" characters required for
	// a detected string to be kept (the original's {7,}).
	minGoodLineRun = 7
)

// combinedRe matches runs of printable-ASCII-or-tab bytes, either as plain
// single-byte characters or as a byte followed by a NUL (a UTF-16LE code
// unit). The original decodes the buffer as UTF-8 with errors ignored and
// matches the ASCII_BYTE class on the resulting text; operating directly on
// the raw bytes with an explicit printable range is equivalent for the
// 7-bit content this is meant to find and avoids depending on an
// intermediate decode.
var combinedRe = regexp.MustCompile(`(?:[\x09\x20-\x7e]\x00|[\x09\x20-\x7e]){` + strconv.Itoa(minStringsRun) + `,}`)

// goodLineRe keeps only detected runs that themselves contain a long run of
// "loggy" characters (letters, digits, space, dot, colon) -- the original's
// good_line filter, meant to cut noise from short incidental ASCII runs.
var goodLineRe = regexp.MustCompile(`[0-9A-Za-z .:]{` + strconv.Itoa(minGoodLineRun) + `,}`)

func isAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func isPrintableByte(b byte) bool { return b >= 0x20 && b <= 0x7e }

func filterPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\t', '\n', '\r', '\v', '\f':
			b.WriteByte(c)
		default:
			if isPrintableByte(c) {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// combinedStringsText extracts and joins every "loggy" printable run found
// in buf, one run per line.
func combinedStringsText(buf []byte) string {
	runs := combinedRe.FindAll(buf, -1)
	if len(runs) == 0 {
		return ""
	}
	kept := make([]string, 0, len(runs))
	for _, r := range runs {
		if goodLineRe.Match(r) {
			kept = append(kept, string(r))
		}
	}
	return filterPrintable(strings.Join(kept, "\n"))
}

func stringsLength(buf []byte) int { return len(combinedStringsText(buf)) }

// splitPoint locates where a chunk should be cut when a mode transition is
// triggered: the byte offset where a recognized file marker starts, or
// (when no marker appears) the first byte offset where printability
// flips relative to startsText.
func splitPoint(data []byte, startsText bool) int {
	for _, m := range fileMarkers {
		if i := bytes.Index(data, m); i >= 0 {
			return i
		}
	}

	for i, b := range data {
		if isPrintableByte(b) != startsText {
			return i
		}
	}
	return len(data)
}

// Carver partitions a dump's byte stream into binary and text runs.
type Carver struct {
	ReadAmount  int
	MaxFileSize int
	// Now supplies the current time used for year-based log splitting; a
	// field so tests can pin it. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Carver configured with the original's default thresholds.
func New() *Carver {
	return &Carver{ReadAmount: DefaultReadAmount, MaxFileSize: DefaultMaxFileSize, Now: time.Now}
}

// Carve streams r (a single process dump's bytes) and returns every run it
// extracted, in order. dumpMemberName is the archive member the dump was
// read from, e.g. "process_dumps/sshd_1234.mem"; it seeds both the output
// naming and the SourceDump each artifact reports.
//
// On the terminal short read the pending buffer is flushed as-is in
// whatever mode is current. The original instead re-appended a slice of the
// final read using a split_point left over from an earlier iteration,
// which can duplicate or misattribute the tail of the dump; this
// implementation flushes the buffer once, cleanly, per spec.
func (c *Carver) Carve(r io.Reader, dumpMemberName string) []model.CarvedArtifact {
	readAmount := c.ReadAmount
	if readAmount == 0 {
		readAmount = DefaultReadAmount
	}
	maxFileSize := c.MaxFileSize
	if maxFileSize == 0 {
		maxFileSize = DefaultMaxFileSize
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}

	mode := model.KindBinary
	buffer := make([]byte, 0, readAmount)
	seq := 0
	var artifacts []model.CarvedArtifact

	readBuf := make([]byte, readAmount)
	for {
		n, rerr := io.ReadFull(r, readBuf)
		data := readBuf[:n]
		final := n < readAmount

		if n > 0 && !isAllZero(data) {
			split := -1
			sl := stringsLength(data)
			switch {
			case mode == model.KindText && (sl < stringsThreshold || len(buffer) > maxFileSize):
				split = splitPoint(data, true)
			case mode == model.KindBinary && (sl >= stringsThreshold || len(buffer) > maxFileSize):
				split = splitPoint(data, false)
			}

			if split >= 0 {
				buffer = append(buffer, data[:split]...)
				seq++
				artifacts = append(artifacts, c.emit(dumpMemberName, seq, mode, buffer, now)...)

				rest := data[split:]
				buffer = append(make([]byte, 0, len(rest)), rest...)
				if mode == model.KindText {
					mode = model.KindBinary
				} else {
					mode = model.KindText
				}
			} else {
				buffer = append(buffer, data...)
			}
		}

		if final {
			seq++
			artifacts = append(artifacts, c.emit(dumpMemberName, seq, mode, buffer, now)...)
			break
		}
		if rerr != nil && rerr != io.ErrUnexpectedEOF {
			break
		}
	}
	return artifacts
}

// emit converts one accumulated run into one or more CarvedArtifacts: a
// single binary artifact, or (for text) one artifact per detected year
// boundary within the run.
func (c *Carver) emit(dumpMemberName string, seq int, mode model.ArtifactKind, buffer []byte, now func() time.Time) []model.CarvedArtifact {
	if len(buffer) == 0 {
		return nil
	}

	if mode == model.KindBinary {
		data := append([]byte(nil), buffer...)
		mime, ext := sniff(data)
		return []model.CarvedArtifact{{
			SourceDump: dumpMemberName,
			Sequence:   seq,
			Kind:       model.KindBinary,
			MIME:       mime,
			Extension:  ext,
			Bytes:      data,
		}}
	}

	text := combinedStringsText(buffer)
	if text == "" {
		return nil
	}

	parts := splitByYear(text, now())
	artifacts := make([]model.CarvedArtifact, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		artifacts = append(artifacts, model.CarvedArtifact{
			SourceDump: dumpMemberName,
			Sequence:   seq,
			SubIndex:   i,
			Kind:       model.KindText,
			MIME:       "text/plain",
			Extension:  ".log",
			Bytes:      []byte(part),
		})
	}
	return artifacts
}

// splitByYear divides text on the boundary of the current or previous
// calendar year, when either appears as a literal substring, to break up
// multi-year log fragments. If both appear the current year takes
// priority. Every part after the first is re-prefixed with the year marker
// it was split on, so no data is lost at the boundary.
func splitByYear(text string, at time.Time) []string {
	current := strconv.Itoa(at.Year())
	previous := strconv.Itoa(at.Year() - 1)

	year := ""
	if strings.Contains(text, current) {
		year = current
	} else if strings.Contains(text, previous) {
		year = previous
	}
	if year == "" {
		return []string{text}
	}

	segments := strings.Split(text, year)
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		if i == 0 {
			parts = append(parts, seg)
			continue
		}
		parts = append(parts, year+seg)
	}
	return parts
}

func sniff(data []byte) (mime, ext string) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "application/octet-stream", ".bin"
	}
	return kind.MIME.Value, "." + kind.Extension
}

// ArchiveName computes the archive member path for a carved artifact,
// nested under a per-dump "_carved" directory next to the source dump.
func ArchiveName(a model.CarvedArtifact) string {
	dir := path.Dir(a.SourceDump)
	base := pathutil.Sanitize(strings.TrimSuffix(path.Base(a.SourceDump), path.Ext(a.SourceDump)))

	name := fmt.Sprintf("%d", a.Sequence)
	if a.Kind == model.KindText && a.SubIndex > 0 {
		name = fmt.Sprintf("%d_%d", a.Sequence, a.SubIndex)
	}
	return path.Join(dir, base+"_carved", base+"_"+name+a.Extension)
}
