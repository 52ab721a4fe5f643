package carver

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cado-security/varc-go/internal/archive"
	"github.com/cado-security/varc-go/internal/model"
)

func TestCarveAllZeroChunkIsDiscarded(t *testing.T) {
	c := New()
	c.ReadAmount = 16
	data := make([]byte, 16) // all zero, exactly one read, also the final read
	artifacts := c.Carve(bytes.NewReader(data), "process_dumps/p_1.mem")
	require.Empty(t, artifacts)
}

func TestCarveSingleBinaryRunFlushedOnFinalRead(t *testing.T) {
	c := New()
	c.ReadAmount = 64
	data := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 4) // 16 bytes, non-zero, no text content
	artifacts := c.Carve(bytes.NewReader(data), "process_dumps/p_1.mem")
	require.Len(t, artifacts, 1)
	require.Equal(t, model.KindBinary, artifacts[0].Kind)
	require.Equal(t, data, artifacts[0].Bytes)
}

func TestStringsLengthDistinguishesTextFromBinary(t *testing.T) {
	text := bytes.Repeat([]byte("this is a readable log line here\n"), 40)
	binary := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 340)

	require.Greater(t, stringsLength(text), stringsThreshold)
	require.Less(t, stringsLength(binary), stringsThreshold)
}

func TestCarveSplitsWhenBufferExceedsMaxFileSize(t *testing.T) {
	c := New()
	c.ReadAmount = 16
	c.MaxFileSize = 20 // force a split well before any real threshold would trigger

	data := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 20) // 80 bytes, several chunks
	artifacts := c.Carve(bytes.NewReader(data), "process_dumps/p_1.mem")
	require.NotEmpty(t, artifacts)
	require.Equal(t, model.KindBinary, artifacts[0].Kind)
	require.NotEmpty(t, artifacts[0].Bytes)
}

func TestCarveSplitsTextOnYearBoundary(t *testing.T) {
	c := New()
	c.ReadAmount = 4096
	c.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	line := "2025-12-31 log entry one two three four five\n"
	line2 := "2026-01-01 log entry six seven eight nine ten\n"
	text := bytes.Repeat([]byte(line+line2), 30)

	artifacts := c.Carve(bytes.NewReader(text), "process_dumps/p_1.mem")
	require.NotEmpty(t, artifacts)

	var sawPrev, sawCurrent bool
	for _, a := range artifacts {
		if a.Kind != model.KindText {
			continue
		}
		if bytes.Contains(a.Bytes, []byte("2025")) {
			sawPrev = true
		}
		if bytes.Contains(a.Bytes, []byte("2026")) {
			sawCurrent = true
		}
	}
	require.True(t, sawPrev)
	require.True(t, sawCurrent)
}

func TestArchiveNameNestsUnderCarvedDirectory(t *testing.T) {
	a := model.CarvedArtifact{
		SourceDump: "process_dumps/sshd_1234.mem",
		Sequence:   2,
		Kind:       model.KindBinary,
		Extension:  ".png",
	}
	require.Equal(t, "process_dumps/sshd_1234_carved/sshd_1234_2.png", ArchiveName(a))
}

func TestArchiveNameIncludesSubIndexForTextSplits(t *testing.T) {
	a := model.CarvedArtifact{
		SourceDump: "process_dumps/sshd_1234.mem",
		Sequence:   1,
		SubIndex:   2,
		Kind:       model.KindText,
		Extension:  ".log",
	}
	require.Equal(t, "process_dumps/sshd_1234_carved/sshd_1234_1_2.log", ArchiveName(a))
}

func TestAppendFromMemberWritesArtifactsIntoSink(t *testing.T) {
	sinkPath := filepath.Join(t.TempDir(), "out.zip")
	sink, err := archive.Open(sinkPath)
	require.NoError(t, err)
	defer sink.Close()

	dump := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 8)
	require.NoError(t, sink.PutBytes("process_dumps/p_1.mem", dump))

	c := New()
	c.ReadAmount = 16
	n, err := c.AppendFromMember(sink, "process_dumps/p_1.mem")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	names := sink.Names()
	require.Contains(t, names, "process_dumps/p_1_carved/p_1_1.bin")
}
