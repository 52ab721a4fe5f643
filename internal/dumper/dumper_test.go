package dumper

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cado-security/varc-go/internal/archive"
	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/model"
	"github.com/cado-security/varc-go/internal/procmem"
)

// fakeReader simulates a target process with the given regions; any read
// starting at 0x2000 fails as Unreadable, so a region there is a hole.
type fakeReader struct {
	pid     int
	regions []model.Region
	closed  bool
}

func (f *fakeReader) Close() error { f.closed = true; return nil }

func (f *fakeReader) Regions() ([]model.Region, error) { return f.regions, nil }

func (f *fakeReader) Read(addr uint64, length uint64) ([]byte, error) {
	if addr == 0x2000 {
		return nil, errs.WithPID(errs.Unreadable, f.pid, fmt.Errorf("page fault"))
	}
	data := make([]byte, length)
	for i := range data {
		data[i] = byte(addr + uint64(i))
	}
	return data, nil
}

func TestDumpAllSkipsSelfAndWritesOrderedRegions(t *testing.T) {
	regions := []model.Region{
		{Start: 0x1000, End: 0x1000 + 16, Readable: true},
		{Start: 0x2000, End: 0x2000 + 16, Readable: true}, // fully unreadable
		{Start: 0x3000, End: 0x3000 + 16, Readable: true},
	}

	sinkPath := filepath.Join(t.TempDir(), "out.zip")
	sink, err := archive.Open(sinkPath)
	require.NoError(t, err)
	defer sink.Close()

	opened := map[int]*fakeReader{}
	openFn := OpenFunc(func(pid int) (procmem.Reader, error) {
		r := &fakeReader{pid: pid, regions: regions}
		opened[pid] = r
		return r, nil
	})

	log := zap.NewNop()
	d := New(sink, openFn, 256, 999, log)

	procs := []model.ProcessRecord{
		{PID: 999, Name: "self"}, // must be skipped
		{PID: 42, Name: "target"},
	}

	results := d.DumpAll(procs)
	require.Len(t, results, 1)
	require.True(t, results[0].Dumped)
	require.Equal(t, "process_dumps/target_42.mem", results[0].MemberName)

	rc, err := sink.OpenMember(results[0].MemberName)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	// The unreadable region's 16 bytes must be skipped, not zero-padded.
	require.Len(t, data, 32)
	require.True(t, bytes.HasPrefix(data, []byte{0x00, 0x01}))

	require.NotContains(t, opened, 999)
}

func TestDumpAllSkipsProcessWithNoRegions(t *testing.T) {
	sinkPath := filepath.Join(t.TempDir(), "out.zip")
	sink, err := archive.Open(sinkPath)
	require.NoError(t, err)
	defer sink.Close()

	openFn := OpenFunc(func(pid int) (procmem.Reader, error) {
		return &fakeReader{pid: pid}, nil
	})

	d := New(sink, openFn, 256, 0, zap.NewNop())
	results := d.DumpAll([]model.ProcessRecord{{PID: 7, Name: "empty"}})
	require.Len(t, results, 1)
	require.False(t, results[0].Dumped)
	require.Empty(t, sink.Names())
}
