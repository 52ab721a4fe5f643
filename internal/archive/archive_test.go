package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZipSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.PutBytes("processes.json", []byte(`{"format":"CadoJsonTable","rows":[]}`)))

	tmp := filepath.Join(t.TempDir(), "dump.mem")
	require.NoError(t, os.WriteFile(tmp, []byte("memory-bytes"), 0o644))
	require.NoError(t, s.PutFile("process_dumps/proc_123.mem", tmp))

	// Members appended earlier must be readable before Close.
	rc, err := s.OpenMember("process_dumps/proc_123.mem")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "memory-bytes", string(data))

	require.ElementsMatch(t, []string{"processes.json", "process_dumps/proc_123.mem"}, s.Names())

	require.NoError(t, s.Close())

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 2)
}

func TestTarLZ4SinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tar.lz4")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.PutBytes("netstat.log", []byte("2026-01-01 00:00:00 127.0.0.1 80 0.0.0.0 0 proc")))

	rc, err := s.OpenMember("netstat.log")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Contains(t, string(data), "127.0.0.1")

	require.NoError(t, s.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, fi.Size(), int64(0))
}

func TestBackslashesNormalizedToForwardSlashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutBytes(`collected_files\foo\bar.txt`, []byte("x")))
	require.NoError(t, s.Close())

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Equal(t, "collected_files/foo/bar.txt", zr.File[0].Name)
}
