// Package archive implements the append-only container abstraction the rest
// of the collector writes into: a deflated zip by default, or an lz4-framed
// tar when the output path ends in ".tar.lz4". Grounded on
// original_source/varc_core/systems/base_system.py's _TarLz4Wrapper and
// zipfile.ZipFile usage.
//
// Both the zip and tar.lz4 container formats write their index (the zip
// central directory, the tar end-of-archive markers) only once the archive
// is closed, so a member can't be read back out of the container while it's
// still open for writing. Per spec.md §4.7's "or the carver must stream
// into a temporary and the sink must be re-opened," every Sink also mirrors
// each appended member into a side staging directory on disk, so OpenMember
// can serve already-written members to the Carver without requiring the
// container to be finalized first.
package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"

	"github.com/cado-security/varc-go/internal/pathutil"
)

func init() {
	// Swap the zip package's default deflate implementation for
	// klauspost/compress, which is materially faster for the multi-hundred
	// megabyte process dumps this tool writes.
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
}

// Sink is the append-only archive container. All methods are safe to call
// from a single writer goroutine only; the collector is the sole owner for
// the duration of a run (spec.md §5).
type Sink interface {
	// PutBytes appends name with the given content.
	PutBytes(name string, data []byte) error
	// PutFile appends name with the contents read from sourcePath.
	PutFile(name string, sourcePath string) error
	// Names lists every member appended so far.
	Names() []string
	// OpenMember opens an already-appended member for reading.
	OpenMember(name string) (io.ReadCloser, error)
	// Close finalizes the archive and removes the staging directory.
	Close() error
}

// Open returns the Sink implementation selected by outputPath's suffix.
func Open(outputPath string) (Sink, error) {
	stage, err := os.MkdirTemp("", "varc-stage-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if strings.HasSuffix(outputPath, ".tar.lz4") {
		return openTarLZ4(outputPath, stage)
	}
	return openZip(outputPath, stage)
}

// staging mirrors appended members to disk under a run-scoped directory so
// they can be reopened for reading before the container is finalized.
type staging struct {
	dir     string
	mu      sync.Mutex
	entries map[string]string // archive name -> staged file path
	order   []string
}

func newStaging(dir string) *staging {
	return &staging{dir: dir, entries: make(map[string]string)}
}

func (s *staging) put(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	if _, exists := s.entries[name]; !exists {
		s.order = append(s.order, name)
	}
	s.entries[name] = path
	s.mu.Unlock()
	return path, nil
}

func (s *staging) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *staging) open(name string) (io.ReadCloser, error) {
	s.mu.Lock()
	path, ok := s.entries[pathutil.ToArchiveSlashes(name)]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("member %s not found", name)
	}
	return os.Open(path)
}

func (s *staging) cleanup() error {
	return os.RemoveAll(s.dir)
}

// --- zip ---

type zipSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	zw   *zip.Writer
	stg  *staging
}

func openZip(path string, stageDir string) (*zipSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &zipSink{path: path, f: f, zw: zip.NewWriter(f), stg: newStaging(stageDir)}, nil
}

func (s *zipSink) PutBytes(name string, data []byte) error {
	name = pathutil.ToArchiveSlashes(name)
	s.mu.Lock()
	w, err := s.zw.Create(name)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("create member %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = s.stg.put(name, strings.NewReader(string(data)))
	return err
}

func (s *zipSink) PutFile(name string, sourcePath string) error {
	name = pathutil.ToArchiveSlashes(name)
	in, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer in.Close()

	s.mu.Lock()
	w, err := s.zw.Create(name)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("create member %s: %w", name, err)
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = s.stg.put(name, in)
	return err
}

func (s *zipSink) Names() []string { return s.stg.names() }

func (s *zipSink) OpenMember(name string) (io.ReadCloser, error) { return s.stg.open(name) }

func (s *zipSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cerr := s.stg.cleanup()
	if err := s.zw.Close(); err != nil {
		s.f.Close()
		return err
	}
	if err := s.f.Close(); err != nil {
		return err
	}
	return cerr
}

// --- tar.lz4 ---

type tarLZ4Sink struct {
	mu     sync.Mutex
	f      *os.File
	lz4w   *lz4.Writer
	tw     *tar.Writer
	stg    *staging
	closed bool
}

func openTarLZ4(path string, stageDir string) (*tarLZ4Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	lz4w := lz4.NewWriter(f)
	return &tarLZ4Sink{
		f:    f,
		lz4w: lz4w,
		tw:   tar.NewWriter(lz4w),
		stg:  newStaging(stageDir),
	}, nil
}

func (s *tarLZ4Sink) writeEntry(name string, data []byte) error {
	hdr := &tar.Header{
		Name: pathutil.ToArchiveSlashes(name),
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := s.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header %s: %w", name, err)
	}
	if _, err := s.tw.Write(data); err != nil {
		return fmt.Errorf("write tar body %s: %w", name, err)
	}
	_, err := s.stg.put(hdr.Name, strings.NewReader(string(data)))
	return err
}

func (s *tarLZ4Sink) PutBytes(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeEntry(name, data)
}

func (s *tarLZ4Sink) PutFile(name string, sourcePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeEntry(name, data)
}

func (s *tarLZ4Sink) Names() []string { return s.stg.names() }

func (s *tarLZ4Sink) OpenMember(name string) (io.ReadCloser, error) { return s.stg.open(name) }

func (s *tarLZ4Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	cerr := s.stg.cleanup()
	if err := s.tw.Close(); err != nil {
		s.f.Close()
		return err
	}
	if err := s.lz4w.Close(); err != nil {
		s.f.Close()
		return err
	}
	if err := s.f.Close(); err != nil {
		return err
	}
	return cerr
}
