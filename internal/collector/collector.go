// Package collector drives the top-level collection sequence: inventory,
// screenshot, open-file copy, scan, dump, carve. Grounded on
// original_source/varc_core/systems/base_system.py's BaseSystem.collect.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/cado-security/varc-go/internal/archive"
	"github.com/cado-security/varc-go/internal/carver"
	"github.com/cado-security/varc-go/internal/dumper"
	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/host"
	"github.com/cado-security/varc-go/internal/model"
	"github.com/cado-security/varc-go/internal/pathutil"
	"github.com/cado-security/varc-go/internal/procmem"
	"github.com/cado-security/varc-go/internal/scangate"
)

// maxOpenFileSize bounds which referenced files get copied into the
// archive, per spec.md §4.5 step 5.
const maxOpenFileSize = 10 * 1024 * 1024

// Collector sequences one end-to-end collection run.
type Collector struct {
	cfg    *Config
	log    *zap.Logger
	sink   archive.Sink
	lock   *flock.Flock
	intro  host.Introspector
	shot   host.Screenshotter
	gate   *scangate.Gate
	openFn dumper.OpenFunc
	selfPID int
}

// New constructs a Collector, acquiring an advisory lock on the archive
// path for the duration of the run (spec.md §5's "one owner" invariant) and
// loading YARA rules if configured (a load failure disables the gate
// rather than failing the run, per spec.md §4.4). On a platform with no
// memory reader it fails with MissingOperatingSystemInfo before touching
// the archive.
func New(cfg *Config, log *zap.Logger) (*Collector, error) {
	if r, err := procmem.Open(os.Getpid()); err != nil {
		if kind, ok := errs.KindOf(err); ok && kind == errs.MissingOperatingSystemInfo {
			return nil, err
		}
	} else {
		r.Close()
	}

	lock := flock.New(cfg.OutputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		return nil, errs.New(errs.ArchiveError, fmt.Errorf("acquire archive lock for %s: %w", cfg.OutputPath, err))
	}

	sink, err := archive.Open(cfg.OutputPath)
	if err != nil {
		lock.Unlock()
		return nil, errs.New(errs.ArchiveError, err)
	}

	c := &Collector{
		cfg:     cfg,
		log:     log,
		sink:    sink,
		lock:    lock,
		intro:   host.NewGopsutilIntrospector(),
		shot:    host.NewScreenshotter(),
		openFn:  procmem.Open,
		selfPID: os.Getpid(),
	}

	if cfg.YaraRulesPath != "" {
		gate, err := scangate.Load(cfg.YaraRulesPath, log)
		if err != nil {
			log.Error("failed to load yara rules, scan gate disabled", zap.Error(err))
		} else {
			c.gate = gate
		}
	}

	return c, nil
}

// Close finalizes the archive and releases the advisory lock.
func (c *Collector) Close() error {
	cerr := c.sink.Close()
	lockPath := c.lock.Path()
	uerr := c.lock.Unlock()
	os.Remove(lockPath)
	if cerr != nil {
		return cerr
	}
	return uerr
}

// Run executes the full collection sequence described in spec.md §4.5.
func (c *Collector) Run(ctx context.Context) error {
	procs, err := c.intro.Processes(ctx)
	if err != nil {
		return errs.New(errs.ArchiveError, fmt.Errorf("enumerate processes: %w", err))
	}
	procs = c.filterSelection(procs)

	if err := c.writeEnvelope("processes.json", procs); err != nil {
		return err
	}

	referenced := c.intro.ReferencedFiles(procs)
	if err := c.writeEnvelope("open_files.json", referenced); err != nil {
		return err
	}

	if !c.cfg.NoScreenshot {
		c.captureScreenshot()
	}

	conns, err := c.intro.Connections(ctx, procs)
	if err != nil {
		c.log.Warn("network enumeration failed", zap.Error(err))
	} else if err := c.sink.PutBytes("netstat.log", []byte(host.NetstatLog(conns))); err != nil {
		return errs.New(errs.ArchiveError, err)
	}

	if !c.cfg.SkipOpen {
		c.copyReferencedFiles(referenced)
	}

	if !c.cfg.SkipMemory {
		c.collectMemory(ctx, procs)
	}

	if c.cfg.DumpExtract {
		c.carveDumps()
	}

	return nil
}

func (c *Collector) filterSelection(procs []model.ProcessRecord) []model.ProcessRecord {
	switch {
	case c.cfg.ProcessName != "":
		out := procs[:0]
		for _, p := range procs {
			if p.Name == c.cfg.ProcessName {
				out = append(out, p)
			}
		}
		return out
	case c.cfg.ProcessID != 0:
		for _, p := range procs {
			if int(p.PID) == c.cfg.ProcessID {
				return []model.ProcessRecord{p}
			}
		}
		return nil
	default:
		return procs
	}
}

func (c *Collector) writeEnvelope(name string, rows interface{}) error {
	var boxed []interface{}
	switch v := rows.(type) {
	case []model.ProcessRecord:
		boxed = make([]interface{}, len(v))
		for i, r := range v {
			boxed[i] = r
		}
	case []string:
		boxed = make([]interface{}, len(v))
		for i, p := range v {
			boxed[i] = struct {
				OpenFile string `json:"Open File"`
			}{OpenFile: p}
		}
	case []model.ScanHit:
		boxed = make([]interface{}, len(v))
		for i, h := range v {
			boxed[i] = h
		}
	}

	data, err := json.MarshalIndent(host.NewEnvelope(boxed), "", "  ")
	if err != nil {
		return errs.New(errs.ArchiveError, fmt.Errorf("marshal %s: %w", name, err))
	}
	if err := c.sink.PutBytes(name, data); err != nil {
		return errs.New(errs.ArchiveError, err)
	}
	return nil
}

func (c *Collector) captureScreenshot() {
	png, err := c.shot.Capture()
	if err != nil {
		c.log.Warn("screenshot capture failed", zap.Error(err))
		return
	}
	if err := c.sink.PutBytes("screenshot.png", png); err != nil {
		c.log.Warn("failed to append screenshot", zap.Error(err))
	}
}

func (c *Collector) copyReferencedFiles(paths []string) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			c.log.Warn("referenced file vanished before copy", zap.String("path", p), zap.Error(err))
			continue
		}
		if info.Size() > maxOpenFileSize {
			c.log.Warn("referenced file exceeds size limit, skipping", zap.String("path", p), zap.Int64("size", info.Size()))
			continue
		}
		archiveName := path.Join("collected_files", pathutil.ToArchiveSlashes(pathutil.StripDrive(p)))
		if err := c.sink.PutFile(archiveName, p); err != nil {
			c.log.Warn("failed to copy referenced file", zap.String("path", p), zap.Error(err))
		}
	}
}

func (c *Collector) collectMemory(ctx context.Context, procs []model.ProcessRecord) {
	targets := procs
	if c.gate != nil {
		hits, hitPIDs := c.gate.Scan(ctx, procs)
		if len(hits) > 0 {
			if err := c.writeScanResults(hits); err != nil {
				c.log.Warn("failed to append scan results", zap.Error(err))
			}
		}
		filtered := targets[:0]
		for _, p := range procs {
			if hitPIDs[p.PID] {
				filtered = append(filtered, p)
			}
		}
		targets = filtered
	}

	d := dumper.New(c.sink, c.openFn, procmem.MaxChunk, c.selfPID, c.log)
	d.DumpAll(targets)
}

func (c *Collector) writeScanResults(hits []model.ScanHit) error {
	return c.writeEnvelope("yara_results.json", hits)
}

func (c *Collector) carveDumps() {
	car := carver.New()
	for _, name := range c.sink.Names() {
		if !strings.HasSuffix(name, ".mem") {
			continue
		}
		if _, err := car.AppendFromMember(c.sink, name); err != nil {
			c.log.Warn("carving failed for dump", zap.String("member", name), zap.Error(err))
		}
	}
}
