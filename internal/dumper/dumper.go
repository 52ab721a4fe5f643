// Package dumper orchestrates reading each selected process's memory and
// appending it to the archive as a process_dumps/<name>_<pid>.mem entry.
// Grounded on original_source/varc_core/systems/linux.py's dump_processes
// and windows.py's mirror of the same algorithm.
package dumper

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/cado-security/varc-go/internal/archive"
	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/model"
	"github.com/cado-security/varc-go/internal/pathutil"
	"github.com/cado-security/varc-go/internal/procmem"
)

// OpenFunc constructs a procmem.Reader for a PID. Exists so tests can
// substitute a fake reader without touching a real process.
type OpenFunc func(pid int) (procmem.Reader, error)

// Dumper drives ProcessDumper for a batch of selected processes.
type Dumper struct {
	sink     archive.Sink
	open     OpenFunc
	maxChunk uint64
	selfPID  int
	log      *zap.Logger

	// outOfMemory is set once a dump aborts with OutOfMemory; DumpAll then
	// dumps no further processes, per spec.md §4.3's global back-pressure.
	outOfMemory bool
}

// New returns a Dumper writing into sink, using openFn to acquire a reader
// per PID, bounding reads to maxChunk bytes and refusing to ever dump
// selfPID (spec.md §4.3 "Exclusion of self").
func New(sink archive.Sink, openFn OpenFunc, maxChunk uint64, selfPID int, log *zap.Logger) *Dumper {
	if maxChunk == 0 {
		maxChunk = procmem.MaxChunk
	}
	return &Dumper{sink: sink, open: openFn, maxChunk: maxChunk, selfPID: selfPID, log: log}
}

// Result summarizes the outcome of dumping one PID.
type Result struct {
	PID       uint64
	MemberName string
	Dumped    bool
	Err       error
}

// DumpAll dumps every process in procs except the collector's own PID,
// skipping any PID for which the enumerator returns no regions. It stops
// issuing further dumps (but does not fail the run) once it observes
// OutOfMemory, per spec.md §4.3 and §7.
func (d *Dumper) DumpAll(procs []model.ProcessRecord) []Result {
	results := make([]Result, 0, len(procs))
	for _, p := range procs {
		if d.outOfMemory {
			break
		}
		if int(p.PID) == d.selfPID {
			continue
		}
		results = append(results, d.dumpOne(p))
	}
	return results
}

func (d *Dumper) dumpOne(p model.ProcessRecord) Result {
	pid := int(p.PID)
	res := Result{PID: p.PID}

	reader, err := d.open(pid)
	if err != nil {
		d.logSkip(p, err)
		res.Err = err
		return res
	}
	defer reader.Close()

	regions, err := reader.Regions()
	if err != nil {
		d.logSkip(p, err)
		res.Err = err
		return res
	}
	if len(regions) == 0 {
		return res
	}

	spool, err := os.CreateTemp("", "varc-dump-*.mem")
	if err != nil {
		res.Err = errs.WithPID(errs.ArchiveError, pid, err)
		return res
	}
	spoolPath := spool.Name()
	defer os.Remove(spoolPath)

	wrote, aborted := d.streamRegions(spool, reader, regions)
	spool.Close()

	if aborted {
		d.outOfMemory = true
		d.log.Error("out of memory dumping process, aborting further dumps",
			zap.Uint64("pid", p.PID), zap.String("name", p.Name))
		if wrote == 0 {
			return res
		}
	}

	memberName := fmt.Sprintf("process_dumps/%s_%d.mem", pathutil.Sanitize(p.Name), p.PID)
	if err := d.sink.PutFile(memberName, spoolPath); err != nil {
		res.Err = errs.WithPID(errs.ArchiveError, pid, err)
		return res
	}

	res.Dumped = true
	res.MemberName = memberName
	return res
}

// streamRegions reads every chunk of every region in order, skipping
// unreadable chunks without padding, and writes successful reads to w.
// Returns the number of bytes written and whether the host is out of
// memory.
func (d *Dumper) streamRegions(w io.Writer, reader procmem.Reader, regions []model.Region) (uint64, bool) {
	var total uint64
	for _, region := range regions {
		if !region.Readable {
			continue
		}
		for _, c := range ChunkPlan(region, d.maxChunk) {
			data, err := reader.Read(c.Addr, c.Len)
			if err != nil {
				if isOutOfMemory(err) {
					return total, true
				}
				// Unreadable/Denied/Vanished: skip this chunk, keep going.
				continue
			}
			n, werr := w.Write(data)
			total += uint64(n)
			if werr != nil {
				return total, false
			}
		}
	}
	return total, false
}

func isOutOfMemory(err error) bool {
	k, ok := errs.KindOf(err)
	return ok && k == errs.OutOfMemory
}

func (d *Dumper) logSkip(p model.ProcessRecord, err error) {
	kind, _ := errs.KindOf(err)
	d.log.Warn("skipping process dump",
		zap.Uint64("pid", p.PID), zap.String("name", p.Name),
		zap.String("kind", kind.String()), zap.Error(err))
}
