package host

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/cado-security/varc-go/internal/model"
)

// GopsutilIntrospector implements Introspector on top of
// github.com/shirou/gopsutil/v3, the same library gravwell-gravwell pulls
// in for its ingesters' host metadata.
type GopsutilIntrospector struct{}

func NewGopsutilIntrospector() *GopsutilIntrospector { return &GopsutilIntrospector{} }

// Processes enumerates every running process, best-effort: a process that
// vanishes mid-enumeration or denies a field is recorded with the fields
// that were readable rather than dropped entirely.
func (GopsutilIntrospector) Processes(ctx context.Context) ([]model.ProcessRecord, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	out := make([]model.ProcessRecord, 0, len(procs))
	for _, p := range procs {
		name, _ := p.NameWithContext(ctx)
		exe, _ := p.ExeWithContext(ctx)
		ppid, _ := p.PpidWithContext(ctx)
		statusList, _ := p.StatusWithContext(ctx)
		status := ""
		if len(statusList) > 0 {
			status = statusList[0]
		}
		username, _ := p.UsernameWithContext(ctx)
		cmdline, _ := p.CmdlineWithContext(ctx)
		createdMS, _ := p.CreateTimeWithContext(ctx)

		rec := model.ProcessRecord{
			PID:            uint64(p.Pid),
			Name:           name,
			ExecutablePath: exe,
			ParentPID:      uint64(ppid),
			Status:         status,
			User:           username,
			CommandLine:    cmdline,
			CreationTime:   time.UnixMilli(createdMS),
		}

		if files, err := p.OpenFilesWithContext(ctx); err == nil {
			for _, f := range files {
				rec.OpenFiles = append(rec.OpenFiles, f.Path)
			}
		}
		if maps, err := p.MemoryMapsWithContext(ctx, false); err == nil && maps != nil {
			for _, m := range *maps {
				if m.Path != "" {
					rec.MappedFiles = append(rec.MappedFiles, m.Path)
				}
			}
		}
		if conns, err := p.ConnectionsWithContext(ctx); err == nil {
			now := time.Now()
			for _, c := range conns {
				if c.Laddr.IP == "" || c.Raddr.IP == "" {
					continue
				}
				rec.ConnectionLines = append(rec.ConnectionLines, FormatNetstatLine(model.NetConnection{
					LocalAddr:  c.Laddr.IP,
					LocalPort:  int(c.Laddr.Port),
					RemoteAddr: c.Raddr.IP,
					RemotePort: int(c.Raddr.Port),
					Timestamp:  now,
				}))
			}
		}

		out = append(out, rec)
	}
	return out, nil
}

// Connections returns every socket gopsutil reports for kind "all", in any
// state, joined with the owning process name by PID.
func (GopsutilIntrospector) Connections(ctx context.Context, procs []model.ProcessRecord) ([]model.NetConnection, error) {
	names := make(map[uint64]string, len(procs))
	for _, p := range procs {
		names[p.PID] = p.Name
	}

	conns, err := net.ConnectionsWithContext(ctx, "all")
	if err != nil {
		return nil, fmt.Errorf("enumerate connections: %w", err)
	}

	now := time.Now()
	out := make([]model.NetConnection, 0, len(conns))
	for _, c := range conns {
		out = append(out, model.NetConnection{
			LocalAddr:  c.Laddr.IP,
			LocalPort:  int(c.Laddr.Port),
			RemoteAddr: c.Raddr.IP,
			RemotePort: int(c.Raddr.Port),
			ProcName:   names[uint64(c.Pid)],
			Timestamp:  now,
		})
	}
	return out, nil
}

// ReferencedFiles returns the de-duplicated union of every process's
// executable path, open files, and mapped files, filtered to paths that
// still exist, per spec.md §4.5 step 5.
func (GopsutilIntrospector) ReferencedFiles(procs []model.ProcessRecord) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
		seen[path] = true
		out = append(out, path)
	}

	for _, p := range procs {
		add(p.ExecutablePath)
		for _, f := range p.OpenFiles {
			add(f)
		}
		for _, f := range p.MappedFiles {
			add(f)
		}
	}
	return out
}
