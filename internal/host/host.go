// Package host wraps the machine-introspection capabilities the collector
// treats as injected collaborators (spec.md §1's "Out of scope: external
// collaborators"): process/network enumeration, open-file discovery, and
// screenshot capture. Grounded on
// original_source/varc_core/systems/base_system.py's get_processes/
// get_network/dump_loaded_files and gravwell-gravwell's gopsutil usage in
// ingesters/massFile/main.go.
package host

import (
	"context"

	"github.com/cado-security/varc-go/internal/model"
)

// Introspector enumerates the live host's processes, network connections,
// and the set of files those processes have open or mapped.
type Introspector interface {
	Processes(ctx context.Context) ([]model.ProcessRecord, error)
	Connections(ctx context.Context, procs []model.ProcessRecord) ([]model.NetConnection, error)
	ReferencedFiles(procs []model.ProcessRecord) []string
}

// Screenshotter captures a single image of every attached monitor as one
// PNG. Implementations are platform-specific; see screenshot_*.go.
type Screenshotter interface {
	Capture() ([]byte, error)
}

// Envelope is the tagged JSON container every table artifact is wrapped in,
// per spec.md §6 "JSON envelope".
type Envelope struct {
	Format string        `json:"format"`
	Rows   []interface{} `json:"rows"`
}

// NewEnvelope wraps rows in the CadoJsonTable envelope.
func NewEnvelope(rows []interface{}) Envelope {
	return Envelope{Format: "CadoJsonTable", Rows: rows}
}
