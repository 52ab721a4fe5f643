// Package model holds the data types shared across the collector: process
// inventory records, memory regions, chunk plans, and the structured
// records emitted for scan hits and carved artifacts.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// ProcessRecord describes one process captured at inventory time. It is
// immutable after construction.
type ProcessRecord struct {
	PID             uint64
	Name            string
	ExecutablePath  string
	ParentPID       uint64
	Status          string
	User            string
	CommandLine     string
	CreationTime    time.Time
	OpenFiles       []string
	MappedFiles     []string
	ConnectionLines []string
}

// CreationTimeString renders CreationTime at second precision in UTC, the
// format the JSON envelope expects.
func (p ProcessRecord) CreationTimeString() string {
	return p.CreationTime.UTC().Format("2006-01-02 15:04:05")
}

// MarshalJSON renders the record with the same keys, key order, and join
// semantics as base_system.py's get_processes: "Open Files" space-joined,
// "Connections" CRLF-joined, "Mapped Filepaths" comma-joined.
func (p ProcessRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PID            uint64 `json:"Process ID"`
		Name           string `json:"Name"`
		User           string `json:"Username"`
		Status         string `json:"Status"`
		ExecutablePath string `json:"Executable Path"`
		CommandLine    string `json:"Command"`
		ParentPID      uint64 `json:"Parent ID"`
		CreationTime   string `json:"Creation Time"`
		OpenFiles      string `json:"Open Files"`
		Connections    string `json:"Connections"`
		MappedFiles    string `json:"Mapped Filepaths"`
	}{
		PID:            p.PID,
		Name:           p.Name,
		User:           p.User,
		Status:         p.Status,
		ExecutablePath: p.ExecutablePath,
		CommandLine:    p.CommandLine,
		ParentPID:      p.ParentPID,
		CreationTime:   p.CreationTimeString(),
		OpenFiles:      strings.Join(p.OpenFiles, " "),
		Connections:    strings.Join(p.ConnectionLines, "\r\n"),
		MappedFiles:    strings.Join(p.MappedFiles, ","),
	})
}

// Region is a contiguous, readable range of a target process's virtual
// address space. Start < End always holds; a set of Regions returned by an
// enumerator is sorted ascending and non-overlapping.
type Region struct {
	Start    uint64
	End      uint64
	Readable bool
}

// Len returns the byte length of the region.
func (r Region) Len() uint64 { return r.End - r.Start }

// Chunk is one planned, bounded piece of a Region: a read of Len bytes
// starting at Addr.
type Chunk struct {
	Addr uint64
	Len  uint64
}

// NetConnection is one observed socket endpoint pair for a process.
type NetConnection struct {
	LocalAddr  string
	LocalPort  int
	RemoteAddr string
	RemotePort int
	ProcName   string
	Timestamp  time.Time
}

// ScanMatch is one instance of a rule's string/pattern match inside a
// process's memory.
type ScanMatch struct {
	Identifier    string `json:"identifier"`
	Offset        uint64 `json:"offset"`
	Length        int    `json:"length"`
	XORKey        uint8  `json:"xor_key"`
	MatchedDataB64 string `json:"matched_data_b64"`
	Plaintext     string `json:"plaintext"`
}

// ScanHit is one rule's match record against one process.
type ScanHit struct {
	Rule     string            `json:"rule"`
	Namespace string           `json:"namespace"`
	Tags     []string          `json:"tags"`
	Meta     map[string]string `json:"meta"`
	PID      uint64            `json:"pid"`
	ProcName string            `json:"proc_name"`
	Matches  []ScanMatch       `json:"matches"`
}

// ArtifactKind distinguishes the two run types the carver emits.
type ArtifactKind int

const (
	KindBinary ArtifactKind = iota
	KindText
)

func (k ArtifactKind) String() string {
	if k == KindText {
		return "text"
	}
	return "binary"
}

// CarvedArtifact is one contiguous text or binary run extracted from a dump.
type CarvedArtifact struct {
	SourceDump string
	Sequence   int
	SubIndex   int // 0 for binary artifacts and for the first (or only) part of a text run
	Kind       ArtifactKind
	MIME       string
	Extension  string
	Bytes      []byte
}
