package collector

import (
	"archive/zip"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/model"
	"github.com/cado-security/varc-go/internal/procmem"
)

type fakeIntrospector struct {
	procs []model.ProcessRecord
	conns []model.NetConnection
}

func (f fakeIntrospector) Processes(ctx context.Context) ([]model.ProcessRecord, error) {
	return f.procs, nil
}
func (f fakeIntrospector) Connections(ctx context.Context, procs []model.ProcessRecord) ([]model.NetConnection, error) {
	return f.conns, nil
}
func (f fakeIntrospector) ReferencedFiles(procs []model.ProcessRecord) []string { return nil }

type noScreenshot struct{}

func (noScreenshot) Capture() ([]byte, error) { return nil, errs.New(errs.Unreadable, nil) }

func TestNewConfigRejectsMutuallyExclusiveFilters(t *testing.T) {
	_, err := NewConfig(Config{ProcessName: "sshd", ProcessID: 42}, fixedNow)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errs.InvalidSelection, kind)
}

func TestNewConfigFillsDefaults(t *testing.T) {
	cfg, err := NewConfig(Config{}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "varc.log", cfg.LogFile)
	require.NotEmpty(t, cfg.OutputPath)
}

func TestRunWithMemorySkippedWritesInventoryOnly(t *testing.T) {
	cfg, err := NewConfig(Config{
		OutputPath: filepath.Join(t.TempDir(), "out.zip"),
		LogFile:    filepath.Join(t.TempDir(), "varc.log"),
		SkipMemory: true,
		SkipOpen:   true,
	}, fixedNow)
	require.NoError(t, err)

	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	c.intro = fakeIntrospector{procs: []model.ProcessRecord{{PID: 1, Name: "init"}}}
	c.shot = noScreenshot{}
	c.openFn = func(pid int) (procmem.Reader, error) { return nil, errs.New(errs.Denied, nil) }

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Close())

	zr, err := zip.OpenReader(cfg.OutputPath)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	require.True(t, names["processes.json"])
	require.True(t, names["open_files.json"])
	require.False(t, hasPrefix(names, "process_dumps/"))
}

func hasPrefix(names map[string]bool, prefix string) bool {
	for n := range names {
		if len(n) >= len(prefix) && n[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func TestFilterSelectionByProcessName(t *testing.T) {
	c := &Collector{cfg: &Config{ProcessName: "sshd"}}
	procs := []model.ProcessRecord{{PID: 1, Name: "init"}, {PID: 2, Name: "sshd"}}
	filtered := c.filterSelection(procs)
	require.Len(t, filtered, 1)
	require.Equal(t, uint64(2), filtered[0].PID)
}

func TestWriteEnvelopeProducesCadoJsonTableFormat(t *testing.T) {
	cfg, err := NewConfig(Config{OutputPath: filepath.Join(t.TempDir(), "out.zip")}, fixedNow)
	require.NoError(t, err)
	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.writeEnvelope("processes.json", []model.ProcessRecord{{PID: 1, Name: "init"}}))

	rc, err := c.sink.OpenMember("processes.json")
	require.NoError(t, err)
	defer rc.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(rc).Decode(&decoded))
	require.Equal(t, "CadoJsonTable", decoded["format"])
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
