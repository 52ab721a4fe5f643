package host

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cado-security/varc-go/internal/model"
)

func TestEnvelopeMarshalsWithFormatTagAndOrderedRows(t *testing.T) {
	rows := []interface{}{
		model.ProcessRecord{PID: 1, Name: "init", ExecutablePath: "/sbin/init"},
	}
	env := NewEnvelope(rows)

	data, err := json.MarshalIndent(env, "", "  ")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "CadoJsonTable", decoded["format"])

	out := string(data)
	require.Contains(t, out, `"format": "CadoJsonTable"`)
	// struct field order is preserved regardless of map iteration order
	pidIdx := indexOf(out, `"Process ID"`)
	nameIdx := indexOf(out, `"Name"`)
	require.Greater(t, nameIdx, pidIdx)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestFormatNetstatLineRendersMissingRemoteAsZero(t *testing.T) {
	c := model.NetConnection{
		LocalAddr: "127.0.0.1",
		LocalPort: 8080,
		ProcName:  "sshd",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.Equal(t, "2026-01-02 03:04:05 127.0.0.1 8080 0.0.0.0 0 sshd", FormatNetstatLine(c))
}

func TestFormatNetstatLineWithRemoteEndpoint(t *testing.T) {
	c := model.NetConnection{
		LocalAddr:  "10.0.0.1",
		LocalPort:  443,
		RemoteAddr: "10.0.0.2",
		RemotePort: 51000,
		ProcName:   "curl",
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.Equal(t, "2026-01-02 03:04:05 10.0.0.1 443 10.0.0.2 51000 curl", FormatNetstatLine(c))
}

func TestNetstatLogJoinsWithCRLF(t *testing.T) {
	conns := []model.NetConnection{
		{LocalAddr: "a", ProcName: "p1", Timestamp: time.Unix(0, 0).UTC()},
		{LocalAddr: "b", ProcName: "p2", Timestamp: time.Unix(0, 0).UTC()},
	}
	log := NetstatLog(conns)
	require.Contains(t, log, "\r\n")
	require.Equal(t, 2, len(splitCRLF(log)))
}

func splitCRLF(s string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '\r' && s[i+1] == '\n' {
			out = append(out, s[start:i])
			start = i + 2
		}
	}
	out = append(out, s[start:])
	return out
}
