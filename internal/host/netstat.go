package host

import (
	"strconv"
	"strings"

	"github.com/cado-security/varc-go/internal/model"
)

// FormatNetstatLine renders one connection in the fixed netstat line
// format from spec.md §6: "<date> <laddr> <lport> <raddr> <rport>
// <proc_name>", a missing remote endpoint rendered as "0.0.0.0 0".
func FormatNetstatLine(c model.NetConnection) string {
	raddr, rport := c.RemoteAddr, c.RemotePort
	if raddr == "" {
		raddr, rport = "0.0.0.0", 0
	}
	return c.Timestamp.UTC().Format("2006-01-02 15:04:05") + " " +
		c.LocalAddr + " " + strconv.Itoa(c.LocalPort) + " " +
		raddr + " " + strconv.Itoa(rport) + " " + c.ProcName
}

// NetstatLog joins every connection's line with CRLF, per spec.md §6.
func NetstatLog(conns []model.NetConnection) string {
	lines := make([]string, len(conns))
	for i, c := range conns {
		lines[i] = FormatNetstatLine(c)
	}
	return strings.Join(lines, "\r\n")
}
