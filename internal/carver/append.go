package carver

import (
	"fmt"

	"github.com/cado-security/varc-go/internal/archive"
)

// AppendFromMember carves an already-appended dump member back out of sink
// and writes every resulting artifact into sink under its ArchiveName. It
// is the bridge spec.md §4.7 describes between the dumper's archive and the
// carver's need to stream already-written bytes back in.
func (c *Carver) AppendFromMember(sink archive.Sink, dumpMemberName string) (int, error) {
	rc, err := sink.OpenMember(dumpMemberName)
	if err != nil {
		return 0, fmt.Errorf("open dump member %s for carving: %w", dumpMemberName, err)
	}
	defer rc.Close()

	artifacts := c.Carve(rc, dumpMemberName)
	for _, a := range artifacts {
		if err := sink.PutBytes(ArchiveName(a), a.Bytes); err != nil {
			return len(artifacts), fmt.Errorf("write carved artifact for %s: %w", dumpMemberName, err)
		}
	}
	return len(artifacts), nil
}
