// Package scangate runs a compiled YARA rule set against each live PID
// before memory is dumped, restricting the dump set to processes that
// produced at least one hit. Grounded on
// original_source/varc_core/systems/base_system.py's yara_scan/yara_hit_readable.
package scangate

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/hillu/go-yara/v4"
	"go.uber.org/zap"

	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/model"
)

// DefaultTimeout is the per-PID scan timeout, per spec.md §4.4.
const DefaultTimeout = 30 * time.Second

// Gate runs a compiled rule set against process memory.
type Gate struct {
	rules   *yara.Rules
	timeout time.Duration
	log     *zap.Logger
}

// Load compiles/loads rules from path. A failure here is a RuleLoadError;
// the caller should disable scanning for the run rather than treat it as
// fatal, per spec.md §4.4 and §7.
func Load(path string, log *zap.Logger) (*Gate, error) {
	rules, err := yara.LoadRules(path)
	if err != nil {
		return nil, errs.New(errs.RuleLoadError, fmt.Errorf("load yara rules from %s: %w", path, err))
	}
	return &Gate{rules: rules, timeout: DefaultTimeout, log: log}, nil
}

// Scan runs the compiled rules against every process in procs, in order,
// and returns the recorded hits plus the set of PIDs that matched. A
// failure scanning one process is logged and skipped; it never aborts the
// run (spec.md §4.4 "robust to engine exceptions per PID").
func (g *Gate) Scan(ctx context.Context, procs []model.ProcessRecord) ([]model.ScanHit, map[uint64]bool) {
	var hits []model.ScanHit
	hitPIDs := make(map[uint64]bool)

	for _, p := range procs {
		pidHits, err := g.scanOne(ctx, p)
		if err != nil {
			g.log.Warn("yara scan failed for process, skipping",
				zap.Uint64("pid", p.PID), zap.String("name", p.Name), zap.Error(err))
			continue
		}
		if len(pidHits) > 0 {
			hitPIDs[p.PID] = true
			hits = append(hits, pidHits...)
			g.log.Info("yara rule triggered", zap.Uint64("pid", p.PID), zap.String("name", p.Name), zap.Int("hits", len(pidHits)))
		}
	}
	return hits, hitPIDs
}

func (g *Gate) scanOne(ctx context.Context, p model.ProcessRecord) ([]model.ScanHit, error) {
	var matches yara.MatchRules

	scanCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.rules.ScanProc(int(p.PID), 0, g.timeout, &matches)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, errs.WithPID(errs.ScanError, int(p.PID), err)
		}
	case <-scanCtx.Done():
		return nil, errs.WithPID(errs.ScanError, int(p.PID), scanCtx.Err())
	}

	hits := make([]model.ScanHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, toScanHit(m, p))
	}
	return hits, nil
}

func toScanHit(m yara.MatchRule, p model.ProcessRecord) model.ScanHit {
	meta := make(map[string]string, len(m.Metas))
	for _, md := range m.Metas {
		meta[md.Identifier] = fmt.Sprintf("%v", md.Value)
	}

	matches := make([]model.ScanMatch, 0, len(m.Strings))
	for _, s := range m.Strings {
		matches = append(matches, model.ScanMatch{
			Identifier:     s.Name,
			Offset:         s.Offset,
			Length:         len(s.Data),
			XORKey:         s.XORKey,
			MatchedDataB64: base64.StdEncoding.EncodeToString(s.Data),
			Plaintext:      string(s.Data),
		})
	}

	return model.ScanHit{
		Rule:      m.Rule,
		Namespace: m.Namespace,
		Tags:      m.Tags,
		Meta:      meta,
		PID:       p.PID,
		ProcName:  p.Name,
		Matches:   matches,
	}
}
