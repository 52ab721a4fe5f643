package collector

import (
	"fmt"
	"os"
	"time"

	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/pathutil"
)

// Config is assembled from CLI flags and validated once at construction,
// per spec.md §4.5 "enforced at construction."
type Config struct {
	OutputPath    string
	LogFile       string
	SkipMemory    bool
	SkipOpen      bool
	DumpExtract   bool
	YaraRulesPath string
	ProcessName   string
	ProcessID     int
	NoScreenshot  bool
	Debug         bool
}

// NewConfig validates cfg and fills in defaults (an output path derived from
// the sanitized host name and the current unix timestamp, per spec.md §6).
func NewConfig(cfg Config, now time.Time) (*Config, error) {
	if cfg.ProcessName != "" && cfg.ProcessID != 0 {
		return nil, errs.New(errs.InvalidSelection, fmt.Errorf("process_name and process_id are mutually exclusive"))
	}

	if cfg.OutputPath == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown-host"
		}
		cfg.OutputPath = fmt.Sprintf("%s-%d.zip", pathutil.Sanitize(host), now.Unix())
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "varc.log"
	}
	out := cfg
	return &out, nil
}
