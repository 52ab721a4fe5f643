// Command varc is the live forensic volatile-artifact collector CLI.
// Grounded on cmd/viewcore/main.go's cobra root-command wiring.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cado-security/varc-go/internal/collector"
	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		skipMemory   bool
		skipOpen     bool
		dumpExtract  bool
		yaraRules    string
		output       string
		processName  string
		processID    int
		noScreenshot bool
		logFile      string
		debug        bool
	)

	root := &cobra.Command{
		Use:                "varc",
		Short:              "Collect live volatile forensic artifacts from this host",
		Args:               cobra.ArbitraryArgs, // unknown positional args ignored, spec.md §6
		SilenceUsage:       true,
		SilenceErrors:      true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: false},
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(logFile, debug)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			defer log.Sync()

			cfg, err := collector.NewConfig(collector.Config{
				OutputPath:    output,
				LogFile:       logFile,
				SkipMemory:    skipMemory,
				SkipOpen:      skipOpen,
				DumpExtract:   dumpExtract,
				YaraRulesPath: yaraRules,
				ProcessName:   processName,
				ProcessID:     processID,
				NoScreenshot:  noScreenshot,
				Debug:         debug,
			}, time.Now())
			if err != nil {
				log.Error("invalid configuration", zap.Error(err))
				return err
			}

			c, err := collector.New(cfg, log)
			if err != nil {
				log.Error("collector setup failed", zap.Error(err))
				return err
			}
			defer c.Close()

			if err := c.Run(context.Background()); err != nil {
				log.Error("collection failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	root.Flags().BoolVar(&skipMemory, "skip-memory", false, "disable process memory dumping")
	root.Flags().BoolVar(&skipOpen, "skip-open", false, "disable copying open files")
	root.Flags().BoolVar(&dumpExtract, "dump-extract", false, "carve text/binary artifacts out of each memory dump")
	root.Flags().StringVar(&yaraRules, "yara-scan", "", "path to a compiled YARA rule file; enables the scan gate")
	root.Flags().StringVar(&output, "output", "", "output archive path (default <machine>-<unix_timestamp>.zip)")
	root.Flags().StringVar(&processName, "process-name", "", "restrict collection to processes matching this name")
	root.Flags().IntVar(&processID, "process-id", 0, "restrict collection to a single PID")
	root.Flags().BoolVar(&noScreenshot, "no-screenshot", false, "disable screenshot capture")
	root.Flags().StringVar(&logFile, "log-file", "varc.log", "path to the run's log file")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	root.MarkFlagsMutuallyExclusive("process-name", "process-id")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "varc:", err)
		kind, ok := errs.KindOf(err)
		if ok && !kind.Recoverable() {
			return 1
		}
		if !ok {
			return 1
		}
		return 0
	}
	return 0
}
