// Command cyclus runs the fuel-cycle simulation core against a scenario
// file: load, build the agent tree, drive the tick/tock loop for the
// declared horizon, and report a summary.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hodger/cyclus/internal/config"
	"github.com/hodger/cyclus/internal/messaging"
	"github.com/hodger/cyclus/internal/registry"
	"github.com/hodger/cyclus/internal/scenario"
	"github.com/hodger/cyclus/internal/timekeeper"
	"github.com/hodger/cyclus/internal/trace"
)

// exit codes: 0 clean, 1 scenario parse error, 2 runtime error (routing,
// ownership, or conservation violation).
const (
	exitOK      = 0
	exitParse   = 1
	exitRuntime = 2
)

var (
	tracePath string
	watch     bool
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "cyclus",
		Short: "Discrete-time nuclear-fuel-cycle agent simulator",
	}

	runCmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Load a scenario and run it for its declared horizon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(args[0])
		},
	}
	runCmd.Flags().StringVar(&tracePath, "trace", "", "write a SQLite run trace to this path")
	runCmd.Flags().BoolVar(&watch, "watch", false, "watch CYCLUS_PATH for plugin directory changes")

	validateCmd := &cobra.Command{
		Use:   "validate <scenario-file>",
		Short: "Parse and build a scenario without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateScenario(args[0])
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the cyclus version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cyclus 0.1.0")
		},
	}

	root.AddCommand(runCmd, validateCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitRuntime)
	}
}

func loadScenario(path string) *scenario.Doc {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("opening scenario file", "path", path, "error", err)
		os.Exit(exitParse)
	}
	defer f.Close()

	doc, err := scenario.Load(f)
	if err != nil {
		slog.Error("parsing scenario", "path", path, "error", err)
		os.Exit(exitParse)
	}
	return doc
}

func validateScenario(path string) error {
	doc := loadScenario(path)
	if _, err := scenario.Build(doc); err != nil {
		slog.Error("building scenario", "path", path, "error", err)
		os.Exit(exitParse)
	}
	fmt.Printf("scenario %s is valid: horizon=%d months, commodities=%v\n",
		path, doc.Horizon, scenario.SortedCommodityNames(doc))
	return nil
}

func runScenario(path string) error {
	if _, err := config.RequireCyclusPath(); err != nil {
		slog.Error("CYCLUS_PATH must be set", "error", err)
		os.Exit(exitRuntime)
	}

	doc := loadScenario(path)
	reg, err := scenario.Build(doc)
	if err != nil {
		slog.Error("building scenario", "path", path, "error", err)
		os.Exit(exitParse)
	}

	tk := timekeeper.New(reg)

	var recorder *trace.Recorder
	if tracePath != "" {
		recorder, err = trace.Open(tracePath)
		if err != nil {
			slog.Error("opening trace database", "path", tracePath, "error", err)
			os.Exit(exitRuntime)
		}
		defer recorder.Close()
		messaging.SetSink(recorder)
		defer messaging.SetSink(nil)
		tk.OnMonthStart = recorder.SetMonth
	}

	if watch {
		if cyclusPath := os.Getenv(config.CyclusPathEnv); cyclusPath != "" {
			watcher, err := config.NewWatcher(cyclusPath)
			if err != nil {
				slog.Warn("starting plugin directory watcher failed", "error", err)
			} else {
				defer watcher.Close()
				go watcher.Run()
			}
		}
	}

	slog.Info("running scenario", "path", path, "horizon_months", doc.Horizon)
	if err := tk.Run(doc.Horizon); err != nil {
		slog.Error("simulation run failed", "error", err)
		os.Exit(exitRuntime)
	}

	summarize(reg, doc)
	return nil
}

func summarize(reg *registry.Registry, doc *scenario.Doc) {
	fmt.Printf("run complete: %s months, %s commodities cleared, %s root regions\n",
		humanize.Comma(int64(doc.Horizon)),
		humanize.Comma(int64(len(scenario.SortedCommodityNames(doc)))),
		humanize.Comma(int64(len(reg.Roots()))),
	)
}
