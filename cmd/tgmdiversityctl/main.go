package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tgmdiversity/internal/logging"
	"tgmdiversity/pkg/tgmdiversity"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	root := newRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "tgmdiversityctl",
		Short: "Diversity and dissimilarity analysis of TGM GA logs",
		Long: `tgmdiversityctl summarizes "GA log *.csv" files per level and generation:
fitness distributions, gene key and gene group frequencies, Gower
dissimilarity and per-component gene counts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML config file")
	flags.String("output-dir", "", "directory for analysis artifacts")
	flags.String("store", "", "report store backend: memory|sqlite")
	flags.String("db-path", "", "sqlite database path")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this textfile")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.String("log-format", "", "log format: auto|text|json")

	root.AddCommand(
		newAnalyzeCmd(c),
		newCompareCmd(c),
		newConsistencyCmd(c),
		newInspectCmd(c),
		newReportsCmd(c),
	)
	return root
}

// addAnalysisFlags registers the flags that shape summary.Config.
func addAnalysisFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("pattern", "", "GA log file glob (default \"GA log *.csv\")")
	flags.String("default-level", "", "level id for logs without a level column")
	flags.Float64("epsilon", 0, "fitness validity threshold; valid when fitness > epsilon")
	flags.Float64Slice("quantiles", nil, "reported quantiles, e.g. 0.05,0.25,0.5,0.75,0.95")
	flags.StringSlice("fields", nil, "dissimilarity fields")
	flags.String("granularity", "", "dissimilarity population: run|cohort")
	flags.String("player-prefix", "", "game object prefix of the player agent")
	flags.Int("workers", 0, "cohorts summarized concurrently (0 = GOMAXPROCS)")
	flags.StringSlice("level-order", nil, "level ids listed first, in order")
	flags.Bool("plots", false, "render PNG charts")
}

// settings loads the config file and overlays the flags set on cmd.
func (c *cli) settings(cmd *cobra.Command) (fileConfig, error) {
	cfg, err := loadFileConfig(c.configPath)
	if err != nil {
		return fileConfig{}, err
	}
	if err := cfg.overlayFlags(cmd.Flags()); err != nil {
		return fileConfig{}, err
	}
	return cfg, nil
}

func (c *cli) client(cfg fileConfig) (*tgmdiversity.Client, error) {
	logger, err := logging.New(c.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return tgmdiversity.New(tgmdiversity.Options{
		StoreKind:       cfg.Store,
		DBPath:          cfg.DBPath,
		AnalysesDir:     cfg.OutputDir,
		MetricsTextfile: cfg.MetricsTextfile,
		Logger:          logger,
	})
}

func (c *cli) printJSON(value any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
