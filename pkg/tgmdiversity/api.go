// Package tgmdiversity is the public entry point for analysing GA logs of
// toggleable-game-mechanics searches: it loads logs, builds the cohort
// report and writes tables, JSON artifacts, plots and metrics.
package tgmdiversity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tgmdiversity/internal/export"
	"tgmdiversity/internal/galog"
	"tgmdiversity/internal/levelid"
	"tgmdiversity/internal/logging"
	"tgmdiversity/internal/metrics"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/plot"
	"tgmdiversity/internal/stats"
	"tgmdiversity/internal/storage"
	"tgmdiversity/internal/summary"
)

const (
	defaultAnalysesDir = "analyses"
	defaultDBPath      = "tgmdiversity.db"
	tablesSubdir       = "tables"
	plotsSubdir        = "plots"
)

type Options struct {
	StoreKind   string
	DBPath      string
	AnalysesDir string
	// MetricsTextfile, when set, is rewritten after every analysis.
	MetricsTextfile string
	Logger          *slog.Logger
}

type Client struct {
	store   storage.Store
	metrics *metrics.AnalysisMetrics
	logger  *slog.Logger

	analysesDir     string
	metricsTextfile string

	initMu      sync.Mutex
	initialized bool
}

// Source selects the GA logs of one dataset.
type Source struct {
	Dir          string
	Pattern      string
	DefaultLevel string
}

func (s Source) options(experiment string) galog.LoadOptions {
	return galog.LoadOptions{Pattern: s.Pattern, DefaultLevel: s.DefaultLevel, Experiment: experiment}
}

type AnalyzeRequest struct {
	Source
	Label  string
	Config summary.Config
	// TablesDir defaults to <analyses dir>/<analysis id>/tables.
	TablesDir string
	Plots     bool
	Names     levelid.Names
	Store     bool
}

type AnalyzeSummary struct {
	AnalysisID   string
	ArtifactsDir string
	Tables       []string
	Plots        []string
	Report       summary.Report
	Elapsed      time.Duration
}

// Experiment is one labelled dataset of a comparison.
type Experiment struct {
	Label string
	Source
}

type CompareRequest struct {
	Experiments []Experiment
	Config      summary.Config
	OutDir      string
	Plots       bool
	Names       levelid.Names
}

type CompareSummary struct {
	Rows        []summary.ExperimentRow
	Diagnostics model.Diagnostics
	Table       string
	Plots       []string
}

type ConsistencyRequest struct {
	Source
	Config summary.Config
	OutDir string
	Names  levelid.Names
}

type ConsistencySummary struct {
	Rows        []summary.ConsistencyRow
	Diagnostics model.Diagnostics
	Table       string
}

type ReportsRequest struct {
	Limit int
	// Stored lists the store instead of the on-disk analysis index.
	Stored bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	analysesDir := opts.AnalysesDir
	if analysesDir == "" {
		analysesDir = defaultAnalysesDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:           store,
		metrics:         metrics.New(),
		logger:          logger,
		analysesDir:     analysesDir,
		metricsTextfile: opts.MetricsTextfile,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store. It is safe to call more than once.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func (c *Client) Metrics() *metrics.AnalysisMetrics {
	return c.metrics
}

// Analyze loads one directory of GA logs and writes the full set of
// artifacts for it.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeSummary, error) {
	if strings.TrimSpace(req.Dir) == "" {
		return AnalyzeSummary{}, errors.New("analyze requires a log directory")
	}
	cfg := c.withLogger(req.Config)
	if err := cfg.Validate(); err != nil {
		return AnalyzeSummary{}, err
	}

	started := time.Now()
	raws, err := galog.LoadDir(req.Dir, req.options(""))
	if err != nil {
		return AnalyzeSummary{}, err
	}
	report, err := summary.Build(ctx, raws, cfg)
	if err != nil {
		return AnalyzeSummary{}, err
	}
	elapsed := time.Since(started)

	id := export.NewAnalysisID()
	createdAt := export.NowUTC()
	artifacts := export.AnalysisArtifacts{
		Config: analysisConfig(id, req, cfg, report),
		Report: report,
	}
	dir, err := export.WriteAnalysisArtifacts(c.analysesDir, artifacts)
	if err != nil {
		return AnalyzeSummary{}, fmt.Errorf("write artifacts: %w", err)
	}
	if err := export.AppendAnalysisIndex(c.analysesDir, export.IndexEntry(artifacts, createdAt)); err != nil {
		return AnalyzeSummary{}, fmt.Errorf("update analysis index: %w", err)
	}

	out := AnalyzeSummary{AnalysisID: id, ArtifactsDir: dir, Report: report, Elapsed: elapsed}
	tablesDir := req.TablesDir
	if tablesDir == "" {
		tablesDir = filepath.Join(dir, tablesSubdir)
	}
	out.Tables, err = export.WriteAll(tablesDir, report, export.TableOptions{Quantiles: report.Quantiles, Names: req.Names})
	if err != nil {
		return AnalyzeSummary{}, err
	}
	if req.Plots {
		out.Plots, err = plot.WriteReportPlots(filepath.Join(dir, plotsSubdir), report, req.Names)
		if err != nil {
			return AnalyzeSummary{}, err
		}
	}

	if req.Store {
		if err := c.Init(ctx); err != nil {
			return AnalyzeSummary{}, err
		}
		record := storage.ReportRecord{
			ID:           id,
			Label:        req.Label,
			Source:       req.Dir,
			CreatedAtUTC: createdAt,
			Report:       report,
		}
		if err := c.store.SaveReport(ctx, record); err != nil {
			return AnalyzeSummary{}, fmt.Errorf("store report: %w", err)
		}
	}

	if err := c.observe(report.Diagnostics, elapsed); err != nil {
		return AnalyzeSummary{}, err
	}
	c.logger.Info("analysis written", "analysis_id", id, "dir", dir, "tables", len(out.Tables), "plots", len(out.Plots))
	return out, nil
}

// Compare summarizes fitness per experiment, level and generation.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (CompareSummary, error) {
	if len(req.Experiments) == 0 {
		return CompareSummary{}, errors.New("compare requires at least one experiment")
	}
	cfg := c.withLogger(req.Config)

	datasets := make([]summary.Dataset, 0, len(req.Experiments))
	for _, experiment := range req.Experiments {
		label := strings.TrimSpace(experiment.Label)
		if label == "" {
			label = filepath.Base(experiment.Dir)
		}
		raws, err := galog.LoadDir(experiment.Dir, experiment.options(label))
		if err != nil {
			return CompareSummary{}, fmt.Errorf("experiment %s: %w", label, err)
		}
		datasets = append(datasets, summary.Dataset{Label: label, Records: raws})
	}

	started := time.Now()
	rows, diag, err := summary.CompareExperiments(ctx, datasets, cfg)
	if err != nil {
		return CompareSummary{}, err
	}
	out := CompareSummary{Rows: rows, Diagnostics: diag}
	if req.OutDir == "" {
		return out, c.observe(diag, time.Since(started))
	}

	opts, err := tableOptions(cfg, req.Names)
	if err != nil {
		return CompareSummary{}, err
	}
	out.Table = filepath.Join(req.OutDir, export.ExperimentsFile)
	if err := export.WriteFile(out.Table, func(w io.Writer) error { return export.WriteExperimentCSV(w, rows, opts) }); err != nil {
		return CompareSummary{}, err
	}
	if req.Plots {
		out.Plots, err = plot.WriteCharts(filepath.Join(req.OutDir, plotsSubdir), plot.ExperimentCharts(rows, req.Names))
		if err != nil {
			return CompareSummary{}, err
		}
	}
	return out, c.observe(diag, time.Since(started))
}

// Consistency summarizes fitness per gene key and level.
func (c *Client) Consistency(_ context.Context, req ConsistencyRequest) (ConsistencySummary, error) {
	if strings.TrimSpace(req.Dir) == "" {
		return ConsistencySummary{}, errors.New("consistency requires a log directory")
	}
	cfg := c.withLogger(req.Config)
	raws, err := galog.LoadDir(req.Dir, req.options(""))
	if err != nil {
		return ConsistencySummary{}, err
	}
	rows, diag, err := summary.BuildConsistency(raws, cfg)
	if err != nil {
		return ConsistencySummary{}, err
	}
	out := ConsistencySummary{Rows: rows, Diagnostics: diag}
	if req.OutDir == "" {
		return out, nil
	}
	opts, err := tableOptions(cfg, req.Names)
	if err != nil {
		return ConsistencySummary{}, err
	}
	out.Table = filepath.Join(req.OutDir, export.ConsistencyFile)
	if err := export.WriteFile(out.Table, func(w io.Writer) error { return export.WriteConsistencyCSV(w, rows, opts) }); err != nil {
		return ConsistencySummary{}, err
	}
	return out, nil
}

// tableOptions lays out table columns for the quantile set the rows were
// summarized with.
func tableOptions(cfg summary.Config, names levelid.Names) (export.TableOptions, error) {
	quantiles, err := stats.NormalizeQuantiles(cfg.Quantiles)
	if err != nil {
		return export.TableOptions{}, err
	}
	return export.TableOptions{Quantiles: quantiles, Names: names}, nil
}

func (c *Client) Inspect(_ context.Context, dir, pattern string) ([]galog.FileInfo, error) {
	return galog.InspectDir(dir, pattern)
}

// Reports lists past analyses, newest first.
func (c *Client) Reports(ctx context.Context, req ReportsRequest) ([]storage.ReportInfo, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	var infos []storage.ReportInfo
	if req.Stored {
		if err := c.Init(ctx); err != nil {
			return nil, err
		}
		stored, err := c.store.ListReports(ctx)
		if err != nil {
			return nil, err
		}
		infos = stored
	} else {
		entries, err := export.ListAnalysisIndex(c.analysesDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			infos = append(infos, storage.ReportInfo{
				ID:           e.AnalysisID,
				Label:        e.Label,
				Source:       e.Source,
				CreatedAtUTC: e.CreatedAtUTC,
				Cohorts:      e.Cohorts,
				Records:      e.Records,
			})
		}
	}
	if len(infos) > req.Limit {
		infos = infos[:req.Limit]
	}
	return infos, nil
}

// Report returns a past analysis, looking in the store first and then in
// the artifacts directory.
func (c *Client) Report(ctx context.Context, id string) (summary.Report, error) {
	if strings.TrimSpace(id) == "" {
		return summary.Report{}, errors.New("report id is required")
	}
	if err := c.Init(ctx); err != nil {
		return summary.Report{}, err
	}
	record, ok, err := c.store.GetReport(ctx, id)
	if err != nil {
		return summary.Report{}, err
	}
	if ok {
		return record.Report, nil
	}
	report, ok, err := export.ReadAnalysisReport(c.analysesDir, id)
	if err != nil {
		return summary.Report{}, err
	}
	if !ok {
		return summary.Report{}, fmt.Errorf("analysis not found: %s", id)
	}
	return report, nil
}

func (c *Client) withLogger(cfg summary.Config) summary.Config {
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}
	return cfg
}

func (c *Client) observe(diag model.Diagnostics, elapsed time.Duration) error {
	c.metrics.Observe(diag, elapsed)
	if c.metricsTextfile == "" {
		return nil
	}
	if err := c.metrics.WriteTextfile(c.metricsTextfile); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func analysisConfig(id string, req AnalyzeRequest, cfg summary.Config, report summary.Report) export.AnalysisConfig {
	fields := cfg.DissimilarityFields
	if len(fields) == 0 && len(report.Dissimilarity) > 0 {
		fields = report.Dissimilarity[0].Fields
	}
	granularity := string(cfg.Granularity)
	if granularity == "" {
		granularity = string(summary.GranularityRun)
	}
	return export.AnalysisConfig{
		AnalysisID:          id,
		Label:               req.Label,
		Source:              req.Dir,
		Pattern:             req.Pattern,
		FitnessEpsilon:      cfg.FitnessEpsilon,
		Quantiles:           report.Quantiles,
		DissimilarityFields: fields,
		Granularity:         granularity,
		PlayerPrefix:        cfg.PlayerPrefix,
		Workers:             cfg.Workers,
	}
}
