package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tgmdiversity/internal/storage"
	"tgmdiversity/pkg/tgmdiversity"
)

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		label     string
		tablesDir string
		save      bool
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [LOG_DIR]",
		Short: "Summarize one directory of GA logs per level and generation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings(cmd)
			if err != nil {
				return err
			}
			dir := cfg.LogDir
			if len(args) == 1 {
				dir = args[0]
			}
			if strings.TrimSpace(dir) == "" {
				return errors.New("analyze requires a log directory (argument or log_dir)")
			}

			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			out, err := client.Analyze(cmd.Context(), tgmdiversity.AnalyzeRequest{
				Source:    tgmdiversity.Source{Dir: dir, Pattern: cfg.Pattern, DefaultLevel: cfg.DefaultLevel},
				Label:     label,
				Config:    cfg.summaryConfig(),
				TablesDir: tablesDir,
				Plots:     cfg.Plots,
				Names:     cfg.names(),
				Store:     save,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return c.printJSON(out.Report)
			}

			diag := out.Report.Diagnostics
			fmt.Fprintf(c.stdout, "analysis_id=%s dir=%s\n", out.AnalysisID, out.ArtifactsDir)
			fmt.Fprintf(c.stdout, "records=%s dropped=%s cohorts=%s empty_cohorts=%s zero_share_tables=%s elapsed=%s\n",
				humanize.Comma(int64(diag.TotalRecords)),
				humanize.Comma(int64(diag.DroppedRecords)),
				humanize.Comma(int64(diag.Cohorts)),
				humanize.Comma(int64(len(diag.EmptyCohorts))),
				humanize.Comma(int64(len(diag.ZeroShareTotals))),
				out.Elapsed.Round(time.Millisecond),
			)
			for _, field := range diag.DroppedFields() {
				fmt.Fprintf(c.stdout, "dropped_missing_%s=%s\n", field, humanize.Comma(int64(diag.DroppedByField[field])))
			}
			for _, path := range append(out.Tables, out.Plots...) {
				fmt.Fprintln(c.stdout, path)
			}
			return nil
		},
	}
	addAnalysisFlags(cmd)
	cmd.Flags().StringVar(&label, "label", "", "label stored with the analysis")
	cmd.Flags().StringVar(&tablesDir, "tables-dir", "", "CSV output directory (default <output-dir>/<id>/tables)")
	cmd.Flags().BoolVar(&save, "save", false, "also save the report in the configured store")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	return cmd
}

func newCompareCmd(c *cli) *cobra.Command {
	var (
		experiments []string
		outDir      string
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:     "compare",
		Short:   "Compare fitness across labelled experiment directories",
		Example: `  tgmdiversityctl compare --experiment "0% elite=logs/elite0" --experiment "25% elite=logs/elite25"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.settings(cmd)
			if err != nil {
				return err
			}
			if len(experiments) > 0 {
				cfg.Experiments = parseExperiments(experiments)
			}
			if len(cfg.Experiments) == 0 {
				return errors.New("compare requires --experiment or experiments in the config file")
			}

			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			req := tgmdiversity.CompareRequest{
				Config: cfg.summaryConfig(),
				OutDir: outDir,
				Plots:  cfg.Plots,
				Names:  cfg.names(),
			}
			for _, e := range cfg.Experiments {
				req.Experiments = append(req.Experiments, tgmdiversity.Experiment{
					Label:  e.Label,
					Source: tgmdiversity.Source{Dir: e.Dir, Pattern: cfg.Pattern, DefaultLevel: cfg.DefaultLevel},
				})
			}
			out, err := client.Compare(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return c.printJSON(out.Rows)
			}
			names := cfg.names()
			for _, row := range out.Rows {
				fmt.Fprintf(c.stdout, "experiment=%q level=%s generation=%d valid=%s mean=%.6f median=%.6f stddev=%.6f\n",
					row.Experiment,
					names.Display(row.Cohort.Level),
					row.Cohort.Generation,
					humanize.Comma(int64(row.ValidRecords)),
					row.Fitness.Mean,
					row.Fitness.Median,
					row.Fitness.StdDev,
				)
			}
			if out.Table != "" {
				fmt.Fprintln(c.stdout, out.Table)
			}
			for _, path := range out.Plots {
				fmt.Fprintln(c.stdout, path)
			}
			return nil
		},
	}
	addAnalysisFlags(cmd)
	cmd.Flags().StringArrayVar(&experiments, "experiment", nil, "experiment as label=dir (repeatable)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for experiments.csv and plots")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print rows as JSON")
	return cmd
}

func newConsistencyCmd(c *cli) *cobra.Command {
	var (
		outDir  string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "consistency [LOG_DIR]",
		Short: "Summarize fitness per gene key and level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings(cmd)
			if err != nil {
				return err
			}
			dir := cfg.LogDir
			if len(args) == 1 {
				dir = args[0]
			}
			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			out, err := client.Consistency(cmd.Context(), tgmdiversity.ConsistencyRequest{
				Source: tgmdiversity.Source{Dir: dir, Pattern: cfg.Pattern, DefaultLevel: cfg.DefaultLevel},
				Config: cfg.summaryConfig(),
				OutDir: outDir,
				Names:  cfg.names(),
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return c.printJSON(out.Rows)
			}
			names := cfg.names()
			for _, row := range out.Rows {
				fmt.Fprintf(c.stdout, "level=%s key=%s samples=%s median=%.6f stddev=%.6f\n",
					names.Display(row.Level),
					row.Key,
					humanize.Comma(int64(row.Fitness.Count)),
					row.Fitness.Median,
					row.Fitness.StdDev,
				)
			}
			if out.Table != "" {
				fmt.Fprintln(c.stdout, out.Table)
			}
			return nil
		},
	}
	addAnalysisFlags(cmd)
	cmd.Flags().StringVar(&outDir, "out", "", "directory for consistency.csv")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print rows as JSON")
	return cmd
}

func newInspectCmd(c *cli) *cobra.Command {
	var (
		pattern string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect LOG_DIR",
		Short: "List GA logs with their row counts and columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings(cmd)
			if err != nil {
				return err
			}
			if pattern == "" {
				pattern = cfg.Pattern
			}
			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			infos, err := client.Inspect(cmd.Context(), args[0], pattern)
			if err != nil {
				return err
			}
			if jsonOut {
				return c.printJSON(infos)
			}
			var rows int
			for _, info := range infos {
				rows += info.Rows
				fmt.Fprintf(c.stdout, "run=%q rows=%s generations=%d-%d levels=%s unparsed_fitness=%s missing=%s\n",
					info.Run,
					humanize.Comma(int64(info.Rows)),
					info.MinGeneration,
					info.MaxGeneration,
					strings.Join(info.Levels, ","),
					humanize.Comma(int64(info.UnparsedFitness)),
					strings.Join(info.MissingColumns, ","),
				)
			}
			fmt.Fprintf(c.stdout, "files=%s rows=%s\n", humanize.Comma(int64(len(infos))), humanize.Comma(int64(rows)))
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "GA log file glob")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print file infos as JSON")
	return cmd
}

func newReportsCmd(c *cli) *cobra.Command {
	var (
		limit   int
		stored  bool
		show    string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List past analyses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			cfg, err := c.settings(cmd)
			if err != nil {
				return err
			}
			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if show != "" {
				report, err := client.Report(cmd.Context(), show)
				if err != nil {
					return err
				}
				return c.printJSON(report)
			}

			infos, err := client.Reports(cmd.Context(), tgmdiversity.ReportsRequest{Limit: limit, Stored: stored})
			if err != nil {
				return err
			}
			if jsonOut {
				if infos == nil {
					infos = []storage.ReportInfo{}
				}
				return c.printJSON(infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(c.stdout, "no analyses found")
				return nil
			}
			for _, info := range infos {
				created := info.CreatedAtUTC
				if t, err := time.Parse(time.RFC3339Nano, info.CreatedAtUTC); err == nil {
					created = fmt.Sprintf("%s (%s)", info.CreatedAtUTC, humanize.Time(t))
				}
				fmt.Fprintf(c.stdout, "analysis_id=%s label=%q source=%q cohorts=%s records=%s created_at=%s\n",
					info.ID,
					info.Label,
					info.Source,
					humanize.Comma(int64(info.Cohorts)),
					humanize.Comma(int64(info.Records)),
					created,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max analyses to list")
	cmd.Flags().BoolVar(&stored, "stored", false, "list the report store instead of the artifact index")
	cmd.Flags().StringVar(&show, "show", "", "print the report with this id as JSON")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the listing as JSON")
	return cmd
}
