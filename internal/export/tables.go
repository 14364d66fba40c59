// Package export renders analysis results as CSV tables and JSON
// artifacts. No-data statistics are written as empty cells.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tgmdiversity/internal/frequency"
	"tgmdiversity/internal/levelid"
	"tgmdiversity/internal/stats"
	"tgmdiversity/internal/summary"
)

// File names written by WriteAll.
const (
	DiversityFile     = "diversity.csv"
	GeneKeysFile      = "gene_keys.csv"
	GeneGroupsFile    = "gene_groups.csv"
	DissimilarityFile = "dissimilarity.csv"
	ComponentsFile    = "components.csv"
	ExperimentsFile   = "experiments.csv"
	ConsistencyFile   = "consistency.csv"
)

// TableOptions controls column layout shared by every table.
type TableOptions struct {
	Quantiles []float64
	// Names adds a level_name column when set.
	Names levelid.Names
}

func (o TableOptions) quantiles() []float64 {
	if len(o.Quantiles) == 0 {
		return stats.DefaultQuantiles
	}
	return o.Quantiles
}

func (o TableOptions) levelColumns() []string {
	if o.Names == nil {
		return []string{"level"}
	}
	return []string{"level", "level_name"}
}

func (o TableOptions) levelCells(level string) []string {
	if o.Names == nil {
		return []string{level}
	}
	return []string{level, o.Names.Display(level)}
}

// distributionColumns lists the columns of a distribution named prefix.
func distributionColumns(prefix string, quantiles []float64) []string {
	columns := []string{prefix + "_count", prefix + "_min", prefix + "_mean", prefix + "_stddev", prefix + "_median"}
	for _, p := range quantiles {
		columns = append(columns, prefix+"_"+stats.QuantileLabel(p))
	}
	return append(columns, prefix+"_max")
}

func distributionCells(d stats.Distribution, quantiles []float64) []string {
	cells := []string{
		strconv.Itoa(d.Count),
		formatFloat(d.Min),
		formatFloat(d.Mean),
		formatFloat(d.StdDev),
		formatFloat(d.Median),
	}
	for _, p := range quantiles {
		v, _ := d.Quantile(p)
		cells = append(cells, formatFloat(v))
	}
	return append(cells, formatFloat(d.Max))
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeRows(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteDiversityCSV(w io.Writer, rows []summary.DiversityRow, opts TableOptions) error {
	q := opts.quantiles()
	header := append(opts.levelColumns(), "generation", "runs", "records", "valid_records", "total_unique_genes", "empty", "population_by_run")
	for _, prefix := range []string{"fitness", "run_median_fitness", "unique_genes", "population"} {
		header = append(header, distributionColumns(prefix, q)...)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		byRun := make([]string, 0, len(row.PopulationByRun))
		for _, rc := range row.PopulationByRun {
			byRun = append(byRun, fmt.Sprintf("%s=%d", rc.Run, rc.Count))
		}
		cells := append(opts.levelCells(row.Cohort.Level),
			strconv.Itoa(row.Cohort.Generation),
			strconv.Itoa(row.Runs),
			strconv.Itoa(row.Records),
			strconv.Itoa(row.ValidRecords),
			strconv.Itoa(row.TotalUniqueGenes),
			strconv.FormatBool(row.Empty),
			strings.Join(byRun, ";"),
		)
		cells = append(cells, distributionCells(row.Fitness, q)...)
		cells = append(cells, distributionCells(row.RunMedianFitness, q)...)
		cells = append(cells, distributionCells(row.UniqueGenes, q)...)
		cells = append(cells, distributionCells(row.PopulationSize, q)...)
		out = append(out, cells)
	}
	return writeRows(w, header, out)
}

// WriteFrequencyCSV writes one row per (cohort, key). Per-run counts are
// joined with ";" in the order of the cohort's runs.
func WriteFrequencyCSV(w io.Writer, tables []frequency.Table, opts TableOptions) error {
	q := opts.quantiles()
	header := append(opts.levelColumns(), "generation", "key", "total", "share", "per_run")
	header = append(header, distributionColumns("count", q)...)

	var out [][]string
	for _, table := range tables {
		for _, entry := range table.Entries {
			perRun := make([]string, 0, len(entry.PerRun))
			for _, count := range entry.PerRun {
				perRun = append(perRun, strconv.Itoa(count))
			}
			cells := append(opts.levelCells(table.Cohort.Level),
				strconv.Itoa(table.Cohort.Generation),
				entry.Key,
				strconv.Itoa(entry.Total),
				formatFloat(entry.Share),
				strings.Join(perRun, ";"),
			)
			out = append(out, append(cells, distributionCells(entry.Counts, q)...))
		}
	}
	return writeRows(w, header, out)
}

func WriteDissimilarityCSV(w io.Writer, rows []summary.DissimilarityRow, opts TableOptions) error {
	q := opts.quantiles()
	header := append(opts.levelColumns(), "generation", "granularity", "fields", "scores", "inconsistent_field_pairs", "undefined_pairs")
	header = append(header, distributionColumns("dissimilarity", q)...)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		scores := make([]string, 0, len(row.Scores))
		for _, s := range row.Scores {
			scores = append(scores, fmt.Sprintf("%s=%s", s.Run, formatFloat(s.Score)))
		}
		cells := append(opts.levelCells(row.Cohort.Level),
			strconv.Itoa(row.Cohort.Generation),
			string(row.Granularity),
			strings.Join(row.Fields, "|"),
			strings.Join(scores, ";"),
			strconv.Itoa(row.InconsistentFieldPairs),
			strconv.Itoa(row.UndefinedPairs),
		)
		out = append(out, append(cells, distributionCells(row.Distribution, q)...))
	}
	return writeRows(w, header, out)
}

func WriteComponentCSV(w io.Writer, rows []summary.ComponentRow, opts TableOptions) error {
	header := append(opts.levelColumns(), "generation", "component", "component_category", "unique_genes", "records")
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, append(opts.levelCells(row.Cohort.Level),
			strconv.Itoa(row.Cohort.Generation),
			row.Component,
			string(row.ComponentCategory),
			strconv.Itoa(row.UniqueGenes),
			strconv.Itoa(row.Records),
		))
	}
	return writeRows(w, header, out)
}

func WriteExperimentCSV(w io.Writer, rows []summary.ExperimentRow, opts TableOptions) error {
	q := opts.quantiles()
	header := append([]string{"experiment"}, opts.levelColumns()...)
	header = append(header, "generation", "runs", "valid_records")
	header = append(header, distributionColumns("fitness", q)...)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := append([]string{row.Experiment}, opts.levelCells(row.Cohort.Level)...)
		cells = append(cells,
			strconv.Itoa(row.Cohort.Generation),
			strconv.Itoa(row.Runs),
			strconv.Itoa(row.ValidRecords),
		)
		out = append(out, append(cells, distributionCells(row.Fitness, q)...))
	}
	return writeRows(w, header, out)
}

func WriteConsistencyCSV(w io.Writer, rows []summary.ConsistencyRow, opts TableOptions) error {
	q := opts.quantiles()
	header := append(opts.levelColumns(), "game_object", "component", "component_field", "modifier")
	header = append(header, distributionColumns("fitness", q)...)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := append(opts.levelCells(row.Level),
			row.Key.GameObject,
			row.Key.Component,
			row.Key.ComponentField,
			row.Key.Modifier,
		)
		out = append(out, append(cells, distributionCells(row.Fitness, q)...))
	}
	return writeRows(w, header, out)
}

// WriteAll writes the five cohort tables of report into dir and returns
// the written paths.
func WriteAll(dir string, report summary.Report, opts TableOptions) ([]string, error) {
	if len(opts.Quantiles) == 0 {
		opts.Quantiles = report.Quantiles
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{DiversityFile, func(w io.Writer) error { return WriteDiversityCSV(w, report.Diversity, opts) }},
		{GeneKeysFile, func(w io.Writer) error { return WriteFrequencyCSV(w, report.GeneKeys, opts) }},
		{GeneGroupsFile, func(w io.Writer) error { return WriteFrequencyCSV(w, report.GeneGroups, opts) }},
		{DissimilarityFile, func(w io.Writer) error { return WriteDissimilarityCSV(w, report.Dissimilarity, opts) }},
		{ComponentsFile, func(w io.Writer) error { return WriteComponentCSV(w, report.Components, opts) }},
	}

	paths := make([]string, 0, len(writers))
	for _, spec := range writers {
		path := filepath.Join(dir, spec.name)
		if err := writeFile(path, spec.write); err != nil {
			return nil, fmt.Errorf("write %s: %w", spec.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeFile(path, write)
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
