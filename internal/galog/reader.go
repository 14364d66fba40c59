// Package galog discovers and reads the per-run "GA log *.csv" files written
// by the TGM genetic algorithm.
package galog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"tgmdiversity/internal/model"
)

// DefaultPattern matches the GA log files of one experiment directory.
const DefaultPattern = "GA log *.csv"

// Column names, matched case-insensitively against the header.
const (
	ColumnLevel          = "level"
	ColumnGeneration     = "generation"
	ColumnID             = "id"
	ColumnFitness        = "fitness"
	ColumnGameObject     = "gameobject"
	ColumnComponent      = "component"
	ColumnComponentField = "componentfield"
	ColumnModifier       = "modifier"
)

// KnownColumns lists every column the reader understands.
var KnownColumns = []string{
	ColumnLevel, ColumnGeneration, ColumnID, ColumnFitness,
	ColumnGameObject, ColumnComponent, ColumnComponentField, ColumnModifier,
}

type LoadOptions struct {
	// Pattern is the glob used by LoadDir; DefaultPattern when empty.
	Pattern string
	// DefaultLevel is used for files without a level column.
	DefaultLevel string
	Experiment   string
}

// Discover lists the files in dir matching pattern, sorted by name.
func Discover(dir, pattern string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("log directory is required")
	}
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadCSV parses one GA log. Columns are located by header name. Missing
// optional columns read as empty, an unparseable generation as 0 and an
// unparseable fitness as NaN; the normalizer decides what to drop.
func ReadCSV(in io.Reader, run string) ([]model.RawRecord, error) {
	return readCSV(in, run, LoadOptions{})
}

func readCSV(in io.Reader, run string, opts LoadOptions) ([]model.RawRecord, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ga log header: %w", err)
	}
	columns := indexColumns(header)

	records := make([]model.RawRecord, 0, 1024)
	rowIndex := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ga log row %d: %w", rowIndex, err)
		}
		rowIndex++
		if blankRecord(row) {
			continue
		}

		level := columns.get(row, ColumnLevel)
		if _, ok := columns[ColumnLevel]; !ok {
			level = opts.DefaultLevel
		}
		records = append(records, model.RawRecord{
			Level:          level,
			Generation:     parseGeneration(columns.get(row, ColumnGeneration)),
			Run:            run,
			Individual:     columns.get(row, ColumnID),
			Experiment:     opts.Experiment,
			GameObject:     columns.get(row, ColumnGameObject),
			Component:      columns.get(row, ColumnComponent),
			ComponentField: columns.get(row, ColumnComponentField),
			Modifier:       columns.get(row, ColumnModifier),
			Fitness:        parseFitness(columns.get(row, ColumnFitness)),
		})
	}
	return records, nil
}

// ReadFile reads one GA log; the run is named after the file.
func ReadFile(path string, opts LoadOptions) ([]model.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := readCSV(file, filepath.Base(path), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// LoadDir reads every GA log in dir in name order.
func LoadDir(dir string, opts LoadOptions) ([]model.RawRecord, error) {
	paths, err := Discover(dir, opts.Pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLogs, filepath.Join(dir, patternOrDefault(opts.Pattern)))
	}
	var records []model.RawRecord
	for _, path := range paths {
		fileRecords, err := ReadFile(path, opts)
		if err != nil {
			return nil, err
		}
		records = append(records, fileRecords...)
	}
	return records, nil
}

var ErrNoLogs = errors.New("no ga logs found")

type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	columns := make(columnIndex, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[key]; !dup && key != "" {
			columns[key] = i
		}
	}
	return columns
}

func (c columnIndex) get(row []string, column string) string {
	i, ok := c[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columnIndex) missing() []string {
	var out []string
	for _, column := range KnownColumns {
		if _, ok := c[column]; !ok {
			out = append(out, column)
		}
	}
	return out
}

func parseGeneration(value string) int {
	if value == "" {
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
		return 0
	}
	return int(f)
}

func parseFitness(value string) float64 {
	if value == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func blankRecord(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func patternOrDefault(pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		return DefaultPattern
	}
	return pattern
}
