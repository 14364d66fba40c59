package galog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"tgmdiversity/internal/levelid"
)

// FileInfo summarizes one GA log without normalizing it.
type FileInfo struct {
	Path           string   `json:"path"`
	Run            string   `json:"run"`
	Rows           int      `json:"rows"`
	Columns        []string `json:"columns"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Levels         []string `json:"levels,omitempty"`
	MinGeneration  int      `json:"min_generation"`
	MaxGeneration  int      `json:"max_generation"`
	// UnparsedFitness counts rows whose fitness is absent or not a number.
	UnparsedFitness int `json:"unparsed_fitness"`
}

// Inspect reads path and reports its shape.
func Inspect(path string) (FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return FileInfo{}, fmt.Errorf("ga log path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	defer file.Close()

	info, err := inspect(file)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	info.Path = path
	info.Run = filepath.Base(path)
	return info, nil
}

func inspect(in io.Reader) (FileInfo, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return FileInfo{MissingColumns: append([]string(nil), KnownColumns...)}, nil
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("read ga log header: %w", err)
	}
	columns := indexColumns(header)
	info := FileInfo{MissingColumns: columns.missing()}
	for _, name := range header {
		info.Columns = append(info.Columns, strings.TrimSpace(name))
	}

	levels := make(map[string]struct{})
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return FileInfo{}, fmt.Errorf("read ga log row %d: %w", info.Rows+1, err)
		}
		if blankRecord(row) {
			continue
		}
		info.Rows++
		if level := levelid.Key(columns.get(row, ColumnLevel)); level != "" {
			levels[level] = struct{}{}
		}
		generation := parseGeneration(columns.get(row, ColumnGeneration))
		if info.Rows == 1 || generation < info.MinGeneration {
			info.MinGeneration = generation
		}
		if generation > info.MaxGeneration {
			info.MaxGeneration = generation
		}
		if fitness := parseFitness(columns.get(row, ColumnFitness)); math.IsNaN(fitness) {
			info.UnparsedFitness++
		}
	}

	for level := range levels {
		info.Levels = append(info.Levels, level)
	}
	info.Levels = levelid.Sorted(info.Levels)
	return info, nil
}

// InspectDir inspects every GA log in dir matching pattern.
func InspectDir(dir, pattern string) ([]FileInfo, error) {
	paths, err := Discover(dir, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(paths))
	for _, path := range paths {
		info, err := Inspect(path)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}
