package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"tgmdiversity/internal/model"
	"tgmdiversity/internal/summary"
)

const analysisIndexFile = "analysis_index.json"

// AnalysisConfig records how an analysis was produced.
type AnalysisConfig struct {
	AnalysisID          string    `json:"analysis_id"`
	Label               string    `json:"label,omitempty"`
	Source              string    `json:"source,omitempty"`
	Pattern             string    `json:"pattern,omitempty"`
	FitnessEpsilon      float64   `json:"fitness_epsilon"`
	Quantiles           []float64 `json:"quantiles"`
	DissimilarityFields []string  `json:"dissimilarity_fields"`
	Granularity         string    `json:"granularity"`
	PlayerPrefix        string    `json:"player_prefix"`
	Workers             int       `json:"workers"`
}

type AnalysisArtifacts struct {
	Config      AnalysisConfig           `json:"config"`
	Report      summary.Report           `json:"report"`
	Experiments []summary.ExperimentRow  `json:"experiments,omitempty"`
	Consistency []summary.ConsistencyRow `json:"consistency,omitempty"`
}

type AnalysisIndexEntry struct {
	AnalysisID     string `json:"analysis_id"`
	Label          string `json:"label,omitempty"`
	Source         string `json:"source,omitempty"`
	Cohorts        int    `json:"cohorts"`
	Records        int    `json:"records"`
	DroppedRecords int    `json:"dropped_records"`
	EmptyCohorts   int    `json:"empty_cohorts"`
	CreatedAtUTC   string `json:"created_at_utc"`
}

// NewAnalysisID returns a fresh random analysis id.
func NewAnalysisID() string {
	return uuid.NewString()
}

// NowUTC formats the current time the way index entries are stamped.
func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// WriteAnalysisArtifacts writes config.json, analysis.json and
// diagnostics.json (plus experiments.json and consistency.json when
// present) below baseDir/<analysis id> and returns that directory.
func WriteAnalysisArtifacts(baseDir string, artifacts AnalysisArtifacts) (string, error) {
	if artifacts.Config.AnalysisID == "" {
		return "", fmt.Errorf("analysis id is required")
	}

	dir := filepath.Join(baseDir, artifacts.Config.AnalysisID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(dir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "analysis.json"), artifacts.Report); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "diagnostics.json"), artifacts.Report.Diagnostics); err != nil {
		return "", err
	}
	if len(artifacts.Experiments) > 0 {
		if err := writeJSON(filepath.Join(dir, "experiments.json"), artifacts.Experiments); err != nil {
			return "", err
		}
	}
	if len(artifacts.Consistency) > 0 {
		if err := writeJSON(filepath.Join(dir, "consistency.json"), artifacts.Consistency); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// IndexEntry derives the index entry of artifacts stamped with createdAtUTC.
func IndexEntry(artifacts AnalysisArtifacts, createdAtUTC string) AnalysisIndexEntry {
	diag := artifacts.Report.Diagnostics
	return AnalysisIndexEntry{
		AnalysisID:     artifacts.Config.AnalysisID,
		Label:          artifacts.Config.Label,
		Source:         artifacts.Config.Source,
		Cohorts:        len(artifacts.Report.Cohorts),
		Records:        diag.TotalRecords,
		DroppedRecords: diag.DroppedRecords,
		EmptyCohorts:   len(diag.EmptyCohorts),
		CreatedAtUTC:   createdAtUTC,
	}
}

// AppendAnalysisIndex adds entry to baseDir's index, replacing an entry
// with the same id.
func AppendAnalysisIndex(baseDir string, entry AnalysisIndexEntry) error {
	if entry.AnalysisID == "" {
		return fmt.Errorf("analysis id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListAnalysisIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].AnalysisID == entry.AnalysisID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, analysisIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, analysisIndexFile), index)
}

// ListAnalysisIndex returns the index newest first.
func ListAnalysisIndex(baseDir string) ([]AnalysisIndexEntry, error) {
	path := filepath.Join(baseDir, analysisIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []AnalysisIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []AnalysisIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry AnalysisIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]AnalysisIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ReadAnalysisReport(baseDir, analysisID string) (summary.Report, bool, error) {
	if strings.TrimSpace(analysisID) == "" {
		return summary.Report{}, false, fmt.Errorf("analysis id is required")
	}
	data, err := os.ReadFile(filepath.Join(baseDir, analysisID, "analysis.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return summary.Report{}, false, nil
		}
		return summary.Report{}, false, err
	}
	var report summary.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return summary.Report{}, false, err
	}
	return report, true, nil
}

func ReadDiagnostics(baseDir, analysisID string) (model.Diagnostics, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, analysisID, "diagnostics.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Diagnostics{}, false, nil
		}
		return model.Diagnostics{}, false, err
	}
	var diag model.Diagnostics
	if err := json.Unmarshal(data, &diag); err != nil {
		return model.Diagnostics{}, false, err
	}
	return diag, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
