//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"tgmdiversity/internal/stats"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the full report as a versioned JSON payload and the
// diversity table as queryable rows. No-data statistics are stored as NULL.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, record ReportRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return ErrMissingID
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if record.SchemaVersion == 0 {
		record = Versioned(record)
	}

	payload, err := EncodeReport(record)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, schema_version, codec_version, label, source, created_at_utc, cohorts, records, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			label = excluded.label,
			source = excluded.source,
			created_at_utc = excluded.created_at_utc,
			cohorts = excluded.cohorts,
			records = excluded.records,
			payload = excluded.payload
	`, record.ID, record.SchemaVersion, record.CodecVersion, record.Label, record.Source, record.CreatedAtUTC,
		len(record.Report.Cohorts), record.Report.Diagnostics.TotalRecords, payload)
	if err != nil {
		return fmt.Errorf("save report %s: %w", record.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM diversity_rows WHERE report_id = ?`, record.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diversity_rows (
			report_id, level, generation, runs, records, valid_records,
			fitness_mean, fitness_median, fitness_stddev,
			population_median, unique_genes_median, total_unique_genes, dissimilarity_median
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	dissimilarity := make(map[string]stats.Distribution, len(record.Report.Dissimilarity))
	for _, row := range record.Report.Dissimilarity {
		dissimilarity[row.Cohort.String()] = row.Distribution
	}
	for _, row := range record.Report.Diversity {
		_, err := stmt.ExecContext(ctx,
			record.ID, row.Cohort.Level, row.Cohort.Generation, row.Runs, row.Records, row.ValidRecords,
			nullFloat(row.Fitness.Mean), nullFloat(row.Fitness.Median), nullFloat(row.Fitness.StdDev),
			nullFloat(row.PopulationSize.Median), nullFloat(row.UniqueGenes.Median), row.TotalUniqueGenes,
			nullFloat(medianOf(dissimilarity, row.Cohort.String())),
		)
		if err != nil {
			return fmt.Errorf("save diversity row %s: %w", row.Cohort, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (ReportRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return ReportRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM reports WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReportRecord{}, false, nil
		}
		return ReportRecord{}, false, err
	}

	record, err := DecodeReport(payload)
	if err != nil {
		return ReportRecord{}, false, fmt.Errorf("decode report %s: %w", id, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context) ([]ReportInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, label, source, created_at_utc, cohorts, records FROM reports ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []ReportInfo
	for rows.Next() {
		var info ReportInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.Source, &info.CreatedAtUTC, &info.Cohorts, &info.Records); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortInfos(infos)
	return infos, nil
}

// DiversityMedians returns the stored median fitness per cohort of a
// report; cohorts without valid fitness map to NaN.
func (s *SQLiteStore) DiversityMedians(ctx context.Context, id string) (map[string]float64, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT level, generation, fitness_median FROM diversity_rows WHERE report_id = ? ORDER BY level, generation`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var level string
		var generation int
		var median sql.NullFloat64
		if err := rows.Scan(&level, &generation, &median); err != nil {
			return nil, err
		}
		value := math.NaN()
		if median.Valid {
			value = median.Float64
		}
		out[fmt.Sprintf("level=%s generation=%d", level, generation)] = value
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func medianOf(byCohort map[string]stats.Distribution, key string) float64 {
	d, ok := byCohort[key]
	if !ok {
		return math.NaN()
	}
	return d.Median
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			label TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at_utc TEXT NOT NULL,
			cohorts INTEGER NOT NULL,
			records INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS diversity_rows (
			report_id TEXT NOT NULL,
			level TEXT NOT NULL,
			generation INTEGER NOT NULL,
			runs INTEGER NOT NULL,
			records INTEGER NOT NULL,
			valid_records INTEGER NOT NULL,
			fitness_mean REAL,
			fitness_median REAL,
			fitness_stddev REAL,
			population_median REAL,
			unique_genes_median REAL,
			total_unique_genes INTEGER NOT NULL,
			dissimilarity_median REAL,
			PRIMARY KEY (report_id, level, generation)
		);
	`)
	return err
}
