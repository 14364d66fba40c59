package summary

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"

	"tgmdiversity/internal/dissimilarity"
	"tgmdiversity/internal/genes"
	"tgmdiversity/internal/levelid"
	"tgmdiversity/internal/logging"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
)

// Granularity selects which population a dissimilarity scalar is computed
// over.
type Granularity string

const (
	// GranularityRun scores every run separately and reports the
	// distribution of the per-run scalars.
	GranularityRun Granularity = "run"
	// GranularityCohort pools all individuals of a cohort. Quadratic in the
	// cohort size.
	GranularityCohort Granularity = "cohort"
)

// Config parameterizes an analysis pass. The zero value is usable.
type Config struct {
	FitnessEpsilon      float64
	Quantiles           []float64
	DissimilarityFields []string
	Granularity         Granularity
	PlayerPrefix        string
	// LevelOrder lists level ids to present first, in that order. Other
	// levels follow in first-seen order.
	LevelOrder []string
	// Workers bounds the number of cohorts summarized concurrently. Zero
	// means runtime.GOMAXPROCS(0); one is sequential.
	Workers int
	Logger  *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Quantiles:           append([]float64(nil), stats.DefaultQuantiles...),
		DissimilarityFields: append([]string(nil), dissimilarity.DefaultFields...),
		Granularity:         GranularityRun,
		PlayerPrefix:        genes.DefaultPlayerPrefix,
	}
}

type resolvedConfig struct {
	normalizer  genes.Normalizer
	quantiles   []float64
	fields      []dissimilarity.Field
	fieldNames  []string
	granularity Granularity
	levelOrder  []string
	workers     int
	logger      *slog.Logger
}

// Validate reports configuration errors without running an analysis.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

func (c Config) resolve() (resolvedConfig, error) {
	if math.IsNaN(c.FitnessEpsilon) || math.IsInf(c.FitnessEpsilon, 0) || c.FitnessEpsilon < 0 {
		return resolvedConfig{}, fmt.Errorf("%w: fitness epsilon %g must be finite and >= 0", model.ErrInvalidConfig, c.FitnessEpsilon)
	}
	quantiles, err := stats.NormalizeQuantiles(c.Quantiles)
	if err != nil {
		return resolvedConfig{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	fields, err := dissimilarity.ResolveFields(c.DissimilarityFields)
	if err != nil {
		return resolvedConfig{}, err
	}
	granularity := Granularity(strings.ToLower(strings.TrimSpace(string(c.Granularity))))
	switch granularity {
	case "":
		granularity = GranularityRun
	case GranularityRun, GranularityCohort:
	default:
		return resolvedConfig{}, fmt.Errorf("%w: unknown granularity %q", model.ErrInvalidConfig, c.Granularity)
	}
	if c.Workers < 0 {
		return resolvedConfig{}, fmt.Errorf("%w: workers must be >= 0", model.ErrInvalidConfig)
	}
	workers := c.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	prefix := strings.TrimSpace(c.PlayerPrefix)
	if prefix == "" {
		prefix = genes.DefaultPlayerPrefix
	}
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var order []string
	for _, level := range c.LevelOrder {
		if level = levelid.Key(level); level != "" {
			order = append(order, level)
		}
	}

	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}
	return resolvedConfig{
		normalizer:  genes.Normalizer{Epsilon: c.FitnessEpsilon, PlayerPrefix: prefix},
		quantiles:   quantiles,
		fields:      fields,
		fieldNames:  names,
		granularity: granularity,
		levelOrder:  order,
		workers:     workers,
		logger:      logger,
	}, nil
}
