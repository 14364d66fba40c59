package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"tgmdiversity/internal/galog"
	"tgmdiversity/internal/levelid"
	"tgmdiversity/internal/summary"
)

type experimentConfig struct {
	Label string `yaml:"label"`
	Dir   string `yaml:"dir"`
}

// fileConfig is the YAML configuration file. Flags override its values.
type fileConfig struct {
	LogDir              string             `yaml:"log_dir"`
	Pattern             string             `yaml:"pattern"`
	DefaultLevel        string             `yaml:"default_level"`
	FitnessEpsilon      float64            `yaml:"fitness_epsilon"`
	Quantiles           []float64          `yaml:"quantiles"`
	DissimilarityFields []string           `yaml:"dissimilarity_fields"`
	Granularity         string             `yaml:"granularity"`
	PlayerPrefix        string             `yaml:"player_prefix"`
	Workers             int                `yaml:"workers"`
	Levels              map[string]string  `yaml:"levels"`
	LevelOrder          []string           `yaml:"level_order"`
	Experiments         []experimentConfig `yaml:"experiments"`
	OutputDir           string             `yaml:"output_dir"`
	Store               string             `yaml:"store"`
	DBPath              string             `yaml:"db_path"`
	Plots               bool               `yaml:"plots"`
	MetricsTextfile     string             `yaml:"metrics_textfile"`
	LogLevel            string             `yaml:"log_level"`
	LogFormat           string             `yaml:"log_format"`
}

func defaultFileConfig() fileConfig {
	cfg := summary.DefaultConfig()
	return fileConfig{
		Pattern:             galog.DefaultPattern,
		Quantiles:           cfg.Quantiles,
		DissimilarityFields: cfg.DissimilarityFields,
		Granularity:         string(cfg.Granularity),
		PlayerPrefix:        cfg.PlayerPrefix,
		LevelOrder:          []string{"3", "4", "5", "6"},
		OutputDir:           "analyses",
		DBPath:              "tgmdiversity.db",
		LogLevel:            "info",
		LogFormat:           "auto",
	}
}

// loadFileConfig reads path over the defaults. Keys absent from the file
// keep their default value.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c fileConfig) summaryConfig() summary.Config {
	return summary.Config{
		FitnessEpsilon:      c.FitnessEpsilon,
		Quantiles:           c.Quantiles,
		DissimilarityFields: c.DissimilarityFields,
		Granularity:         summary.Granularity(c.Granularity),
		PlayerPrefix:        c.PlayerPrefix,
		LevelOrder:          c.LevelOrder,
		Workers:             c.Workers,
	}
}

func (c fileConfig) names() levelid.Names {
	return levelid.DefaultNames().With(c.Levels)
}

// overlayFlags copies every flag the user set onto c.
func (c *fileConfig) overlayFlags(flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		value := f.Value.String()
		switch f.Name {
		case "pattern":
			c.Pattern = value
		case "default-level":
			c.DefaultLevel = value
		case "epsilon":
			c.FitnessEpsilon, err = flags.GetFloat64(f.Name)
		case "quantiles":
			c.Quantiles, err = flags.GetFloat64Slice(f.Name)
		case "fields":
			c.DissimilarityFields, err = flags.GetStringSlice(f.Name)
		case "granularity":
			c.Granularity = value
		case "player-prefix":
			c.PlayerPrefix = value
		case "workers":
			c.Workers, err = flags.GetInt(f.Name)
		case "level-order":
			c.LevelOrder, err = flags.GetStringSlice(f.Name)
		case "output-dir":
			c.OutputDir = value
		case "store":
			c.Store = value
		case "db-path":
			c.DBPath = value
		case "plots":
			c.Plots, err = flags.GetBool(f.Name)
		case "metrics-textfile":
			c.MetricsTextfile = value
		case "log-level":
			c.LogLevel = value
		case "log-format":
			c.LogFormat = value
		}
		if err != nil {
			err = fmt.Errorf("--%s: %w", f.Name, err)
		}
	})
	return err
}

// parseExperiments parses repeated "label=dir" values; a bare dir is
// labelled by its base name later on.
func parseExperiments(values []string) []experimentConfig {
	out := make([]experimentConfig, 0, len(values))
	for _, value := range values {
		label, dir, ok := strings.Cut(value, "=")
		if !ok {
			dir, label = value, ""
		}
		out = append(out, experimentConfig{Label: strings.TrimSpace(label), Dir: strings.TrimSpace(dir)})
	}
	return out
}
