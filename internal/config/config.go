package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data        DataConfig        `yaml:"data" mapstructure:"data"`
	Boundary    BoundaryConfig    `yaml:"boundary" mapstructure:"boundary"`
	Crime       CrimeConfig       `yaml:"crime" mapstructure:"crime"`
	Requests    RequestsConfig    `yaml:"requests" mapstructure:"requests"`
	Development DevelopmentConfig `yaml:"development" mapstructure:"development"`
	Food        FoodConfig        `yaml:"food" mapstructure:"food"`
	Categorize  CategorizeConfig  `yaml:"categorize" mapstructure:"categorize"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// InputPath resolves a configured input file name against the input dir.
// Absolute names pass through untouched.
func (c *Config) InputPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.InputDir, name)
}

// DataConfig locates the flat-file inputs and the emitted JSON artifacts.
type DataConfig struct {
	InputDir  string `yaml:"input_dir" mapstructure:"input_dir"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// BoundaryConfig names the reference inputs for the boundary store.
// AreasFile and WardsFile are required; CensusFile is optional.
type BoundaryConfig struct {
	AreasFile  string `yaml:"areas_file" mapstructure:"areas_file"`
	WardsFile  string `yaml:"wards_file" mapstructure:"wards_file"`
	CensusFile string `yaml:"census_file" mapstructure:"census_file"`
}

// CrimeConfig configures the crime extract processor.
type CrimeConfig struct {
	File        string `yaml:"file" mapstructure:"file"`
	RecentYears int    `yaml:"recent_years" mapstructure:"recent_years"`
	TopTypes    int    `yaml:"top_types" mapstructure:"top_types"`
}

// RequestsConfig configures the 311 service-request processor.
// RoadTypes lists request-type keywords counted toward road-complaint density.
type RequestsConfig struct {
	File        string   `yaml:"file" mapstructure:"file"`
	RecentYears int      `yaml:"recent_years" mapstructure:"recent_years"`
	TopTypes    int      `yaml:"top_types" mapstructure:"top_types"`
	RoadTypes   []string `yaml:"road_types" mapstructure:"road_types"`
}

// DevelopmentConfig configures the development-application processor.
type DevelopmentConfig struct {
	File        string `yaml:"file" mapstructure:"file"`
	RecentYears int    `yaml:"recent_years" mapstructure:"recent_years"`
	TopTypes    int    `yaml:"top_types" mapstructure:"top_types"`
}

// FoodConfig names the three linked food-inspection extracts.
type FoodConfig struct {
	BusinessesFile  string `yaml:"businesses_file" mapstructure:"businesses_file"`
	InspectionsFile string `yaml:"inspections_file" mapstructure:"inspections_file"`
	ViolationsFile  string `yaml:"violations_file" mapstructure:"violations_file"`
}

// CategorizeConfig configures the establishment categorization cascade.
// OverridesFile and RulesFile are versioned YAML tables; when absent the
// built-in defaults apply. OSMFile and GroceryFile are the cross-dataset
// reference extracts for the coordinate-gated fuzzy match.
type CategorizeConfig struct {
	OverridesFile       string  `yaml:"overrides_file" mapstructure:"overrides_file"`
	RulesFile           string  `yaml:"rules_file" mapstructure:"rules_file"`
	OSMFile             string  `yaml:"osm_file" mapstructure:"osm_file"`
	GroceryFile         string  `yaml:"grocery_file" mapstructure:"grocery_file"`
	CoordTolerance      float64 `yaml:"coord_tolerance" mapstructure:"coord_tolerance"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ScoringConfig holds the composite-score weighting tables.
// CategoryWeights should sum to 100; MetricWeights are relative within
// each category and are renormalized over the metrics that have data.
type ScoringConfig struct {
	OutputFile      string             `yaml:"output_file" mapstructure:"output_file"`
	CategoryWeights map[string]float64 `yaml:"category_weights" mapstructure:"category_weights"`
	MetricWeights   map[string]float64 `yaml:"metric_weights" mapstructure:"metric_weights"`
	SummaryCount    int                `yaml:"summary_count" mapstructure:"summary_count"`
}

// StoreConfig configures the run-log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the artifact preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CIVIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.input_dir", "data")
	v.SetDefault("data.output_dir", "out")
	v.SetDefault("boundary.areas_file", "ons_boundaries.geojson")
	v.SetDefault("boundary.wards_file", "ward_to_area.csv")
	v.SetDefault("boundary.census_file", "ons_census_profile.csv")
	v.SetDefault("crime.file", "crime_extract.csv")
	v.SetDefault("crime.recent_years", 2)
	v.SetDefault("crime.top_types", 10)
	v.SetDefault("requests.file", "service_requests.csv")
	v.SetDefault("requests.recent_years", 2)
	v.SetDefault("requests.top_types", 10)
	v.SetDefault("requests.road_types", []string{"road", "pothole", "sidewalk", "traffic", "snow"})
	v.SetDefault("development.file", "dev_apps.csv")
	v.SetDefault("development.recent_years", 2)
	v.SetDefault("development.top_types", 10)
	v.SetDefault("food.businesses_file", "food_businesses.csv")
	v.SetDefault("food.inspections_file", "food_inspections.csv")
	v.SetDefault("food.violations_file", "food_violations.csv")
	v.SetDefault("categorize.overrides_file", "category_overrides.yaml")
	v.SetDefault("categorize.rules_file", "category_rules.yaml")
	v.SetDefault("categorize.osm_file", "osm_food.csv")
	v.SetDefault("categorize.grocery_file", "grocery_stores.csv")
	v.SetDefault("categorize.coord_tolerance", 0.0005)
	v.SetDefault("categorize.similarity_threshold", 0.6)
	v.SetDefault("scoring.output_file", "scores.json")
	v.SetDefault("scoring.summary_count", 5)
	v.SetDefault("scoring.category_weights", map[string]float64{
		"safety": 30,
		"upkeep": 25,
		"growth": 20,
		"food":   25,
	})
	v.SetDefault("scoring.metric_weights", map[string]float64{
		"crime_rate":                 100,
		"requests_rate":              60,
		"road_complaint_density":     40,
		"development_recent":         60,
		"development_approval_share": 40,
		"food_violation_avg":         60,
		"establishments_per_1000":    40,
	})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "civic.db")
	v.SetDefault("server.port", 8090)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required by the named section is
// present. Sections correspond to command groups: "boundary" covers the
// reference inputs every processor needs, the dataset sections add their
// own file names, "store" and "server" cover the run log and preview server.
func (c *Config) Validate(section string) error {
	var errs []string

	requireBoundary := func() {
		if c.Data.InputDir == "" {
			errs = append(errs, "data.input_dir is required")
		}
		if c.Boundary.AreasFile == "" {
			errs = append(errs, "boundary.areas_file is required")
		}
		if c.Boundary.WardsFile == "" {
			errs = append(errs, "boundary.wards_file is required")
		}
	}

	switch section {
	case "boundary":
		requireBoundary()
	case "crime":
		requireBoundary()
		if c.Crime.File == "" {
			errs = append(errs, "crime.file is required")
		}
	case "requests":
		requireBoundary()
		if c.Requests.File == "" {
			errs = append(errs, "requests.file is required")
		}
	case "development":
		requireBoundary()
		if c.Development.File == "" {
			errs = append(errs, "development.file is required")
		}
	case "food":
		requireBoundary()
		if c.Food.BusinessesFile == "" {
			errs = append(errs, "food.businesses_file is required")
		}
		if c.Food.InspectionsFile == "" {
			errs = append(errs, "food.inspections_file is required")
		}
		if c.Food.ViolationsFile == "" {
			errs = append(errs, "food.violations_file is required")
		}
	case "scoring":
		if c.Data.OutputDir == "" {
			errs = append(errs, "data.output_dir is required")
		}
		if c.Scoring.OutputFile == "" {
			errs = append(errs, "scoring.output_file is required")
		}
	case "store":
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				errs = append(errs, "store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver))
		}
	case "server":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Data.OutputDir == "" {
			errs = append(errs, "data.output_dir is required")
		}
	default:
		return eris.Errorf("config: unknown section %q", section)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s validation failed: %s", section, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
