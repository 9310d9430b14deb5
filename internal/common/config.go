package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces every environment override, e.g. CLAIMS_OCR_DPI -> ocr.dpi.
const EnvPrefix = "CLAIMS_"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	OCR        OCRConfig        `koanf:"ocr"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Search     SearchConfig     `koanf:"search"`
	Batch      BatchConfig      `koanf:"batch"`
	Storage    StorageConfig    `koanf:"storage"`
	Delivery   DeliveryConfig   `koanf:"delivery"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `koanf:"http_addr"`
	GRPCAddr        string        `koanf:"grpc_addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string `koanf:"engine"` // "cli" | "gosseract"
	Pdftotext     string `koanf:"pdftotext"`
	Pdftoppm      string `koanf:"pdftoppm"`
	Tesseract     string `koanf:"tesseract"`
	TesseractLang string `koanf:"tesseract_lang"`
	TessdataDir   string `koanf:"tessdata_dir"`
	DPI           int    `koanf:"dpi"`
	Preprocess    bool   `koanf:"preprocess"`
}

// ExtractionConfig holds the page extraction knobs.
type ExtractionConfig struct {
	MinTextLength int `koanf:"min_text_length"`
	PageWorkers   int `koanf:"page_workers"`
	LiveSlots     int `koanf:"live_slots"`
}

// SearchConfig holds query matching knobs.
type SearchConfig struct {
	FuzzyThreshold float64 `koanf:"fuzzy_threshold"`
}

// BatchConfig holds batch supervisor knobs.
type BatchConfig struct {
	Size         int     `koanf:"size"`
	SuccessRatio float64 `koanf:"success_ratio"`
	ReportPath   string  `koanf:"report_path"`
}

// StorageConfig selects where documents are read from and records are written to.
type StorageConfig struct {
	Backend      string `koanf:"backend"` // "fs" | "gcs" | "sqlite" | "postgres"
	SourceDir    string `koanf:"source_dir"`
	OutputDir    string `koanf:"output_dir"`
	Bucket       string `koanf:"bucket"`
	SourcePrefix string `koanf:"source_prefix"`
	OutputBucket string `koanf:"output_bucket"`
	OutputPrefix string `koanf:"output_prefix"`
	DSN          string `koanf:"dsn"`
}

// DeliveryConfig holds downstream result posting configuration.
type DeliveryConfig struct {
	URL         string        `koanf:"url"`
	MaxAttempts int           `koanf:"max_attempts"`
	Delay       time.Duration `koanf:"delay"`
	Timeout     time.Duration `koanf:"timeout"`
	Workers     int           `koanf:"workers"`
	QueueSize   int           `koanf:"queue_size"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" | "console"
}

// LoadConfig loads configuration from an optional YAML file, then environment variables.
//
// Precedence (highest first): CLAIMS_* environment variables, the YAML file at
// path (skipped when path is empty), built-in defaults.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// CLAIMS_SECTION_FIELD_NAME -> section.field_name
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8000"
	}
	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = ":9090"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.OCR.Engine == "" {
		cfg.OCR.Engine = "cli"
	}
	if cfg.OCR.Pdftotext == "" {
		cfg.OCR.Pdftotext = "pdftotext"
	}
	if cfg.OCR.Pdftoppm == "" {
		cfg.OCR.Pdftoppm = "pdftoppm"
	}
	if cfg.OCR.Tesseract == "" {
		cfg.OCR.Tesseract = "tesseract"
	}
	if cfg.OCR.TesseractLang == "" {
		cfg.OCR.TesseractLang = "eng"
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = 150
	}

	if cfg.Extraction.MinTextLength == 0 {
		cfg.Extraction.MinTextLength = 50
	}
	if cfg.Extraction.PageWorkers == 0 {
		cfg.Extraction.PageWorkers = 16
	}
	if cfg.Extraction.LiveSlots == 0 {
		cfg.Extraction.LiveSlots = 10
	}

	if cfg.Search.FuzzyThreshold == 0 {
		cfg.Search.FuzzyThreshold = 0.6
	}

	if cfg.Batch.Size == 0 {
		cfg.Batch.Size = 5
	}
	if cfg.Batch.SuccessRatio == 0 {
		cfg.Batch.SuccessRatio = 0.9
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "fs"
	}
	if cfg.Storage.SourceDir == "" {
		cfg.Storage.SourceDir = "./documents"
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "./extracted"
	}

	if cfg.Delivery.MaxAttempts == 0 {
		cfg.Delivery.MaxAttempts = 3
	}
	if cfg.Delivery.Delay == 0 {
		cfg.Delivery.Delay = 2 * time.Second
	}
	if cfg.Delivery.Timeout == 0 {
		cfg.Delivery.Timeout = 30 * time.Second
	}
	if cfg.Delivery.Workers == 0 {
		cfg.Delivery.Workers = 2
	}
	if cfg.Delivery.QueueSize == 0 {
		cfg.Delivery.QueueSize = 64
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "ocr.dpi must be positive", ErrInvalidInput)
	}
	if c.Extraction.MinTextLength < 0 {
		return NewAppError("CONFIG_ERROR", "extraction.min_text_length must not be negative", ErrInvalidInput)
	}
	if c.Extraction.PageWorkers <= 0 || c.Extraction.LiveSlots <= 0 {
		return NewAppError("CONFIG_ERROR", "extraction worker counts must be positive", ErrInvalidInput)
	}
	if c.Batch.Size <= 0 {
		return NewAppError("CONFIG_ERROR", "batch.size must be positive", ErrInvalidInput)
	}
	if c.Batch.SuccessRatio <= 0 || c.Batch.SuccessRatio > 1 {
		return NewAppError("CONFIG_ERROR", "batch.success_ratio must be in (0,1]", ErrInvalidInput)
	}
	if c.Search.FuzzyThreshold <= 0 || c.Search.FuzzyThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "search.fuzzy_threshold must be in (0,1]", ErrInvalidInput)
	}
	if c.Delivery.MaxAttempts <= 0 {
		return NewAppError("CONFIG_ERROR", "delivery.max_attempts must be positive", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "cli", "gosseract":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown ocr.engine %q", c.OCR.Engine), ErrInvalidInput)
	}
	switch c.Storage.Backend {
	case "fs":
	case "gcs":
		if c.Storage.Bucket == "" {
			return NewAppError("CONFIG_ERROR", "storage.bucket is required for gcs", ErrInvalidInput)
		}
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return NewAppError("CONFIG_ERROR", "storage.dsn is required for "+c.Storage.Backend, ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown storage.backend %q", c.Storage.Backend), ErrInvalidInput)
	}
	return nil
}
