package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"StockML/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateBurst       float64       `yaml:"rate_burst" default:"20"`
		RatePerSec      float64       `yaml:"rate_per_sec" default:"10"`
	} `yaml:"server"`
	Metrics struct {
		Enabled        bool   `yaml:"enabled" default:"true"`
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job" default:"stockml"`
	} `yaml:"metrics"`
	Source struct {
		Type     string        `yaml:"type" default:"file"` // file, http or clickhouse
		Path     string        `yaml:"path"`
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout" default:"30s"`
		Backoff  time.Duration `yaml:"backoff" default:"500ms"`
		Attempts int           `yaml:"attempts" default:"3"`
		Table    string        `yaml:"table" default:"daily_bars"`
		Symbol   string        `yaml:"symbol" default:"IBM"`
	} `yaml:"source"`
	Features struct {
		Rolling7Window int `yaml:"rolling_7_window" default:"3"`
	} `yaml:"features"`
	Prepare struct {
		OutputDir   string            `yaml:"output_dir" default:"data"`
		FileName    string            `yaml:"file_name" default:"stock-data.csv"`
		DropColumns []string          `yaml:"drop_columns" default:"[\"adjusted_close\"]"`
		AssetName   string            `yaml:"asset_name" default:"stock-data"`
		Description string            `yaml:"description" default:"Dataset to train a model on the IBM stock data."`
		Tags        map[string]string `yaml:"tags" default:"{\"source_type\":\"web\",\"source\":\"AlphaVantage\"}"`
	} `yaml:"prepare"`
	Train struct {
		InputPath     string   `yaml:"input_path"`
		DataAsset     string   `yaml:"data_asset" default:"stock-data"`
		WorkDir       string   `yaml:"work_dir" default:"outputs"`
		ModelFile     string   `yaml:"model_file" default:"ibm_model.json"`
		AssetName     string   `yaml:"asset_name" default:"IBM-Model"`
		Description   string   `yaml:"description" default:"Model created from local file."`
		Target        string   `yaml:"target" default:"close_shifted"`
		Exclude       []string `yaml:"exclude" default:"[\"close\"]"`
		VersionLayout string   `yaml:"version_layout" default:"20060102"`
	} `yaml:"train"`
	Trainer struct {
		Backend    string        `yaml:"backend" default:"native"` // native or http
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"5m"`
		Attempts   int           `yaml:"attempts" default:"3"`
		Params     struct {
			Rounds          int     `yaml:"rounds" default:"100"`
			LearningRate    float64 `yaml:"learning_rate" default:"0.1"`
			NumLeaves       int     `yaml:"num_leaves" default:"31"`
			MaxDepth        int     `yaml:"max_depth" default:"100"`
			MinChildSamples int     `yaml:"min_child_samples" default:"20"`
			MinChildWeight  float64 `yaml:"min_child_weight" default:"0.001"`
			RegAlpha        float64 `yaml:"reg_alpha" default:"0.05"`
			RegLambda       float64 `yaml:"reg_lambda" default:"0.05"`
		} `yaml:"params"`
	} `yaml:"trainer"`
	Registry struct {
		Backend string        `yaml:"backend" default:"local"` // local, clickhouse or redis
		Root    string        `yaml:"root" default:"registry"`
		Table   string        `yaml:"table" default:"assets"`
		LockTTL time.Duration `yaml:"lock_ttl" default:"30s"`
	} `yaml:"registry"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockml"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"stockml"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"stockml.assets"`
		GroupID      string   `yaml:"group_id" default:"stockml-trainer"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		MaxAttempts  int      `yaml:"max_attempts" default:"3"`
	} `yaml:"kafka"`
}

// Default returns a configuration holding only default values.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STOCKML_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("REGISTRY_BACKEND"); v != "" {
		c.Registry.Backend = v
	}
	if v := os.Getenv("TRAINER_SERVICE_URL"); v != "" {
		c.Trainer.ServiceURL = v
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Source.Type {
	case "file", "http", "clickhouse":
	default:
		return fmt.Errorf("source.type must be 'file', 'http' or 'clickhouse', got '%s'", c.Source.Type)
	}
	switch c.Registry.Backend {
	case "local", "clickhouse", "redis":
	default:
		return fmt.Errorf("registry.backend must be 'local', 'clickhouse' or 'redis', got '%s'", c.Registry.Backend)
	}
	switch c.Trainer.Backend {
	case "native":
	case "http":
		if c.Trainer.ServiceURL == "" {
			return fmt.Errorf("trainer.service_url is required for the http backend")
		}
	default:
		return fmt.Errorf("trainer.backend must be 'native' or 'http', got '%s'", c.Trainer.Backend)
	}
	if c.Features.Rolling7Window <= 0 {
		return fmt.Errorf("features.rolling_7_window must be positive")
	}
	if c.Prepare.AssetName == "" || c.Train.AssetName == "" {
		return fmt.Errorf("asset names are required")
	}
	if c.Train.Target == "" {
		return fmt.Errorf("train.target is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
