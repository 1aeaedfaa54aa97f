package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds all application configuration.
type Config struct {
	HTTP struct {
		Port         int           `yaml:"port"`
		Timeout      time.Duration `yaml:"timeout"`
		MaxBodyBytes int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Storage struct {
		DatasetPath string `yaml:"dataset_path"`
		ModelPath   string `yaml:"model_path"`
		StaticDir   string `yaml:"static_dir"`
		PlotFile    string `yaml:"plot_file"`
	} `yaml:"storage"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Cache struct {
		PredictionSize int `yaml:"prediction_size"`
	} `yaml:"cache"`
	Plot struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"plot"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = 5000
	cfg.HTTP.Timeout = 30 * time.Second
	cfg.HTTP.MaxBodyBytes = 1 << 20
	cfg.Storage.DatasetPath = filepath.Join("model", "car_data.db")
	cfg.Storage.ModelPath = filepath.Join("model", "model.json")
	cfg.Storage.StaticDir = "static"
	cfg.Storage.PlotFile = "plot.png"
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 50
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	cfg.Cache.PredictionSize = 256
	cfg.Plot.Width = 1000
	cfg.Plot.Height = 600
	return cfg
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("CARPRICE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CARPRICE_PORT: %w", err)
		}
		cfg.HTTP.Port = port
	}
	if v := os.Getenv("CARPRICE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CARPRICE_DATA_DIR"); v != "" {
		cfg.Storage.DatasetPath = filepath.Join(v, filepath.Base(cfg.Storage.DatasetPath))
		cfg.Storage.ModelPath = filepath.Join(v, filepath.Base(cfg.Storage.ModelPath))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.Storage.DatasetPath == "" || c.Storage.ModelPath == "" {
		return fmt.Errorf("storage paths must not be empty")
	}
	if c.Storage.StaticDir == "" || c.Storage.PlotFile == "" {
		return fmt.Errorf("static dir and plot file must not be empty")
	}
	return nil
}

// PlotPath is where the rendered image is written on disk.
func (c *Config) PlotPath() string {
	return filepath.Join(c.Storage.StaticDir, c.Storage.PlotFile)
}

// PlotURL is the relative URL the index page uses for the image.
func (c *Config) PlotURL() string {
	return "static/" + c.Storage.PlotFile
}
