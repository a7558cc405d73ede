package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Crawl struct {
		TargetURL             string `yaml:"target_url"`
		IntervalSeconds       int    `yaml:"interval_seconds"`
		Workers               int    `yaml:"workers"`
		RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
		MinDelayMS            int    `yaml:"min_delay_ms"`
		MaxDelayMS            int    `yaml:"max_delay_ms"`
		Source                string `yaml:"source"`
	} `yaml:"crawl"`

	Proxy struct {
		Rotate           bool     `yaml:"rotate"`
		DirectFallback   bool     `yaml:"direct_fallback"`
		FailureThreshold int      `yaml:"failure_threshold"`
		MaxPoolSize      int      `yaml:"max_pool_size"`
		Manual           []string `yaml:"manual"`
	} `yaml:"proxy"`

	Harvest struct {
		Enabled             bool     `yaml:"enabled"`
		IntervalSeconds     int      `yaml:"interval_seconds"`
		ProbeURL            string   `yaml:"probe_url"`
		ProbeTimeoutSeconds int      `yaml:"probe_timeout_seconds"`
		Concurrency         int      `yaml:"concurrency"`
		Sources             []string `yaml:"sources"`
	} `yaml:"harvest"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
