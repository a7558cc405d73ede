package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ProxiesFile is the optional sidecar file operators drop proxies into
// without touching the main config.
type ProxiesFile struct {
	Proxies struct {
		Manual  []string `yaml:"manual"`
		Sources []string `yaml:"sources"`
	} `yaml:"proxies"`
}

// OverlayProxies merges a proxies.yml sidecar into cfg. Entries add to the
// main config lists rather than replacing them.
func OverlayProxies(cfg *Config, proxiesPath string) error {
	b, err := os.ReadFile(proxiesPath)
	if err != nil {
		// Missing sidecar should not kill startup
		return nil
	}

	var pf ProxiesFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return err
	}

	cfg.Proxy.Manual = append(cfg.Proxy.Manual, pf.Proxies.Manual...)
	cfg.Harvest.Sources = append(cfg.Harvest.Sources, pf.Proxies.Sources...)
	return nil
}
