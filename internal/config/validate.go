package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Errors block startup and config saves; warnings are
// surfaced but tolerated.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Proxy.Manual = trimList(out.Proxy.Manual)
	out.Harvest.Sources = trimList(out.Harvest.Sources)
	out.Crawl.TargetURL = strings.TrimSpace(out.Crawl.TargetURL)
	out.Harvest.ProbeURL = strings.TrimSpace(out.Harvest.ProbeURL)

	// ---- Validation rules ----

	if out.Crawl.TargetURL == "" {
		res.addErr("crawl.target_url is required")
	} else if u, err := url.Parse(out.Crawl.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		res.addErr("crawl.target_url must be an absolute http(s) URL")
	}

	if out.Crawl.IntervalSeconds <= 0 {
		res.addErr("crawl.interval_seconds must be > 0")
	} else if out.Crawl.IntervalSeconds < 2 {
		res.addWarn("crawl.interval_seconds is very low (%d) and may get the crawler blocked.", out.Crawl.IntervalSeconds)
	}
	if out.Crawl.Workers <= 0 {
		res.addErr("crawl.workers must be > 0")
	} else if out.Crawl.Workers > 50 {
		res.addWarn("crawl.workers is very high (%d); the target may rate-limit.", out.Crawl.Workers)
	}
	if out.Crawl.RequestTimeoutSeconds <= 0 {
		res.addErr("crawl.request_timeout_seconds must be > 0")
	}
	if out.Crawl.MinDelayMS < 0 || out.Crawl.MaxDelayMS < 0 {
		res.addErr("crawl delays must be >= 0")
	}
	if out.Crawl.MaxDelayMS < out.Crawl.MinDelayMS {
		res.addErr("crawl.max_delay_ms must be >= crawl.min_delay_ms")
	}

	if out.Proxy.FailureThreshold <= 0 {
		res.addErr("proxy.failure_threshold must be > 0")
	}
	if out.Proxy.MaxPoolSize <= 0 {
		res.addErr("proxy.max_pool_size must be > 0")
	}
	if out.Proxy.Rotate && !out.Proxy.DirectFallback && len(out.Proxy.Manual) == 0 && !out.Harvest.Enabled {
		res.addWarn("proxy rotation is on with no manual proxies, no harvesting and no direct fallback; every fetch will fail until proxies are added.")
	}

	if out.Harvest.Enabled {
		if len(out.Harvest.Sources) == 0 {
			res.addErr("harvest.sources is required when harvest.enabled=true")
		}
		if out.Harvest.IntervalSeconds <= 0 {
			res.addErr("harvest.interval_seconds must be > 0 when harvest.enabled=true")
		}
		if out.Harvest.ProbeURL == "" {
			res.addErr("harvest.probe_url is required when harvest.enabled=true")
		}
		if out.Harvest.Concurrency <= 0 {
			res.addErr("harvest.concurrency must be > 0 when harvest.enabled=true")
		}
	}

	switch strings.ToLower(strings.TrimSpace(out.Log.Level)) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		res.addWarn("log.level %q is not recognized; falling back to info.", out.Log.Level)
	}

	return out, res
}
