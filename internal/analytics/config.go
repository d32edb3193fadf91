package analytics

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds anomaly detection thresholds.
type Config struct {
	// SpeedLimit is the speed above which movement is flagged, in
	// coordinate units per second.
	SpeedLimit float64 `yaml:"speed_limit"`
	// OverloadLoad is the station load above which an overload alert
	// is raised.
	OverloadLoad int `yaml:"overload_load"`
}

// LoadConfig loads thresholds from yaml or defaults. The file path is
// taken from ANALYTICS_CONFIG; when unset the defaults apply.
func LoadConfig() (Config, error) {
	cfg := Config{
		SpeedLimit:   200,
		OverloadLoad: 50,
	}

	if path := os.Getenv("ANALYTICS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.SpeedLimit <= 0 {
		return cfg, errors.New("analytics: speed limit must be positive")
	}
	if cfg.OverloadLoad <= 0 {
		return cfg, errors.New("analytics: overload load must be positive")
	}
	return cfg, nil
}
