package model

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RiskProfile is a fixed bundle of thresholds selected per account.
// It is read once per cycle and immutable for the duration of the cycle.
type RiskProfile struct {
	Name          string        `yaml:"name"`
	Cooldown      time.Duration `yaml:"cooldown"`        // min gap between state-changing moves per symbol
	AllowShorts   bool          `yaml:"allow_shorts"`    // short strategies evaluated at all
	RSILong       float64       `yaml:"rsi_long"`        // oversold threshold for long entries
	RSIShort      float64       `yaml:"rsi_short"`       // overbought threshold for short entries
	ShortMomentum float64       `yaml:"short_momentum"`  // 10-bar momentum must be below this for shorts
	MinSignals    int           `yaml:"min_signals"`     // weighted signal count to promote a watchlist symbol
	BoldSignals   bool          `yaml:"bold_signals"`    // single-bar spike counts as a promotion signal
}

// Built-in profile bundles. A YAML file can override individual thresholds.
var defaultProfiles = map[string]RiskProfile{
	"safe": {
		Name:          "safe",
		Cooldown:      24 * time.Hour,
		AllowShorts:   false,
		RSILong:       25,
		RSIShort:      78,
		ShortMomentum: -5,
		MinSignals:    4,
	},
	"balanced": {
		Name:          "balanced",
		Cooldown:      12 * time.Hour,
		AllowShorts:   true,
		RSILong:       30,
		RSIShort:      72,
		ShortMomentum: -3,
		MinSignals:    3,
	},
	"bold": {
		Name:          "bold",
		Cooldown:      4 * time.Hour,
		AllowShorts:   true,
		RSILong:       35,
		RSIShort:      68,
		ShortMomentum: -2,
		MinSignals:    2,
		BoldSignals:   true,
	},
}

// Profiles returns the profile set: compiled defaults, optionally overlaid
// with entries from a YAML file. Unknown profile names in the file are
// added as-is so operators can experiment without a rebuild.
func Profiles(path string) (map[string]RiskProfile, error) {
	out := make(map[string]RiskProfile, len(defaultProfiles))
	for k, v := range defaultProfiles {
		out[k] = v
	}
	if path == "" {
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profiles: read %s: %w", path, err)
	}
	var file map[string]RiskProfile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("profiles: parse %s: %w", path, err)
	}
	for k, v := range file {
		if v.Name == "" {
			v.Name = k
		}
		out[k] = v
	}
	return out, nil
}

// Profile resolves a single profile by name, falling back to "safe" for
// unknown names (the conservative default).
func Profile(profiles map[string]RiskProfile, name string) RiskProfile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles["safe"]
}
