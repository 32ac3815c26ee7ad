package routing

import (
    "fmt"
    "math"
    "os"

    yaml "gopkg.in/yaml.v3"
)

// Weights is the static weight vector applied to the per-criterion scores.
// The vector must sum to 1.0; tuning/learning of the weights happens outside
// this service.
type Weights struct {
    Performance   float64 `yaml:"performance"`
    Workload      float64 `yaml:"workload"`
    Specialty     float64 `yaml:"specialty"`
    Cost          float64 `yaml:"cost"`
    Proximity     float64 `yaml:"proximity"`
    Certification float64 `yaml:"certification"`
    ResponseTime  float64 `yaml:"responseTime"`
}

// Defaults are the scores used when a signal is missing: a vendor with no
// known location, or with zero open assignments. Both default to the
// optimistic 1.0 the legacy ruleset used.
type Defaults struct {
    Proximity float64 `yaml:"proximity"`
    Workload  float64 `yaml:"workload"`
}

// Config is the scoring configuration loaded from YAML.
type Config struct {
    Weights  Weights  `yaml:"weights"`
    Defaults Defaults `yaml:"defaults"`
}

func DefaultConfig() Config {
    return Config{
        Weights: Weights{
            Performance:   0.30,
            Workload:      0.20,
            Specialty:     0.10,
            Cost:          0.10,
            Proximity:     0.10,
            Certification: 0.10,
            ResponseTime:  0.10,
        },
        Defaults: Defaults{Proximity: 1.0, Workload: 1.0},
    }
}

// Sum returns the total of the weight vector.
func (w Weights) Sum() float64 {
    return w.Performance + w.Workload + w.Specialty + w.Cost + w.Proximity + w.Certification + w.ResponseTime
}

func (c Config) Validate() error {
    for name, v := range map[string]float64{
        "performance":   c.Weights.Performance,
        "workload":      c.Weights.Workload,
        "specialty":     c.Weights.Specialty,
        "cost":          c.Weights.Cost,
        "proximity":     c.Weights.Proximity,
        "certification": c.Weights.Certification,
        "responseTime":  c.Weights.ResponseTime,
    } {
        if v < 0 {
            return fmt.Errorf("weight %s must be >= 0", name)
        }
    }
    if s := c.Weights.Sum(); math.Abs(s-1.0) > 1e-9 {
        return fmt.Errorf("weights must sum to 1.0, got %v", s)
    }
    if c.Defaults.Proximity < 0 || c.Defaults.Proximity > 1 {
        return fmt.Errorf("defaults.proximity must be in [0,1]")
    }
    if c.Defaults.Workload < 0 || c.Defaults.Workload > 1 {
        return fmt.Errorf("defaults.workload must be in [0,1]")
    }
    return nil
}

// LoadConfig reads a scoring config file. Fields absent from the file keep
// their default values, so a file may override just the weights.
func LoadConfig(path string) (Config, error) {
    cfg := DefaultConfig()
    data, err := os.ReadFile(path)
    if err != nil {
        return cfg, err
    }
    if err := yaml.Unmarshal(data, &cfg); err != nil {
        return cfg, fmt.Errorf("parse scoring config: %w", err)
    }
    if err := cfg.Validate(); err != nil {
        return cfg, err
    }
    return cfg, nil
}
