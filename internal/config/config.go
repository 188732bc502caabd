// Package config loads and validates the aggregator's optional JSON
// configuration file, validating it with this package's own Validate
// against an embedded JSON Schema describing the aggregator's fields.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// DefaultPath is where the aggregator looks for its config file when
// none is given explicitly on the command line.
const DefaultPath = "./config.json"

// DefaultPort is the aggregator's default listening port.
const DefaultPort = 4567

// Backup holds the optional snapshot-backup settings.
type Backup struct {
	Enabled bool   `json:"enabled"`
	Bucket  string `json:"bucket"`
	Prefix  string `json:"prefix"`
}

// Aggregator is the aggregator's full configuration.
type Aggregator struct {
	Addr          string `json:"addr"`
	PersistFile   string `json:"persistFile"`
	MaxStations   int    `json:"maxStations"`
	ExpiryMs      int    `json:"expiryMs"`
	SweepInterval string `json:"sweepInterval"`
	Backup        Backup `json:"backup"`
}

// Default returns an Aggregator populated with the constants a bare,
// unconfigured instance runs with.
func Default() Aggregator {
	return Aggregator{
		Addr:          fmt.Sprintf(":%d", DefaultPort),
		PersistFile:   "./weather_data.json",
		MaxStations:   20,
		ExpiryMs:      30_000,
		SweepInterval: "1s",
		Backup:        Backup{Prefix: "weather-aggregator/"},
	}
}

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "addr": { "type": "string" },
    "persistFile": { "type": "string" },
    "maxStations": { "type": "integer", "minimum": 1 },
    "expiryMs": { "type": "integer", "minimum": 0 },
    "sweepInterval": { "type": "string" },
    "backup": {
      "type": "object",
      "properties": {
        "enabled": { "type": "boolean" },
        "bucket": { "type": "string" },
        "prefix": { "type": "string" }
      },
      "if": { "properties": { "enabled": { "const": true } } },
      "then": { "required": ["bucket"] }
    }
  },
  "additionalProperties": false
}`

// Load reads and validates the config file at path, layering defaults
// over any field the file omits. A missing file at the default path is
// not an error - the aggregator simply runs with built-in defaults; a
// missing file at an explicitly-requested path is.
func Load(path string, explicit bool) (Aggregator, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := Validate(configSchema, data); err != nil {
		return cfg, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var parsed Aggregator
	if err := dec.Decode(&parsed); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}

	mergeDefaults(&parsed, cfg)
	return parsed, nil
}

// mergeDefaults fills zero-valued fields of cfg with defaults's values.
func mergeDefaults(cfg *Aggregator, defaults Aggregator) {
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.PersistFile == "" {
		cfg.PersistFile = defaults.PersistFile
	}
	if cfg.MaxStations == 0 {
		cfg.MaxStations = defaults.MaxStations
	}
	if cfg.ExpiryMs == 0 {
		cfg.ExpiryMs = defaults.ExpiryMs
	}
	if cfg.SweepInterval == "" {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.Backup.Prefix == "" {
		cfg.Backup.Prefix = defaults.Backup.Prefix
	}
}
