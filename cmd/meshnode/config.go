package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// bootConfig is the flat set of options recognised by the process, collected
// from CLI flags only. The --env-file option loads a .env file into the
// process environment after cobra has parsed the flags; no option here is
// read from environment variables.
type bootConfig struct {
	root string

	callsign  string
	unit      string
	rank      string
	role      string
	clearance int

	batmanEnabled bool
	ipInterface   string
	ipPort        int

	loraEnabled  bool
	loraPort     string
	loraBaudrate int

	gpsEnabled bool
	posLat     float64
	posLon     float64
	posAlt     float64

	activeWindow time.Duration
	geofenceSeed string
}

func loadBootConfig(flags *pflag.FlagSet) (*bootConfig, error) {
	cfg := &bootConfig{}

	var err error
	get := func(name string, fn func(string) error) {
		if err != nil {
			return
		}
		err = fn(name)
	}

	get("root", func(n string) error { cfg.root, _ = flags.GetString(n); return nil })
	get("callsign", func(n string) error { cfg.callsign, _ = flags.GetString(n); return nil })
	get("unit", func(n string) error { cfg.unit, _ = flags.GetString(n); return nil })
	get("rank", func(n string) error { cfg.rank, _ = flags.GetString(n); return nil })
	get("role", func(n string) error { cfg.role, _ = flags.GetString(n); return nil })
	get("geofence-seed", func(n string) error { cfg.geofenceSeed, _ = flags.GetString(n); return nil })
	get("ip-interface", func(n string) error { cfg.ipInterface, _ = flags.GetString(n); return nil })
	get("lora-port", func(n string) error { cfg.loraPort, _ = flags.GetString(n); return nil })

	if err != nil {
		return nil, err
	}

	cfg.clearance, err = flags.GetInt("clearance-level")
	if err != nil {
		return nil, err
	}
	cfg.batmanEnabled, err = flags.GetBool("batman-enabled")
	if err != nil {
		return nil, err
	}
	cfg.ipPort, err = flags.GetInt("ip-port")
	if err != nil {
		return nil, err
	}
	cfg.loraEnabled, err = flags.GetBool("lora-enabled")
	if err != nil {
		return nil, err
	}
	cfg.loraBaudrate, err = flags.GetInt("lora-baudrate")
	if err != nil {
		return nil, err
	}
	cfg.gpsEnabled, err = flags.GetBool("gps-enabled")
	if err != nil {
		return nil, err
	}
	cfg.posLat, err = flags.GetFloat64("position-lat")
	if err != nil {
		return nil, err
	}
	cfg.posLon, err = flags.GetFloat64("position-lon")
	if err != nil {
		return nil, err
	}
	cfg.posAlt, err = flags.GetFloat64("position-alt")
	if err != nil {
		return nil, err
	}

	windowSeconds, err := flags.GetInt("active-window-seconds")
	if err != nil {
		return nil, err
	}
	cfg.activeWindow = time.Duration(windowSeconds) * time.Second

	if cfg.clearance < 0 || cfg.clearance > 5 {
		return nil, fmt.Errorf("clearance-level must be in [0,5], got %d", cfg.clearance)
	}

	return cfg, nil
}
