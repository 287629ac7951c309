package config

import "time"

type Simulation struct {
	// Seed makes every run reproducible when non-zero.
	Seed     uint64        `env:"SIMULATION_SEED" envDefault:"0"`
	MinDelay time.Duration `env:"SIMULATION_MIN_DELAY" envDefault:"1s"`
	MaxDelay time.Duration `env:"SIMULATION_MAX_DELAY" envDefault:"2s"`
}
