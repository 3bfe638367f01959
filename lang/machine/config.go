package machine

import "github.com/caarlos0/env/v6"

// Config carries the tunables of a machine instance. The zero value is a
// production configuration.
type Config struct {
	// GCStress runs a collection before every allocation. Execution output
	// is identical with or without it; only the collection schedule changes.
	GCStress bool `env:"NYMPHEA_GC_STRESS"`

	// GCTrace logs allocation and collection events to the error stream in
	// effect when New runs (os.Stderr); setting VM.Stderr afterwards does not
	// redirect them.
	GCTrace bool `env:"NYMPHEA_GC_TRACE"`

	// GCInitThreshold is the byte count that triggers the first collection.
	// A value <= 0 uses the default of 1 MiB.
	GCInitThreshold int `env:"NYMPHEA_GC_INIT_THRESHOLD"`

	// GCGrowthFactor scales the next collection threshold from the live
	// byte count after each collection. A value <= 1 uses the default of 2.
	GCGrowthFactor int `env:"NYMPHEA_GC_GROWTH_FACTOR"`
}

// ConfigFromEnv returns a Config populated from NYMPHEA_* environment
// variables.
func ConfigFromEnv() (Config, error) {
	var c Config
	err := env.Parse(&c)
	return c, err
}
