// internal/config/config.go
package config

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Poller  PollerConfig  `yaml:"poller"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type PollerConfig struct {
	Units []UnitConfig `yaml:"units"`
}

// ---- UNIT ----

// UnitConfig is one device: a connection, its tag set, and how it is polled.
type UnitConfig struct {
	ID         string `yaml:"id"`
	Connection string `yaml:"connection"`

	// Tags maps tag name to address. Addresses are expected to be strings;
	// other values are kept and skipped at read time.
	Tags map[string]any `yaml:"tags"`

	Poll   PollConfig   `yaml:"poll"`
	Output OutputConfig `yaml:"output"`
}

// ---- POLL ----

const (
	ModeBlocking  = "blocking"
	ModeImmediate = "immediate"
	ModeTimed     = "timed"
)

type PollConfig struct {
	IntervalMs int    `yaml:"interval_ms"`
	Mode       string `yaml:"mode"`
	TimeoutMs  int    `yaml:"timeout_ms"` // timed mode only
}

// ---- OUTPUT ----

const (
	OutputLog  = "log"
	OutputCBOR = "cbor"
)

type OutputConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"` // cbor only
}
