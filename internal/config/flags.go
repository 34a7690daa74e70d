package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile   = flag.String("log", "", "Write logs to this file")
	flagLittle    = flag.Bool("little-endian", false, "Read and write DATA/ITEM as little-endian")
	flagWorkers   = flag.Int("workers", 0, "Batch worker count")
	flagSize      = flag.Int("size", 0, "Preview image size")
	flagFormat    = flag.String("format", "", "Preview image format (png, webp)")
	flagNoHull    = flag.Bool("no-hull", false, "Do not triangulate convex point sets")
)

// ParseFlags parses the global command-line flags. The remaining arguments
// are available through flag.Args.
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagLittle {
		cfg.Codec.ByteOrder = "little"
	}
	if *flagWorkers > 0 {
		cfg.Batch.Workers = *flagWorkers
	}
	if *flagSize > 0 {
		cfg.Preview.Size = *flagSize
	}
	if *flagFormat != "" {
		cfg.Preview.Format = *flagFormat
	}
	if *flagNoHull {
		cfg.Mesh.Hull = false
	}
}
