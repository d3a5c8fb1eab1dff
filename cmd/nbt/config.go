package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/twinfer/nbt-plugin/pkg/nbtio"
)

// fileConfig is the optional YAML file named by --config. Flags given on
// the command line win over it.
type fileConfig struct {
	Compression string `yaml:"compression"`
	MaxSize     *int64 `yaml:"max_size"`
	Color       *bool  `yaml:"color"`
	Verbose     bool   `yaml:"verbose"`
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// globals are the flags every command accepts.
type globals struct {
	flags       *pflag.FlagSet
	compression string
	configPath  string
	maxSize     int64
	verbose     bool
	noColor     bool
}

func (g *globals) register(fs *pflag.FlagSet) {
	g.flags = fs
	fs.StringVarP(&g.compression, "compression", "c", "auto", "compression envelope: auto, none, gzip, zlib or lz4")
	fs.StringVar(&g.configPath, "config", "", "YAML file with default settings")
	fs.Int64Var(&g.maxSize, "max-size", nbtio.DefaultMaxSize, "largest decompressed document accepted, 0 for no limit")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "log codec activity to stderr")
	fs.BoolVar(&g.noColor, "no-color", false, "disable colored output")
}

// resolve merges the config file under the flags and builds the codec
// options the command should use.
func (g *globals) resolve(stderr io.Writer) ([]nbtio.Option, error) {
	if g.configPath != "" {
		cfg, err := loadConfig(g.configPath)
		if err != nil {
			return nil, err
		}
		if cfg.Compression != "" && !g.flags.Changed("compression") {
			g.compression = cfg.Compression
		}
		if cfg.MaxSize != nil && !g.flags.Changed("max-size") {
			g.maxSize = *cfg.MaxSize
		}
		if cfg.Color != nil && !g.flags.Changed("no-color") {
			g.noColor = !*cfg.Color
		}
		if !g.flags.Changed("verbose") {
			g.verbose = g.verbose || cfg.Verbose
		}
	}

	if g.noColor {
		color.NoColor = true
	}

	compression, err := nbtio.ParseCompression(g.compression)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return []nbtio.Option{
		nbtio.WithCompression(compression),
		nbtio.WithMaxSize(g.maxSize),
		nbtio.WithLogger(logger),
	}, nil
}
