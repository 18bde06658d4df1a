// Package config holds the root command line interface.
package config

import "github.com/Alia5/viistream/internal/cmd"

// Log configures logging for every command.
type Log struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"VIISTREAM_LOG_LEVEL"`
	File    string `help:"Log file path; logs go to stdout/stderr when empty" env:"VIISTREAM_LOG_FILE"`
	RawFile string `help:"Raw packet log file path" env:"VIISTREAM_LOG_RAW_FILE"`
	Format  string `help:"Log format (auto, text, json)" default:"auto" enum:"auto,text,json" env:"VIISTREAM_LOG_FORMAT"`
}

// CLI is the root of the command tree.
type CLI struct {
	Config string `help:"Configuration file (json, yaml or toml)" type:"path" env:"VIISTREAM_CONFIG"`
	Log    Log    `embed:"" prefix:"log."`

	Stream    cmd.Stream        `cmd:"" help:"Stream controller input to a VIIPER server"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
