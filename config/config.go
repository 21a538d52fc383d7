// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"github.com/sirupsen/logrus"
)

type StartType int

const (
	// Tells consolation to start a repl in parallel for interacting with it
	START_REPL = StartType(iota)
	// Tells consolation to execute a specific command on startup
	START_SINGLE_COMMAND
	// Tells consolation to start without any specific targets
	// Note: Good luck interacting with it :3
	START_NONE
)

// Prefix for environment overrides, CONSOLATION_START_TYPE and so on
const EnvPrefix = "consolation"

type Config struct {
	StartType StartType `envconfig:"START_TYPE" toml:"start_type,omitempty" yaml:"start_type,omitempty"`
	// What command to execute on start. Only matters if StartType is set to START_SINGLE_COMMAND
	StartCommand *string `envconfig:"START_COMMAND" toml:"start_command,omitempty" yaml:"start_command,omitempty"`
	// Argv spawned by Logo+Return
	Terminal []string `envconfig:"TERMINAL" toml:"terminal,omitempty" yaml:"terminal,omitempty"`
	LogLevel string   `envconfig:"LOG_LEVEL" toml:"log_level,omitempty" yaml:"log_level,omitempty"`
	// Keyboard repeat in keys per second and milliseconds before repeating
	RepeatRate  int32 `envconfig:"REPEAT_RATE" toml:"repeat_rate,omitempty" yaml:"repeat_rate,omitempty"`
	RepeatDelay int32 `envconfig:"REPEAT_DELAY" toml:"repeat_delay,omitempty" yaml:"repeat_delay,omitempty"`
	XWayland    bool  `envconfig:"XWAYLAND" toml:"xwayland" yaml:"xwayland"`

	Outputs []OutputConfig `ignored:"true" toml:"outputs,omitempty" yaml:"outputs,omitempty"`
}

func Default() *Config {
	return &Config{
		StartType:   START_REPL,
		Terminal:    []string{"xfce4-terminal"},
		LogLevel:    "info",
		RepeatRate:  25,
		RepeatDelay: 600,
		XWayland:    true,
	}
}

// Level returns the configured log level, info if it can't be parsed
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Output returns the settings for the named output, if any
func (c *Config) Output(name string) (OutputConfig, bool) {
	for _, o := range c.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return OutputConfig{}, false
}
