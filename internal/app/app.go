// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package app is the metaextract command line application.
package app

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cristalhq/acmd"

	"codeberg.org/readeck/metaextract/configs"
)

const (
	bold        = "\033[1m"
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

var commands = []acmd.Command{}

// appFlags holds the flags every command shares.
type appFlags struct {
	ConfigFile string
	LogLevel   string
	fs         *flag.FlagSet
}

// Flags returns a new [flag.FlagSet] with the common flags.
func (f *appFlags) Flags() *flag.FlagSet {
	f.fs = flag.NewFlagSet("", flag.ContinueOnError)
	f.fs.StringVar(&f.ConfigFile, "config", "", "configuration file path")
	f.fs.StringVar(&f.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	return f.fs
}

// stringsFlag is a repeatable flag.
type stringsFlag []string

func (s *stringsFlag) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringsFlag) Set(value string) error {
	for v := range strings.SplitSeq(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*s = append(*s, v)
		}
	}
	return nil
}

// appPreRun loads the configuration and sets the logger.
func appPreRun(flags *appFlags) error {
	configs.InitConfiguration()
	if err := configs.LoadConfiguration(flags.ConfigFile); err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}

	if flags.LogLevel != "" {
		if err := configs.Config.Main.LogLevel.UnmarshalText([]byte(flags.LogLevel)); err != nil {
			return err
		}
	}

	slog.SetDefault(newLogger(os.Stderr, configs.Config.Main.LogLevel))
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("err", err))
	os.Exit(1)
}

// Run starts the application.
func Run() error {
	r := acmd.RunnerOf(commands, acmd.Config{
		AppName:        "metaextract",
		AppDescription: "Structured metadata extraction from HTML documents",
		Version:        configs.Version(),
		Context:        context.Background(),
	})
	return r.Run()
}
