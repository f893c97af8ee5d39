// Meteonode
// Copyright (c) 2026 The Meteonode Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Meteonode.
//
// Meteonode is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Meteonode is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Meteonode.  If not, see <http://www.gnu.org/licenses/>.

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meteostation/meteonode/internal/errorreport"
	"github.com/meteostation/meteonode/pkg/config"
	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/meteostation/meteonode/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrBadWiFiFlag = errors.New("wifi flag must be ssid:password")

type Flags struct {
	Version *bool
	Daemon  *bool
	Debug   *bool
	Forget  *bool
	WiFi    *string
}

// SetupFlags defines the command line flags.
func SetupFlags() *Flags {
	return &Flags{
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Daemon: flag.Bool(
			"daemon",
			false,
			"log to stderr as well as the log file",
		),
		Debug: flag.Bool(
			"debug",
			false,
			"enable debug logging for this run",
		),
		Forget: flag.Bool(
			"forget",
			false,
			"clear stored Wi-Fi credentials so the next boot opens the portal",
		),
		WiFi: flag.String(
			"wifi",
			"",
			"store Wi-Fi credentials as ssid:password and exit",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses flags and handles the ones that need no setup.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("Meteonode v%s\n", config.AppVersion)
		os.Exit(0)
	}
}

// Post handles the credential flags, which exit once done.
func (f *Flags) Post(dirs helpers.Dirs) {
	handled, err := f.applyCredentials(dirs.CredentialsPath())
	if err != nil {
		log.Error().Err(err).Msg("error updating credentials")
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if handled {
		os.Exit(0)
	}
}

func (f *Flags) applyCredentials(path string) (bool, error) {
	forget := *f.Forget
	wifi := *f.WiFi
	if !forget && wifi == "" && !isFlagPassed("wifi") {
		return false, nil
	}

	var creds credentials.Credentials
	if !forget {
		var err error
		creds, err = ParseWiFi(wifi)
		if err != nil {
			return true, err
		}
	}

	store, err := credentials.Open(path)
	if err != nil {
		return true, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing credential store")
		}
	}()

	if forget {
		return true, store.Clear()
	}
	return true, store.Save(creds)
}

// ParseWiFi splits "ssid:password" at the first colon. The password may be
// empty for open networks.
func ParseWiFi(value string) (credentials.Credentials, error) {
	ssid, pass, ok := strings.Cut(value, ":")
	if !ok || ssid == "" {
		return credentials.Credentials{}, ErrBadWiFiFlag
	}
	creds := credentials.Credentials{SSID: ssid, Password: pass}
	if err := creds.Validate(); err != nil {
		return credentials.Credentials{}, err
	}
	return creds, nil
}

// Setup initializes logging and loads the config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	dirs helpers.Dirs,
	defaultConfig config.Values,
	writers []io.Writer,
	debug bool,
) *config.Instance {
	err := helpers.InitLogging(dirs.Data, writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), dirs.Config, defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	helpers.SetLogLevel(debug || cfg.DebugLogging())
	log.Info().Msgf("Meteonode v%s", config.AppVersion)

	if err := errorreport.Init(cfg.ErrorReporting(), helpers.DeviceID()); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg
}
