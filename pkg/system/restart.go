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

// Package system restarts the running process in place, which is how a
// freshly provisioned node picks up its new credentials.
package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type execFunc func(argv0 string, argv, envv []string) error

// Restarter re-executes the current binary with the same arguments and
// environment. Hooks registered with OnRestart run first, newest first,
// so open handles (bus, database, D-Bus) are released before exec.
type Restarter struct {
	exec       execFunc
	executable func() (string, error)
	hooks      []func() error
	mu         syncutil.Mutex
}

func NewRestarter() *Restarter {
	return &Restarter{
		exec:       execSelf,
		executable: os.Executable,
	}
}

func (r *Restarter) OnRestart(hook func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Restart only returns on failure.
func (r *Restarter) Restart() error {
	exe, err := r.executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	r.mu.Lock()
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("restart: cleanup failed, restarting anyway")
	}

	log.Info().Str("exe", exe).Msg("restart: re-executing")
	if err := r.exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("failed to re-execute %s: %w", exe, err)
	}
	return nil
}
