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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	cfg := &Instance{
		fs:       afero.NewOsFs(),
		cfgPath:  filepath.Join(dir, CfgFile),
		vals:     BaseDefaults,
		defaults: BaseDefaults,
	}
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())
	assert.False(t, cfg.DebugLogging())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	require.NoError(t, cfg.Watch(ctx, func() { reloads.Add(1) }))

	content := fmt.Sprintf("config_schema = %d\ndebug_logging = true\n", SchemaVersion)
	require.NoError(t, os.WriteFile(cfg.Path(), []byte(content), 0o600))

	require.Eventually(t, cfg.DebugLogging, 5*time.Second, 10*time.Millisecond)
	assert.Positive(t, reloads.Load())

	// A broken file keeps the previous values.
	require.NoError(t, os.WriteFile(cfg.Path(), []byte("config_schema = 99\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.True(t, cfg.DebugLogging())

	cancel()
}

func TestWatch_MissingDirectory(t *testing.T) {
	t.Parallel()

	cfg := &Instance{cfgPath: filepath.Join(t.TempDir(), "missing", CfgFile)}
	require.Error(t, cfg.Watch(context.Background(), nil))
}
