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
	"path/filepath"
	"testing"

	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(forget bool, wifi string) *Flags {
	return &Flags{Forget: &forget, WiFi: &wifi}
}

func loadCreds(t *testing.T, path string) (credentials.Credentials, bool) {
	t.Helper()
	store, err := credentials.Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	creds, ok, err := store.Load()
	require.NoError(t, err)
	return creds, ok
}

func TestParseWiFi(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    credentials.Credentials
		wantErr bool
	}{
		{name: "ssid and password", value: "garden:hunter22", want: credentials.Credentials{SSID: "garden", Password: "hunter22"}},
		{name: "colon in password", value: "garden:a:b", want: credentials.Credentials{SSID: "garden", Password: "a:b"}},
		{name: "open network", value: "cafe:", want: credentials.Credentials{SSID: "cafe"}},
		{name: "no separator", value: "garden", wantErr: true},
		{name: "empty ssid", value: ":secret", wantErr: true},
		{name: "ssid too long", value: "abcdefghijklmnopqrstuvwxyz0123456:x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseWiFi(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyCredentials_NoFlags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.db")
	handled, err := newFlags(false, "").applyCredentials(path)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.NoFileExists(t, path)
}

func TestApplyCredentials_StoreThenForget(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.db")

	handled, err := newFlags(false, "garden:hunter22").applyCredentials(path)
	require.NoError(t, err)
	assert.True(t, handled)

	creds, ok := loadCreds(t, path)
	assert.True(t, ok)
	assert.Equal(t, "garden", creds.SSID)

	handled, err = newFlags(true, "").applyCredentials(path)
	require.NoError(t, err)
	assert.True(t, handled)

	_, ok = loadCreds(t, path)
	assert.False(t, ok)
}

func TestApplyCredentials_BadValue(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.db")
	handled, err := newFlags(false, "nocolon").applyCredentials(path)
	assert.True(t, handled)
	require.ErrorIs(t, err, ErrBadWiFiFlag)
	assert.NoFileExists(t, path)
}
