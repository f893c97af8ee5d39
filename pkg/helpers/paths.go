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

package helpers

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/meteostation/meteonode/pkg/config"
)

const machineIDPath = "/etc/machine-id"

type Dirs struct {
	Config string
	Data   string
	Temp   string
}

func DefaultDirs() Dirs {
	return Dirs{
		Config: filepath.Join(xdg.ConfigHome, config.AppName),
		Data:   filepath.Join(xdg.DataHome, config.AppName),
		Temp:   filepath.Join(os.TempDir(), config.AppName),
	}
}

// CredentialsPath is where provisioned network credentials are kept.
func (d Dirs) CredentialsPath() string {
	return filepath.Join(d.Data, config.CredsFile)
}

// DeviceID is a stable anonymous identifier derived from the machine id,
// or a random one when the machine id cannot be read.
func DeviceID() string {
	return deviceIDFrom(machineIDPath)
}

func deviceIDFrom(path string) string {
	data, err := os.ReadFile(path)
	data = bytes.TrimSpace(data)
	if err != nil || len(data) == 0 {
		return uuid.New().String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(config.AppName+":"), data...)).String()
}
