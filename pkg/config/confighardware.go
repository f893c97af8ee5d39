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

import "time"

// I2C describes the shared bus carrying the display and the sensor.
type I2C struct {
	// Bus is a periph bus name such as "1" or "/dev/i2c-1". Empty picks
	// the first bus the host exposes.
	Bus            string `toml:"bus,omitempty"`
	FrequencyHz    int    `toml:"frequency_hz" validate:"gt=0,lte=3400000"`
	DisplayAddress uint16 `toml:"display_address" validate:"min=8,max=119"`
	SensorAddress  uint16 `toml:"sensor_address" validate:"min=8,max=119"`
	TimeoutMs      int    `toml:"timeout_ms" validate:"gt=0"`
	VerifyCRC      bool   `toml:"verify_crc,omitempty"`
}

func (c *Instance) I2C() I2C {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.I2C
}

// BusTimeout bounds a single bus transaction.
func (c *Instance) BusTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.I2C.TimeoutMs)
}

// BusSpeedMultiplier is the bus clock expressed in units of 100 kHz, the
// value display drivers expect for their bus-speed delay.
func (c *Instance) BusSpeedMultiplier() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.vals.I2C.FrequencyHz / 100_000
	if m < 1 {
		return 1
	}
	if m > 255 {
		return 255
	}
	return uint8(m)
}
