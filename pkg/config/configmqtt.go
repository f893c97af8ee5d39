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

type MQTT struct {
	Enabled *bool  `toml:"enabled,omitempty"`
	Broker  string `toml:"broker" validate:"required,url"`
	Topic   string `toml:"topic" validate:"required"`
	QoS     byte   `toml:"qos" validate:"max=2"`
}

type Telemetry struct {
	StepDelayMs int `toml:"step_delay_ms" validate:"gt=0"`
}

func (c *Instance) MQTT() MQTT {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT
}

func (c *Instance) MQTTEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.MQTT.Enabled == nil {
		return true
	}
	return *c.vals.MQTT.Enabled
}

// StepDelay is the pause between progress bar frames.
func (c *Instance) StepDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.Telemetry.StepDelayMs)
}
