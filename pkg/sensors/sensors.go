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

// Package sensors defines what the telemetry loop needs from a climate
// sensor.
package sensors

import (
	"context"
	"fmt"
)

// Reading is one temperature and relative humidity sample.
type Reading struct {
	TemperatureC float64
	Humidity     float64
}

// Sentinel is reported in place of a reading the sensor failed to produce.
var Sentinel = Reading{}

func (r Reading) String() string {
	return fmt.Sprintf("T=%.2fC H=%.2f%%", r.TemperatureC, r.Humidity)
}

type Reader interface {
	Read(ctx context.Context) (Reading, error)
}
