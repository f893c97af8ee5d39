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

package display

import "fmt"

const (
	barX = 10
	barY = 60
	barW = 108
	barH = 4
	// ProgressStep is the bar increment in percent.
	ProgressStep = 5
)

// DrawStatus shows up to two lines of status text and flushes.
func (r *Renderer) DrawStatus(line1, line2 string) error {
	r.ClearBuffer()
	if line1 != "" {
		r.DrawStr(2, 14, line1)
	}
	if line2 != "" {
		r.DrawStr(2, 28, line2)
	}
	return r.SendBuffer()
}

// DrawTemperature composes the temperature screen without flushing.
func (r *Renderer) DrawTemperature(celsius float64) {
	r.ClearBuffer()
	r.DrawStr(15, 38, fmt.Sprintf("%.1f  C", celsius))
	r.DrawCircle(59, 25, 2)
	r.DrawXBM(80, 8, iconSize, iconSize, thermometerIcon[:])
}

// DrawHumidity composes the humidity screen without flushing.
func (r *Renderer) DrawHumidity(percent float64) {
	r.ClearBuffer()
	r.DrawStr(15, 38, fmt.Sprintf("%.1f %%", percent))
	r.DrawXBM(80, 8, iconSize, iconSize, humidityIcon[:])
}

// DrawProgress draws the bar at the bottom of the screen filled to
// progress percent, on top of whatever is already in the buffer.
func (r *Renderer) DrawProgress(progress int) {
	progress = max(0, min(progress, 100))
	r.DrawFrame(barX, barY, barW, barH)
	fill := progress * (barW - 2) / 100
	r.DrawBox(barX+1, barY+1, fill, barH-2)
}

// ProgressSteps returns the bar positions of one animation, 0 to 100.
func ProgressSteps() []int {
	steps := make([]int, 0, 100/ProgressStep+1)
	for p := 0; p <= 100; p += ProgressStep {
		steps = append(steps, p)
	}
	return steps
}
