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

// Package display draws the node's screens into a 1-bit framebuffer and
// pushes it to an SSD1306 panel as bridge messages.
package display

import (
	"image"

	"github.com/meteostation/meteonode/pkg/display/bridge"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	Width  = 128
	Height = 64
	pages  = Height / 8
)

// Renderer owns the framebuffer and the message sink. Drawing only touches
// the framebuffer; SendBuffer is the single point that talks to the panel.
type Renderer struct {
	sink    bridge.Sink
	fb      *image1bit.VerticalLSB
	face    font.Face
	page    [Width]byte
	busMult uint8
}

func NewRenderer(sink bridge.Sink, busMult uint8) *Renderer {
	return &Renderer{
		sink:    sink,
		fb:      image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height)),
		face:    basicfont.Face7x13,
		busMult: busMult,
	}
}

// Frame exposes the framebuffer for inspection.
func (r *Renderer) Frame() *image1bit.VerticalLSB {
	return r.fb
}

func (r *Renderer) ClearBuffer() {
	clear(r.fb.Pix)
}

func (r *Renderer) set(x, y int) {
	if image.Pt(x, y).In(r.fb.Rect) {
		r.fb.SetBit(x, y, image1bit.On)
	}
}

// DrawStr draws s with its baseline at y.
func (r *Renderer) DrawStr(x, y int, s string) {
	d := font.Drawer{
		Dst:  r.fb,
		Src:  image.NewUniform(image1bit.On),
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// DrawFrame draws the outline of a w by h rectangle.
func (r *Renderer) DrawFrame(x, y, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	for i := x; i < x+w; i++ {
		r.set(i, y)
		r.set(i, y+h-1)
	}
	for j := y; j < y+h; j++ {
		r.set(x, j)
		r.set(x+w-1, j)
	}
}

// DrawBox fills a w by h rectangle.
func (r *Renderer) DrawBox(x, y, w, h int) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			r.set(i, j)
		}
	}
}

// DrawCircle draws a circle outline using the midpoint algorithm.
func (r *Renderer) DrawCircle(x0, y0, rad int) {
	x, y := rad, 0
	e := 1 - rad
	for x >= y {
		for _, p := range [...][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			r.set(x0+p[0], y0+p[1])
		}
		y++
		if e < 0 {
			e += 2*y + 1
		} else {
			x--
			e += 2*(y-x) + 1
		}
	}
}

// DrawXBM draws the set bits of an XBM bitmap. Clear bits are transparent.
func (r *Renderer) DrawXBM(x, y, w, h int, bits []byte) {
	stride := (w + 7) / 8
	for j := range h {
		for i := range w {
			idx := j*stride + i/8
			if idx >= len(bits) {
				return
			}
			if bits[idx]&(1<<(i%8)) != 0 {
				r.set(x+i, y+j)
			}
		}
	}
}

// Pixel reports whether the pixel at x, y is lit.
func (r *Renderer) Pixel(x, y int) bool {
	return bool(r.fb.BitAt(x, y))
}
