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

import (
	"bytes"
	"errors"
	"testing"

	"github.com/meteostation/meteonode/pkg/display/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type busWrite struct {
	data []byte
	addr uint16
}

type fakeBus struct {
	err    error
	writes []busWrite
	calls  int
}

func (f *fakeBus) Tx(addr uint16, w, _ []byte) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, busWrite{addr: addr, data: bytes.Clone(w)})
	return nil
}

type recordingSink struct {
	msgs []bridge.Message
}

func (s *recordingSink) Dispatch(msg bridge.Message) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

func newTestRenderer() (*Renderer, *fakeBus) {
	bus := &fakeBus{}
	return NewRenderer(bridge.New(bus, 0x3C), 4), bus
}

func countLit(r *Renderer, x0, y0, x1, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if r.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

func TestSendBuffer_WritesEightPages(t *testing.T) {
	t.Parallel()

	r, bus := newTestRenderer()
	r.DrawBox(0, 0, 1, 1)
	r.DrawBox(127, 63, 1, 1)

	require.NoError(t, r.SendBuffer())
	require.Len(t, bus.writes, 2*pages)

	for p := range pages {
		cmd := bus.writes[2*p]
		data := bus.writes[2*p+1]
		assert.Equal(t, uint16(0x3C), cmd.addr)
		assert.Equal(t, []byte{controlCommand, 0xB0 | byte(p), 0x00, 0x10}, cmd.data)
		require.Len(t, data.data, 1+Width)
		assert.Equal(t, controlData, data.data[0])
	}

	assert.Equal(t, byte(0x01), bus.writes[1].data[1], "top-left pixel is bit 0 of page 0")
	assert.Equal(t, byte(0x80), bus.writes[2*pages-1].data[Width], "bottom-right pixel is bit 7 of page 7")
}

func TestSendBuffer_AbortsOnBusFailure(t *testing.T) {
	t.Parallel()

	r, bus := newTestRenderer()
	bus.err = errors.New("no ack")

	err := r.SendBuffer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 0")
	assert.Equal(t, 1, bus.calls)
}

func TestTransfer_MessageOrder(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	r := NewRenderer(sink, 1)
	require.NoError(t, r.SetPowerSave(false))

	kinds := make([]bridge.Kind, 0, len(sink.msgs))
	for _, m := range sink.msgs {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []bridge.Kind{
		bridge.KindSetDC,
		bridge.KindStartTransfer,
		bridge.KindSendBytes,
		bridge.KindSendBytes,
		bridge.KindEndTransfer,
	}, kinds)
	assert.Equal(t, []byte{0xAF}, sink.msgs[3].Data)
}

func TestInit_SendsSequenceThenPowersOn(t *testing.T) {
	t.Parallel()

	r, bus := newTestRenderer()
	require.NoError(t, r.Init())

	require.Len(t, bus.writes, 2)
	assert.Equal(t, append([]byte{controlCommand}, initSequence...), bus.writes[0].data)
	assert.Equal(t, []byte{controlCommand, 0xAF}, bus.writes[1].data)
}

func TestDrawProgress_FillWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		progress int
		lastLit  int
	}{
		{name: "empty", progress: 0, lastLit: barX},
		{name: "half", progress: 50, lastLit: barX + 53},
		{name: "full", progress: 100, lastLit: barX + 106},
		{name: "clamped above", progress: 150, lastLit: barX + 106},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, _ := newTestRenderer()
			r.DrawProgress(tt.progress)

			row := barY + 1
			for x := barX + 1; x < barX+barW-1; x++ {
				assert.Equal(t, x <= tt.lastLit, r.Pixel(x, row), "x=%d", x)
			}
			// frame edges always drawn
			assert.True(t, r.Pixel(barX, row))
			assert.True(t, r.Pixel(barX+barW-1, row))
			assert.True(t, r.Pixel(barX+barW/2, barY))
		})
	}
}

func TestProgressSteps(t *testing.T) {
	t.Parallel()

	steps := ProgressSteps()
	require.Len(t, steps, 21)
	assert.Equal(t, 0, steps[0])
	assert.Equal(t, 5, steps[1])
	assert.Equal(t, 100, steps[20])
}

func TestDrawCircle(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer()
	r.DrawCircle(59, 25, 2)
	assert.True(t, r.Pixel(61, 25))
	assert.True(t, r.Pixel(57, 25))
	assert.True(t, r.Pixel(59, 23))
	assert.True(t, r.Pixel(59, 27))
	assert.False(t, r.Pixel(59, 25), "outline only")
}

func TestDrawXBM_ClearBitsAreTransparent(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer()
	r.DrawBox(0, 0, 8, 1)
	// 8x2: row 0 only bit 0, row 1 only bit 7
	r.DrawXBM(0, 0, 8, 2, []byte{0x01, 0x80})

	assert.Equal(t, 8, countLit(r, 0, 0, 8, 1), "existing pixels survive")
	assert.True(t, r.Pixel(7, 1))
	assert.False(t, r.Pixel(0, 1))
}

func TestDrawXBM_ShortBitmapStops(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer()
	r.DrawXBM(0, 0, 16, 16, []byte{0xFF})
	assert.Equal(t, 8, countLit(r, 0, 0, Width, Height))
}

func TestScreens(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer()
	r.DrawTemperature(21.5)
	assert.Positive(t, countLit(r, 80, 8, 128, 56), "thermometer icon")
	assert.Positive(t, countLit(r, 15, 20, 60, 39), "temperature text")
	assert.True(t, r.Pixel(61, 25), "degree circle")

	r.DrawHumidity(48.2)
	assert.Positive(t, countLit(r, 80, 8, 128, 56), "humidity icon")
	assert.False(t, r.Pixel(61, 25), "cleared before drawing")
}

func TestDrawStatus_Flushes(t *testing.T) {
	t.Parallel()

	r, bus := newTestRenderer()
	require.NoError(t, r.DrawStatus("Wi-Fi connecting...", ""))
	assert.Len(t, bus.writes, 2*pages)
	assert.Positive(t, countLit(r, 0, 0, Width, 16))
	assert.Zero(t, countLit(r, 0, 17, Width, Height))
}
