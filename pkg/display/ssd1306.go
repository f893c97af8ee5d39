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
	"errors"
	"fmt"

	"github.com/meteostation/meteonode/pkg/display/bridge"
)

const (
	controlCommand byte = 0x00
	controlData    byte = 0x40
)

// 128x64 panel, internal charge pump, page addressing.
var initSequence = []byte{
	0xAE,       // display off
	0xD5, 0x80, // clock divide
	0xA8, 0x3F, // multiplex 64
	0xD3, 0x00, // display offset
	0x40,       // start line 0
	0x8D, 0x14, // charge pump on
	0x20, 0x02, // page addressing
	0xA1,       // segment remap
	0xC8,       // com scan descending
	0xDA, 0x12, // com pins
	0x81, 0xCF, // contrast
	0xD9, 0xF1, // precharge
	0xDB, 0x40, // vcomh
	0x2E,       // scroll off
	0xA4,       // follow RAM
	0xA6,       // not inverted
}

// Init resets and configures the panel, then turns it on.
func (r *Renderer) Init() error {
	steps := []bridge.Message{
		bridge.GPIOAndDelayInit(),
		bridge.ByteInit(),
		bridge.DelayI2C(r.busMult),
		bridge.GPIOReset(1),
		bridge.DelayMilli(1),
		bridge.GPIOReset(0),
		bridge.DelayMilli(10),
		bridge.GPIOReset(1),
		bridge.DelayMilli(20),
	}
	for _, msg := range steps {
		if err := r.sink.Dispatch(msg); err != nil {
			return fmt.Errorf("display init %s: %w", msg.Kind, err)
		}
	}

	if err := r.transfer(controlCommand, initSequence); err != nil {
		return fmt.Errorf("display init sequence: %w", err)
	}
	return r.SetPowerSave(false)
}

func (r *Renderer) SetPowerSave(on bool) error {
	cmd := byte(0xAF)
	if on {
		cmd = 0xAE
	}
	return r.transfer(controlCommand, []byte{cmd})
}

// SendBuffer writes the framebuffer to the panel one page at a time. The
// first failing page aborts the update.
func (r *Renderer) SendBuffer() error {
	for p := range pages {
		setPage := []byte{0xB0 | byte(p), 0x00, 0x10}
		if err := r.transfer(controlCommand, setPage); err != nil {
			return fmt.Errorf("page %d address: %w", p, err)
		}
		r.packPage(p)
		if err := r.transfer(controlData, r.page[:]); err != nil {
			return fmt.Errorf("page %d data: %w", p, err)
		}
	}
	return nil
}

func (r *Renderer) packPage(p int) {
	for x := range Width {
		var b byte
		for bit := range 8 {
			if r.fb.BitAt(x, p*8+bit) {
				b |= 1 << bit
			}
		}
		r.page[x] = b
	}
}

// transfer frames one I2C write: control byte then payload. EndTransfer
// always runs so the bridge is left clean even after a rejected send.
func (r *Renderer) transfer(control byte, payload []byte) error {
	dc := uint8(0)
	if control == controlData {
		dc = 1
	}
	var errs []error
	for _, msg := range []bridge.Message{
		bridge.SetDC(dc),
		bridge.StartTransfer(),
		bridge.SendBytes([]byte{control}),
		bridge.SendBytes(payload),
	} {
		if err := r.sink.Dispatch(msg); err != nil {
			errs = append(errs, err)
			break
		}
	}
	if err := r.sink.Dispatch(bridge.EndTransfer()); err != nil && len(errs) == 0 {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
