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

// Package i2cbus provides the shared I2C bus used by the display and the
// sensor. Every bus speaks the tinygo driver transaction shape, which periph
// host buses already satisfy.
package i2cbus

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"tinygo.org/x/drivers"
)

var ErrTimeout = errors.New("i2c transaction timed out")

// TimedBus serializes transactions on an underlying bus and bounds each one
// with a deadline. A transaction that misses its deadline keeps the bus
// reserved until the hardware call actually returns, so a late completion
// can never interleave with the next caller.
type TimedBus struct {
	bus     drivers.I2C
	clock   clockwork.Clock
	sem     chan struct{}
	timeout time.Duration
}

var _ drivers.I2C = (*TimedBus)(nil)

func NewTimedBus(clock clockwork.Clock, bus drivers.I2C, timeout time.Duration) *TimedBus {
	return &TimedBus{
		bus:     bus,
		clock:   clock,
		sem:     make(chan struct{}, 1),
		timeout: timeout,
	}
}

// Tx writes w to addr then reads len(r) bytes back. r is only filled in
// when the whole transaction succeeds.
func (b *TimedBus) Tx(addr uint16, w, r []byte) error {
	timer := b.clock.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
	case <-timer.Chan():
		return fmt.Errorf("%w: bus busy (addr 0x%02X)", ErrTimeout, addr)
	}

	wbuf := bytes.Clone(w)
	var rbuf []byte
	if len(r) > 0 {
		rbuf = make([]byte, len(r))
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-b.sem }()
		done <- b.bus.Tx(addr, wbuf, rbuf)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("i2c tx to 0x%02X: %w", addr, err)
		}
		copy(r, rbuf)
		return nil
	case <-timer.Chan():
		return fmt.Errorf("%w: addr 0x%02X after %s", ErrTimeout, addr, b.timeout)
	}
}
