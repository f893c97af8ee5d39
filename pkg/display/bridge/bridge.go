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

// Package bridge turns display protocol messages into framed I2C
// transactions. A transaction is accumulated in a fixed frame between
// StartTransfer and EndTransfer and written to the bus in one go.
package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"tinygo.org/x/drivers"
)

// FrameCapacity is the largest transaction the bridge accepts: a control
// byte plus one full 128 column page, with headroom.
const FrameCapacity = 132

// schedulerTick is the shortest sleep the bridge will honour for sub
// millisecond delays.
const schedulerTick = time.Millisecond

var (
	ErrFrameOverflow = errors.New("bridge frame overflow")
	ErrUnsupported   = errors.New("unsupported display message")
)

// ResetLine drives a physical reset pin, when the panel has one wired.
type ResetLine interface {
	Set(high bool) error
}

type Option func(*Bridge)

func WithClock(clock clockwork.Clock) Option {
	return func(b *Bridge) { b.clock = clock }
}

func WithResetLine(line ResetLine) Option {
	return func(b *Bridge) { b.reset = line }
}

// Bridge is not safe for concurrent use. One renderer owns it.
type Bridge struct {
	bus      drivers.I2C
	clock    clockwork.Clock
	reset    ResetLine
	addr     uint16
	n        int
	overflow bool
	frame    [FrameCapacity]byte
}

var _ Sink = (*Bridge)(nil)

// New returns a bridge writing to the device at addr. Pass a bus already
// bounded by a transaction timeout.
func New(bus drivers.I2C, addr uint16, opts ...Option) *Bridge {
	b := &Bridge{
		bus:   bus,
		addr:  addr,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dispatch handles one protocol message. Unsupported kinds return
// ErrUnsupported and leave the bridge state untouched.
func (b *Bridge) Dispatch(msg Message) error {
	switch msg.Kind {
	case KindByteInit, KindStartTransfer, KindSendBytes, KindEndTransfer, KindSetDC:
		return b.handleByte(msg)
	case KindGPIOAndDelayInit, KindDelayMilli, KindDelay10Micro, KindDelay100Nano,
		KindDelayI2C, KindGPIOReset:
		return b.handleGPIO(msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, msg.Kind)
	}
}

func (b *Bridge) handleByte(msg Message) error {
	switch msg.Kind {
	case KindByteInit, KindStartTransfer:
		b.resetFrame()
		return nil
	case KindSendBytes:
		if b.overflow {
			return ErrFrameOverflow
		}
		if b.n+len(msg.Data) > FrameCapacity {
			b.overflow = true
			return fmt.Errorf("%w: %d + %d bytes exceeds %d",
				ErrFrameOverflow, b.n, len(msg.Data), FrameCapacity)
		}
		b.n += copy(b.frame[b.n:], msg.Data)
		return nil
	case KindEndTransfer:
		return b.flush()
	case KindSetDC:
		// I2C panels carry D/C in the control byte.
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, msg.Kind)
	}
}

func (b *Bridge) flush() error {
	defer b.resetFrame()

	if b.overflow {
		return fmt.Errorf("transfer dropped: %w", ErrFrameOverflow)
	}
	if b.n == 0 {
		return nil
	}

	err := b.bus.Tx(b.addr, b.frame[:b.n], nil)
	if err != nil {
		log.Error().Err(err).Msgf("i2c master transmission to 0x%02X failed", b.addr)
		return fmt.Errorf("display transfer of %d bytes: %w", b.n, err)
	}
	return nil
}

func (b *Bridge) resetFrame() {
	b.n = 0
	b.overflow = false
}

func (b *Bridge) handleGPIO(msg Message) error {
	switch msg.Kind {
	case KindGPIOAndDelayInit:
		log.Debug().Msg("display: gpio and delay init")
		return nil
	case KindDelayMilli:
		b.sleep(time.Duration(msg.Arg) * time.Millisecond)
		return nil
	case KindDelay10Micro:
		b.sleep(TenMicroDelay(msg.Arg))
		return nil
	case KindDelay100Nano:
		return nil
	case KindDelayI2C:
		b.sleep(time.Duration(I2CDelayUnits(msg.Arg)) * time.Microsecond)
		return nil
	case KindGPIOReset:
		if b.reset == nil {
			return nil
		}
		if err := b.reset.Set(msg.Arg != 0); err != nil {
			return fmt.Errorf("display reset line: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, msg.Kind)
	}
}

func (b *Bridge) sleep(d time.Duration) {
	if d > 0 {
		b.clock.Sleep(d)
	}
}

// Pending returns the bytes accumulated for the open transaction.
func (b *Bridge) Pending() []byte {
	return b.frame[:b.n]
}

// I2CDelayUnits is the bus-speed delay in microseconds: 5 at 100 kHz,
// shrinking with the multiplier. A multiplier of zero counts as one.
func I2CDelayUnits(mult uint8) int {
	if mult == 0 {
		mult = 1
	}
	return 5 / int(mult)
}

// TenMicroDelay converts n ten-microsecond units to a sleep, rounded up to
// the scheduler tick.
func TenMicroDelay(n uint8) time.Duration {
	d := time.Duration(n) * 10 * time.Microsecond
	if d == 0 {
		return 0
	}
	ticks := (d + schedulerTick - 1) / schedulerTick
	return ticks * schedulerTick
}
