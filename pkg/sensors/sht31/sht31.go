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

// Package sht31 drives a Sensirion SHT31 in single-shot mode.
package sht31

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meteostation/meteonode/pkg/sensors"
	"tinygo.org/x/drivers"
)

const (
	DefaultAddress = 0x44

	// single shot, high repeatability, no clock stretching
	cmdMeasureHigh = 0x2400

	conversionTime = 30 * time.Millisecond
	crcPolynomial  = 0x31
)

var ErrCRC = errors.New("sht31 crc mismatch")

type Device struct {
	bus       drivers.I2C
	clock     clockwork.Clock
	addr      uint16
	verifyCRC bool
}

var _ sensors.Reader = (*Device)(nil)

type Option func(*Device)

func WithAddress(addr uint16) Option {
	return func(d *Device) { d.addr = addr }
}

func WithClock(clock clockwork.Clock) Option {
	return func(d *Device) { d.clock = clock }
}

// WithCRC enables checksum verification of both measurement words.
func WithCRC(enabled bool) Option {
	return func(d *Device) { d.verifyCRC = enabled }
}

func New(bus drivers.I2C, opts ...Option) *Device {
	d := &Device{
		bus:   bus,
		clock: clockwork.NewRealClock(),
		addr:  DefaultAddress,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Read triggers a measurement, waits for the conversion and reads it back.
func (d *Device) Read(ctx context.Context) (sensors.Reading, error) {
	cmd := []byte{cmdMeasureHigh >> 8, cmdMeasureHigh & 0xFF}
	if err := d.bus.Tx(d.addr, cmd, nil); err != nil {
		return sensors.Sentinel, fmt.Errorf("sht31 measure command: %w", err)
	}

	select {
	case <-ctx.Done():
		return sensors.Sentinel, ctx.Err()
	case <-d.clock.After(conversionTime):
	}

	var buf [6]byte
	if err := d.bus.Tx(d.addr, nil, buf[:]); err != nil {
		return sensors.Sentinel, fmt.Errorf("sht31 read: %w", err)
	}

	if d.verifyCRC {
		if got := crc8(buf[0:2]); got != buf[2] {
			return sensors.Sentinel, fmt.Errorf("%w: temperature %02x != %02x", ErrCRC, got, buf[2])
		}
		if got := crc8(buf[3:5]); got != buf[5] {
			return sensors.Sentinel, fmt.Errorf("%w: humidity %02x != %02x", ErrCRC, got, buf[5])
		}
	}

	rawT := uint16(buf[0])<<8 | uint16(buf[1])
	rawRH := uint16(buf[3])<<8 | uint16(buf[4])
	return Convert(rawT, rawRH), nil
}

// Convert applies the datasheet transfer functions to raw words.
func Convert(rawT, rawRH uint16) sensors.Reading {
	return sensors.Reading{
		TemperatureC: -45 + 175*float64(rawT)/65535,
		Humidity:     100 * float64(rawRH) / 65535,
	}
}

func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
