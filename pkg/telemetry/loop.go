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

// Package telemetry runs the steady-state measurement cycle: read the
// sensor, show temperature and humidity screens with a progress bar for
// pacing, and hand the reading to the publisher when one is attached.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meteostation/meteonode/pkg/display"
	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/meteostation/meteonode/pkg/sensors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultStepDelay = 75 * time.Millisecond
	// publishTimeout bounds how long one cycle waits on the broker.
	publishTimeout = time.Second
)

// Display is the part of the renderer the loop draws with.
type Display interface {
	DrawTemperature(celsius float64)
	DrawHumidity(percent float64)
	DrawProgress(progress int)
	SendBuffer() error
}

type Publisher interface {
	Publish(ctx context.Context, r sensors.Reading) error
}

// Observer is told about every reading, including sentinels.
type Observer interface {
	Observe(r sensors.Reading)
}

type Loop struct {
	clock     clockwork.Clock
	sensor    sensors.Reader
	display   Display
	publisher Publisher
	observers []Observer
	stepDelay time.Duration
	cycles    uint64
	mu        syncutil.Mutex
}

type Option func(*Loop)

func WithClock(clock clockwork.Clock) Option {
	return func(l *Loop) { l.clock = clock }
}

func WithStepDelay(d time.Duration) Option {
	return func(l *Loop) { l.stepDelay = d }
}

func WithPublisher(p Publisher) Option {
	return func(l *Loop) { l.publisher = p }
}

func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observers = append(l.observers, o) }
}

func NewLoop(sensor sensors.Reader, disp Display, opts ...Option) *Loop {
	l := &Loop{
		clock:     clockwork.NewRealClock(),
		sensor:    sensor,
		display:   disp,
		stepDelay: DefaultStepDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetPublisher attaches or detaches (nil) the publisher. It takes effect on
// the next cycle.
func (l *Loop) SetPublisher(p Publisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publisher = p
}

func (l *Loop) currentPublisher() Publisher {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.publisher
}

func (l *Loop) Cycles() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cycles
}

// Run repeats RunCycle until ctx is done. Nothing inside a cycle stops it.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().Dur("stepDelay", l.stepDelay).Msg("telemetry: loop started")
	for {
		if err := l.RunCycle(ctx); err != nil {
			log.Info().Uint64("cycles", l.Cycles()).Msg("telemetry: loop stopped")
			return err
		}
	}
}

// RunCycle performs one measurement cycle. The only error it returns is
// ctx's; sensor, display and publish failures are logged and skipped.
func (l *Loop) RunCycle(ctx context.Context) error {
	reading, err := l.sensor.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("telemetry: sensor read failed, using sentinel")
		reading = sensors.Sentinel
	}

	l.display.DrawTemperature(reading.TemperatureC)
	l.flush("temperature")
	if err := l.animate(ctx); err != nil {
		return err
	}

	l.display.DrawHumidity(reading.Humidity)
	l.flush("humidity")

	log.Info().
		Float64("temperature", reading.TemperatureC).
		Float64("humidity", reading.Humidity).
		Msgf("telemetry: %s", reading)

	for _, o := range l.observers {
		o.Observe(reading)
	}

	l.publish(ctx, reading)

	if err := l.animate(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.cycles++
	l.mu.Unlock()
	return nil
}

func (l *Loop) publish(ctx context.Context, reading sensors.Reading) {
	p := l.currentPublisher()
	if p == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.Publish(pubCtx, reading); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("telemetry: publish failed")
	}
}

// animate draws the progress bar over the current screen one step at a
// time with stepDelay after each frame.
func (l *Loop) animate(ctx context.Context) error {
	for _, p := range display.ProgressSteps() {
		l.display.DrawProgress(p)
		l.flush("progress")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(l.stepDelay):
		}
	}
	return nil
}

func (l *Loop) flush(screen string) {
	if err := l.display.SendBuffer(); err != nil {
		log.Warn().Err(err).Str("screen", screen).Msg("telemetry: display flush failed")
	}
}
