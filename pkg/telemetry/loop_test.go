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

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meteostation/meteonode/pkg/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSensor struct {
	err     error
	reading sensors.Reading
}

func (f *fakeSensor) Read(context.Context) (sensors.Reading, error) {
	if f.err != nil {
		return sensors.Sentinel, f.err
	}
	return f.reading, nil
}

type fakeDisplay struct {
	flushErr error
	ops      []string
	mu       sync.Mutex
}

func (f *fakeDisplay) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeDisplay) DrawTemperature(c float64) { f.record(fmt.Sprintf("temp %.2f", c)) }
func (f *fakeDisplay) DrawHumidity(p float64) { f.record(fmt.Sprintf("hum %.2f", p)) }
func (f *fakeDisplay) DrawProgress(p int) { f.record(fmt.Sprintf("bar %d", p)) }

func (f *fakeDisplay) SendBuffer() error {
	f.record("flush")
	return f.flushErr
}

func (f *fakeDisplay) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

type fakePublisher struct {
	err      error
	readings []sensors.Reading
	mu       sync.Mutex
}

func (f *fakePublisher) Publish(_ context.Context, r sensors.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
	return f.err
}

func (f *fakePublisher) published() []sensors.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sensors.Reading(nil), f.readings...)
}

// runCycle drives one cycle on a fake clock, advancing through every
// animation step.
func runCycle(t *testing.T, l *Loop, clock *clockwork.FakeClock) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.RunCycle(ctx) }()

	for range 42 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(l.stepDelay)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		t.Fatal("cycle did not finish")
		return nil
	}
}

func expectedAnimation() []string {
	ops := make([]string, 0, 42)
	for p := 0; p <= 100; p += 5 {
		ops = append(ops, fmt.Sprintf("bar %d", p), "flush")
	}
	return ops
}

func TestRunCycle_Order(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	disp := &fakeDisplay{}
	pub := &fakePublisher{}
	reading := sensors.Reading{TemperatureC: 22.5, Humidity: 48.25}
	l := NewLoop(&fakeSensor{reading: reading}, disp, WithClock(clock), WithPublisher(pub))

	require.NoError(t, runCycle(t, l, clock))

	want := []string{"temp 22.50", "flush"}
	want = append(want, expectedAnimation()...)
	want = append(want, "hum 48.25", "flush")
	want = append(want, expectedAnimation()...)
	assert.Equal(t, want, disp.snapshot())
	assert.Equal(t, []sensors.Reading{reading}, pub.published())
	assert.Equal(t, uint64(1), l.Cycles())
}

type readingLog struct {
	readings []sensors.Reading
	mu       sync.Mutex
}

func (r *readingLog) Observe(reading sensors.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, reading)
}

func TestRunCycle_NotifiesObservers(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	first, second := &readingLog{}, &readingLog{}
	reading := sensors.Reading{TemperatureC: 19, Humidity: 61}
	l := NewLoop(&fakeSensor{reading: reading}, &fakeDisplay{},
		WithClock(clock), WithObserver(first), WithObserver(second))

	require.NoError(t, runCycle(t, l, clock))
	assert.Equal(t, []sensors.Reading{reading}, first.readings)
	assert.Equal(t, []sensors.Reading{reading}, second.readings)
}

func TestRunCycle_SensorFailureUsesSentinel(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	disp := &fakeDisplay{}
	pub := &fakePublisher{}
	l := NewLoop(&fakeSensor{err: errors.New("nack")}, disp, WithClock(clock), WithPublisher(pub))

	require.NoError(t, runCycle(t, l, clock))

	ops := disp.snapshot()
	assert.Equal(t, "temp 0.00", ops[0])
	assert.Contains(t, ops, "hum 0.00")
	assert.Len(t, ops, 4+2*42)
	assert.Equal(t, []sensors.Reading{sensors.Sentinel}, pub.published())
}

func TestRunCycle_FailuresDoNotStopCycle(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	disp := &fakeDisplay{flushErr: errors.New("bus timeout")}
	pub := &fakePublisher{err: errors.New("offline")}
	l := NewLoop(&fakeSensor{reading: sensors.Reading{TemperatureC: 1, Humidity: 2}}, disp,
		WithClock(clock), WithPublisher(pub))

	require.NoError(t, runCycle(t, l, clock))
	require.NoError(t, runCycle(t, l, clock))
	assert.Len(t, pub.published(), 2)
	assert.Equal(t, uint64(2), l.Cycles())
}

func TestRunCycle_WithoutPublisher(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	disp := &fakeDisplay{}
	pub := &fakePublisher{}
	l := NewLoop(&fakeSensor{}, disp, WithClock(clock))

	require.NoError(t, runCycle(t, l, clock))
	l.SetPublisher(pub)
	require.NoError(t, runCycle(t, l, clock))
	l.SetPublisher(nil)
	require.NoError(t, runCycle(t, l, clock))

	assert.Len(t, pub.published(), 1)
}

func TestRun_StopsOnContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := clockwork.NewFakeClock()
	l := NewLoop(&fakeSensor{}, &fakeDisplay{}, WithClock(clock), WithStepDelay(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-waitCtx.Done():
		t.Fatal("loop did not stop")
	}
}
