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

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meteostation/meteonode/pkg/api"
	"github.com/meteostation/meteonode/pkg/config"
	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/meteostation/meteonode/pkg/helpers"
	"github.com/meteostation/meteonode/pkg/network"
	"github.com/meteostation/meteonode/pkg/provision"
	"github.com/meteostation/meteonode/pkg/sensors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	displayAddr = 0x3C
	sensorAddr  = 0x44
)

// nodeBus answers SHT31 reads with 25 C / 50 %RH and counts display writes.
type nodeBus struct {
	displayWrites int
	sensorReads   int
	mu            sync.Mutex
}

func (b *nodeBus) Tx(addr uint16, _, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch addr {
	case displayAddr:
		b.displayWrites++
	case sensorAddr:
		if len(r) == 6 {
			b.sensorReads++
			copy(r, []byte{0x66, 0x66, 0x93, 0x80, 0x00, 0xA2})
		}
	default:
		return errors.New("nack")
	}
	return nil
}

func (b *nodeBus) counts() (display, sensor int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.displayWrites, b.sensorReads
}

// nodeLink behaves like a station that associates on the first attempt.
type nodeLink struct {
	apErr  error
	events chan network.Event
}

func newNodeLink() *nodeLink {
	return &nodeLink{events: make(chan network.Event, 8)}
}

func (l *nodeLink) StartStation(context.Context, credentials.Credentials) error {
	l.events <- network.Event{Kind: network.EventStationStarted}
	return nil
}

func (l *nodeLink) Connect(context.Context) error {
	l.events <- network.Event{Kind: network.EventGotIP}
	return nil
}

func (*nodeLink) StopStation(context.Context) error { return nil }

func (l *nodeLink) StartAccessPoint(context.Context, network.APConfig) error { return l.apErr }

func (*nodeLink) StopAccessPoint(context.Context) error { return nil }

func (*nodeLink) HardwareAddr() (net.HardwareAddr, error) {
	return net.HardwareAddr{0, 1, 2, 3, 4, 5}, nil
}

func (l *nodeLink) Events() <-chan network.Event { return l.events }

func (*nodeLink) Close() error { return nil }

type recordingPublisher struct {
	readings []sensors.Reading
	started  bool
	stopped  bool
	mu       sync.Mutex
}

func (p *recordingPublisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
	return nil
}

func (p *recordingPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func (p *recordingPublisher) Publish(_ context.Context, r sensors.Reading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readings = append(p.readings, r)
	return nil
}

func (p *recordingPublisher) published() []sensors.Reading {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sensors.Reading(nil), p.readings...)
}

type countingRestarter struct {
	hooks    int
	restarts int
	mu       sync.Mutex
}

func (r *countingRestarter) OnRestart(func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks++
}

func (r *countingRestarter) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restarts++
	return nil
}

func (r *countingRestarter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restarts
}

func newTestConfig(t *testing.T) *config.Instance {
	t.Helper()
	defaults := config.BaseDefaults
	defaults.Telemetry.StepDelayMs = 1
	defaults.Network.ConnectTimeoutMs = 2000
	cfg, err := config.NewConfig(afero.NewMemMapFs(), "/cfg", defaults)
	require.NoError(t, err)
	return cfg
}

type testNode struct {
	bus       *nodeBus
	link      *nodeLink
	publisher *recordingPublisher
	restarter *countingRestarter
	closed    int
	apiPort   int
	dirs      helpers.Dirs
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	dir := t.TempDir()
	return &testNode{
		bus:       &nodeBus{},
		link:      newNodeLink(),
		publisher: &recordingPublisher{},
		restarter: &countingRestarter{},
		dirs:      helpers.Dirs{Config: dir, Data: filepath.Join(dir, "data"), Temp: dir},
	}
}

func (n *testNode) start(t *testing.T, cfg *config.Instance) (func() error, <-chan struct{}) {
	t.Helper()
	hw := &Hardware{
		Bus:  n.bus,
		Link: n.link,
		Close: func() error {
			n.closed++
			return nil
		},
	}
	stop, done, err := start(cfg, n.dirs, hw, env{
		clock:        clockwork.NewRealClock(),
		restarter:    n.restarter,
		failureDelay: time.Millisecond,
		newPublisher: func(string, string, byte) Publisher { return n.publisher },
		newAnnouncer: func(string, string, int) provision.Announcer { return nil },
		apiAddr: func(int) string {
			return fmt.Sprintf("127.0.0.1:%d", n.apiPort)
		},
	})
	require.NoError(t, err)
	return stop, done
}

func TestStart_OnlineBootPublishesReadings(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	node := newTestNode(t)
	store, err := credentials.Open(node.dirs.CredentialsPath())
	require.NoError(t, err)
	require.NoError(t, store.Save(credentials.Credentials{SSID: "garden", Password: "hunter22"}))
	require.NoError(t, store.Close())

	stop, done := node.start(t, newTestConfig(t))

	require.Eventually(t, func() bool {
		return len(node.publisher.published()) > 0
	}, 10*time.Second, 10*time.Millisecond)

	got := node.publisher.published()[0]
	assert.InDelta(t, 25.0, got.TemperatureC, 0.01)
	assert.InDelta(t, 50.0, got.Humidity, 0.01)

	displayWrites, sensorReads := node.bus.counts()
	assert.Positive(t, displayWrites)
	assert.Positive(t, sensorReads)

	require.NoError(t, stop())
	<-done
	assert.True(t, node.publisher.stopped)
	assert.Equal(t, 1, node.closed)
	assert.Zero(t, node.restarter.count())
}

func TestStart_AccessPointFailureRestarts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	node := newTestNode(t)
	node.link.apErr = errors.New("device busy")

	stop, done := node.start(t, newTestConfig(t))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("boot goroutine did not finish")
	}
	assert.Equal(t, 1, node.restarter.count())
	assert.Empty(t, node.publisher.published())
	assert.False(t, node.publisher.started)

	require.NoError(t, stop())
}

func TestStart_MQTTDisabled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	node := newTestNode(t)
	store, err := credentials.Open(node.dirs.CredentialsPath())
	require.NoError(t, err)
	require.NoError(t, store.Save(credentials.Credentials{SSID: "garden"}))
	require.NoError(t, store.Close())

	disabled := false
	defaults := config.BaseDefaults
	defaults.Telemetry.StepDelayMs = 1
	defaults.MQTT.Enabled = &disabled
	cfg, err := config.NewConfig(afero.NewMemMapFs(), "/cfg", defaults)
	require.NoError(t, err)

	stop, done := node.start(t, cfg)

	require.Eventually(t, func() bool {
		_, reads := node.bus.counts()
		return reads >= 2
	}, 10*time.Second, 10*time.Millisecond)

	require.NoError(t, stop())
	<-done
	assert.False(t, node.publisher.started)
}

func unusedPort(t *testing.T) int {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestStart_StatusAPIReportsReadings(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	node := newTestNode(t)
	node.apiPort = unusedPort(t)
	store, err := credentials.Open(node.dirs.CredentialsPath())
	require.NoError(t, err)
	require.NoError(t, store.Save(credentials.Credentials{SSID: "garden", Password: "hunter22"}))
	require.NoError(t, store.Close())

	stop, done := node.start(t, newTestConfig(t))

	statusURL := fmt.Sprintf("http://127.0.0.1:%d/api/status", node.apiPort)
	var st api.Status
	require.Eventually(t, func() bool {
		req, reqErr := http.NewRequestWithContext(context.Background(), http.MethodGet, statusURL, http.NoBody)
		if reqErr != nil {
			return false
		}
		resp, getErr := http.DefaultClient.Do(req)
		if getErr != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		st = api.Status{}
		if json.NewDecoder(resp.Body).Decode(&st) != nil {
			return false
		}
		return st.Reading != nil
	}, 10*time.Second, 20*time.Millisecond)

	assert.True(t, st.Online)
	assert.Equal(t, "25.00", st.Reading.TempC.String())
	assert.Equal(t, "50.00", st.Reading.Hum.String())

	http.DefaultClient.CloseIdleConnections()
	require.NoError(t, stop())
	<-done
}
