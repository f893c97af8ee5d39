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

// Package provision brings the node online at boot. It tries stored
// credentials first and falls back to an access point with a
// configuration portal when there are none or they do not connect.
package provision

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/meteostation/meteonode/pkg/network"
	"github.com/rs/zerolog/log"
)

const teardownTimeout = 2 * time.Second

type CredentialStore interface {
	Load() (credentials.Credentials, bool, error)
}

type Portal interface {
	Start() error
	Stop(ctx context.Context) error
	Running() bool
	Saved() <-chan struct{}
	Skipped() <-chan struct{}
}

// Announcer advertises the portal on the local network.
type Announcer interface {
	Start() error
	Stop()
}

type StatusDisplay interface {
	DrawStatus(line1, line2 string) error
}

type Restarter interface {
	Restart() error
}

type Settings struct {
	APPrefix       string
	APAddress      netip.Prefix
	ConnectTimeout time.Duration
	RestartDelay   time.Duration
	APChannel      int
	APMaxClients   int
}

// Deps are the collaborators the machine drives. Connected is raised by
// the network supervisor while the station holds an address. Announce
// and Display may be nil.
type Deps struct {
	Store     CredentialStore
	Link      network.Link
	Connected *syncutil.Event
	Portal    Portal
	Announce  func(instance string) Announcer
	Display   StatusDisplay
	Restarter Restarter
	Clock     clockwork.Clock
}

// PortalState is a snapshot of what the portal session holds.
type PortalState struct {
	APUp     bool
	ServerUp bool
	Skipped  bool
}

type Machine struct {
	deps      Deps
	announcer Announcer
	settings  Settings
	path      []State
	apUp      bool
	skipped   bool
	mu        syncutil.Mutex
}

func NewMachine(deps Deps, settings Settings) *Machine {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Connected == nil {
		deps.Connected = syncutil.NewEvent()
	}
	return &Machine{deps: deps, settings: settings}
}

func (m *Machine) enter(s State) {
	m.mu.Lock()
	m.path = append(m.path, s)
	m.mu.Unlock()
	log.Debug().Msgf("provision: entering %s", s)
}

func (m *Machine) result(final State, outcome Outcome) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Result{
		Path:    append([]State(nil), m.path...),
		Final:   final,
		Outcome: outcome,
	}
}

func (m *Machine) PortalState() PortalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PortalState{
		APUp:     m.apUp,
		ServerUp: m.deps.Portal.Running(),
		Skipped:  m.skipped,
	}
}

func (m *Machine) status(line1, line2 string) {
	if m.deps.Display == nil {
		return
	}
	if err := m.deps.Display.DrawStatus(line1, line2); err != nil {
		log.Debug().Err(err).Msg("provision: status screen not shown")
	}
}

// Run drives the machine from Start until a terminal state. On the save
// path it asks the restarter to restart the process; if that returns,
// the Restart result is returned with the restarter's error.
func (m *Machine) Run(ctx context.Context) (Result, error) {
	m.enter(StateStart)
	m.status("Starting...", "")

	m.enter(StateLoadCredentials)
	creds, ok := m.loadCredentials()

	if ok {
		m.enter(StateAttemptConnect)
		if m.attemptConnect(ctx, creds) == OutcomeConnected {
			m.enter(StateReady)
			m.status("Wi-Fi connected", creds.SSID)
			return m.result(StateReady, OutcomeConnected), nil
		}
		if err := ctx.Err(); err != nil {
			return m.result(StateAttemptConnect, OutcomeNone), err
		}
	}

	m.enter(StateEnterPortal)
	outcome, err := m.enterPortal(ctx)
	if err != nil {
		return m.result(StateEnterPortal, OutcomeNone), err
	}

	if outcome == OutcomeBypassed {
		m.enter(StateReadyWithoutNetwork)
		m.status("Bypass: No Wi-Fi/MQTT", "")
		return m.result(StateReadyWithoutNetwork, OutcomeBypassed), nil
	}

	m.enter(StateRestart)
	m.status("Saved", "Restarting...")
	res := m.result(StateRestart, OutcomeSaved)

	// Lets the save response reach the browser.
	select {
	case <-ctx.Done():
		return res, ctx.Err()
	case <-m.deps.Clock.After(m.settings.RestartDelay):
	}

	if err := m.deps.Restarter.Restart(); err != nil {
		return res, fmt.Errorf("restart after provisioning: %w", err)
	}
	return res, nil
}

// loadCredentials treats a storage failure as no credentials.
func (m *Machine) loadCredentials() (credentials.Credentials, bool) {
	creds, ok, err := m.deps.Store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("provision: credential load failed, treating as absent")
		return credentials.Credentials{}, false
	}
	if !ok {
		log.Info().Msg("provision: no stored credentials")
	}
	return creds, ok
}

func (m *Machine) attemptConnect(ctx context.Context, creds credentials.Credentials) Outcome {
	log.Info().Str("ssid", creds.SSID).Msg("provision: connecting to stored network")
	m.status("Wi-Fi connecting...", creds.SSID)

	if err := m.deps.Link.StartStation(ctx, creds); err != nil {
		log.Error().Err(err).Msg("provision: failed to start station")
		return OutcomeTimedOut
	}

	select {
	case <-m.deps.Connected.Wait():
		log.Info().Str("ssid", creds.SSID).Msg("provision: connected")
		return OutcomeConnected
	case <-m.deps.Clock.After(m.settings.ConnectTimeout):
		log.Warn().
			Dur("timeout", m.settings.ConnectTimeout).
			Msg("provision: no address in time, falling back to portal")
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := m.deps.Link.StopStation(stopCtx); err != nil {
		log.Warn().Err(err).Msg("provision: failed to stop station")
	}
	return OutcomeTimedOut
}

func (m *Machine) enterPortal(ctx context.Context) (Outcome, error) {
	hw, err := m.deps.Link.HardwareAddr()
	if err != nil {
		log.Warn().Err(err).Msg("provision: hardware address unavailable")
	}
	name := network.APName(m.settings.APPrefix, hw)
	m.status("Open portal", "Connect to AP")

	err = m.deps.Link.StartAccessPoint(ctx, network.APConfig{
		SSID:       name,
		Address:    m.settings.APAddress,
		Channel:    m.settings.APChannel,
		MaxClients: m.settings.APMaxClients,
	})
	if err != nil {
		m.status("Portal failed", "")
		return OutcomeNone, fmt.Errorf("start access point %s: %w", name, err)
	}
	m.mu.Lock()
	m.apUp = true
	m.mu.Unlock()

	if err := m.deps.Portal.Start(); err != nil {
		m.teardown(ctx)
		m.status("Portal failed", "")
		return OutcomeNone, fmt.Errorf("start portal: %w", err)
	}

	if m.deps.Announce != nil {
		if a := m.deps.Announce(name); a != nil {
			m.announcer = a
			if err := a.Start(); err != nil {
				log.Warn().Err(err).Msg("provision: portal will not be advertised")
			}
		}
	}

	log.Info().
		Str("ssid", name).
		Str("gateway", m.settings.APAddress.Addr().String()).
		Msg("provision: configuration portal up")
	m.status("SSID: "+name, "http://"+m.settings.APAddress.Addr().String())

	select {
	case <-m.deps.Portal.Skipped():
		m.mu.Lock()
		m.skipped = true
		m.mu.Unlock()
		m.teardown(ctx)
		return OutcomeBypassed, nil
	case <-m.deps.Portal.Saved():
		// Handles stay up; the process is about to restart.
		return OutcomeSaved, nil
	case <-ctx.Done():
		m.teardown(ctx)
		return OutcomeNone, ctx.Err()
	}
}

// teardown releases the portal session newest first: announcement, HTTP
// server, access point.
func (m *Machine) teardown(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	if m.announcer != nil {
		m.announcer.Stop()
		m.announcer = nil
	}

	var errs []error
	if err := m.deps.Portal.Stop(stopCtx); err != nil {
		errs = append(errs, err)
	}
	if err := m.deps.Link.StopAccessPoint(stopCtx); err != nil {
		errs = append(errs, err)
	}

	m.mu.Lock()
	m.apUp = false
	m.mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("provision: portal teardown incomplete")
	}
}
