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

//go:build linux

package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	nmService             = "org.freedesktop.NetworkManager"
	nmPath                = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmInterface           = "org.freedesktop.NetworkManager"
	nmDeviceInterface     = nmInterface + ".Device"
	nmConnectionInterface = nmInterface + ".Settings.Connection"
	rootObject            = dbus.ObjectPath("/")
)

var ErrNotStation = errors.New("link is not in station mode")

type linkMode uint8

const (
	modeIdle linkMode = iota
	modeStation
	modeAccessPoint
)

// NMLink drives a wireless interface through NetworkManager on the system
// bus.
type NMLink struct {
	conn      *dbus.Conn
	events    chan Event
	signals   chan *dbus.Signal
	stopCh    chan struct{}
	staConfig connSettings
	iface     string
	device    dbus.ObjectPath
	staConn   dbus.ObjectPath
	apConn    dbus.ObjectPath
	apActive  dbus.ObjectPath
	wg        sync.WaitGroup
	mu        syncutil.Mutex
	closeOnce sync.Once
	mode      linkMode
	closed    bool
}

var _ Link = (*NMLink)(nil)

func NewNMLink(ctx context.Context, iface string) (*NMLink, error) {
	// private connection so Close does not tear down a shared one
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system D-Bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("d-bus auth: %w", err)
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("d-bus hello: %w", err)
	}

	var device dbus.ObjectPath
	err = conn.Object(nmService, nmPath).
		CallWithContext(ctx, nmInterface+".GetDeviceByIpIface", 0, iface).
		Store(&device)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("networkmanager has no device %s: %w", iface, err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(device),
		dbus.WithMatchInterface(nmDeviceInterface),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to add match for StateChanged: %w", err)
	}

	l := &NMLink{
		conn:    conn,
		iface:   iface,
		device:  device,
		events:  make(chan Event, 16),
		signals: make(chan *dbus.Signal, 16),
		stopCh:  make(chan struct{}),
	}
	conn.Signal(l.signals)

	l.wg.Add(1)
	go l.listen()

	log.Info().Msgf("network: managing %s via networkmanager (%s)", iface, device)
	return l, nil
}

func (l *NMLink) Events() <-chan Event {
	return l.events
}

func (l *NMLink) listen() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopCh:
			return
		case sig := <-l.signals:
			if sig == nil {
				return
			}
			if sig.Path != l.device || sig.Name != nmDeviceInterface+".StateChanged" {
				continue
			}
			if len(sig.Body) < 3 {
				continue
			}
			newState, ok1 := sig.Body[0].(uint32)
			reason, ok2 := sig.Body[2].(uint32)
			if !ok1 || !ok2 {
				continue
			}

			l.mu.Lock()
			station := l.mode == modeStation
			l.mu.Unlock()
			if !station {
				continue
			}

			if ev, ok := stationEvent(newState, reason); ok {
				l.emit(ev)
			}
		}
	}
}

func (l *NMLink) emit(ev Event) {
	select {
	case l.events <- ev:
	default:
		log.Warn().Msgf("network: dropping link event %s", ev.Kind)
	}
}

func (l *NMLink) call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) *dbus.Call {
	return l.conn.Object(nmService, path).CallWithContext(ctx, method, 0, args...)
}

func (l *NMLink) StartStation(ctx context.Context, creds credentials.Credentials) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return net.ErrClosed
	}

	l.forgetStationLocked(ctx)
	l.staConfig = stationSettings(creds)
	l.mode = modeStation
	log.Info().Msgf("network: station mode for ssid %q", creds.SSID)

	// NetworkManager keeps the radio up; the station is ready immediately.
	l.emit(Event{Kind: EventStationStarted})
	return nil
}

func (l *NMLink) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mode != modeStation {
		return ErrNotStation
	}

	if l.staConn == "" {
		var active dbus.ObjectPath
		err := l.call(ctx, nmPath, nmInterface+".AddAndActivateConnection",
			l.staConfig, l.device, rootObject).Store(&l.staConn, &active)
		if err != nil {
			return fmt.Errorf("add and activate station connection: %w", err)
		}
		return nil
	}

	var active dbus.ObjectPath
	err := l.call(ctx, nmPath, nmInterface+".ActivateConnection",
		l.staConn, l.device, rootObject).Store(&active)
	if err != nil {
		return fmt.Errorf("activate station connection: %w", err)
	}
	return nil
}

func (l *NMLink) StopStation(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mode == modeStation {
		l.mode = modeIdle
	}
	if err := l.call(ctx, l.device, nmDeviceInterface+".Disconnect").Err; err != nil {
		log.Debug().Err(err).Msg("network: device disconnect")
	}
	l.forgetStationLocked(ctx)
	return nil
}

func (l *NMLink) forgetStationLocked(ctx context.Context) {
	if l.staConn == "" {
		return
	}
	if err := l.call(ctx, l.staConn, nmConnectionInterface+".Delete").Err; err != nil {
		log.Warn().Err(err).Msg("network: failed to delete station connection")
	}
	l.staConn = ""
}

func (l *NMLink) StartAccessPoint(ctx context.Context, cfg APConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return net.ErrClosed
	}

	// leave station mode first so its state changes are not reported
	l.mode = modeAccessPoint
	if l.staConn != "" {
		_ = l.call(ctx, l.device, nmDeviceInterface+".Disconnect").Err
		l.forgetStationLocked(ctx)
	}

	err := l.call(ctx, nmPath, nmInterface+".AddAndActivateConnection",
		apSettings(cfg), l.device, rootObject).Store(&l.apConn, &l.apActive)
	if err != nil {
		l.mode = modeIdle
		return fmt.Errorf("start access point %q: %w", cfg.SSID, err)
	}

	// NetworkManager has no per-AP station limit.
	log.Info().Msgf("network: access point %q up on channel %d at %s (client limit %d not enforced)",
		cfg.SSID, cfg.Channel, cfg.Address, cfg.MaxClients)
	return nil
}

func (l *NMLink) StopAccessPoint(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mode == modeAccessPoint {
		l.mode = modeIdle
	}

	var errs []error
	if l.apActive != "" {
		err := l.call(ctx, nmPath, nmInterface+".DeactivateConnection", l.apActive).Err
		if err != nil {
			errs = append(errs, fmt.Errorf("deactivate access point: %w", err))
		}
		l.apActive = ""
	}
	if l.apConn != "" {
		if err := l.call(ctx, l.apConn, nmConnectionInterface+".Delete").Err; err != nil {
			errs = append(errs, fmt.Errorf("delete access point connection: %w", err))
		}
		l.apConn = ""
	}
	return errors.Join(errs...)
}

func (l *NMLink) HardwareAddr() (net.HardwareAddr, error) {
	ifi, err := net.InterfaceByName(l.iface)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %s: %w", l.iface, err)
	}
	return ifi.HardwareAddr, nil
}

func (l *NMLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		close(l.stopCh)
		l.conn.RemoveSignal(l.signals)
		l.wg.Wait()
		err = l.conn.Close()
		close(l.events)
	})
	if err != nil {
		return fmt.Errorf("failed to close d-bus connection: %w", err)
	}
	return nil
}
