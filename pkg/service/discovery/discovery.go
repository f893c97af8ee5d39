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

// Package discovery advertises the configuration portal over mDNS so a
// phone joined to the provisioning access point can find it by name.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/meteostation/meteonode/pkg/config"
	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const ServiceType = "_http._tcp"

const (
	retryInterval    = 2 * time.Second
	maxRetryDuration = time.Minute
)

// shutdowner is the part of a zeroconf server the service keeps.
type shutdowner interface {
	Shutdown()
}

type registerFunc func(instance, service string, port int, txt []string, ifaces []net.Interface) (shutdowner, error)

func zeroconfRegister(
	instance, service string,
	port int,
	txt []string,
	ifaces []net.Interface,
) (shutdowner, error) {
	server, err := zeroconf.Register(instance, service, "local.", port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("zeroconf register: %w", err)
	}
	return server, nil
}

type interfaceFunc func(name string) (*net.Interface, error)

// Service announces one portal instance on one interface. It is restarted
// for every portal session.
type Service struct {
	server     shutdowner
	clock      clockwork.Clock
	register   registerFunc
	lookup     interfaceFunc
	cancelFunc context.CancelFunc
	iface      string
	instance   string
	port       int
	stopped    bool
	mu         syncutil.Mutex
}

func New(iface, instance string, port int) *Service {
	return &Service{
		clock:    clockwork.NewRealClock(),
		register: zeroconfRegister,
		lookup:   net.InterfaceByName,
		iface:    iface,
		instance: instance,
		port:     port,
	}
}

// Start registers the service. The access point interface may still be
// coming up, so a failed first attempt keeps retrying in the background.
func (s *Service) Start() error {
	if s.tryRegister() {
		return nil
	}

	log.Info().
		Dur("retryInterval", retryInterval).
		Str("iface", s.iface).
		Msg("mdns: registration failed, retrying while the access point comes up")

	ctx, cancel := context.WithTimeout(context.Background(), maxRetryDuration)
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancelFunc = cancel
	s.mu.Unlock()

	go s.retryLoop(ctx)
	return nil
}

func (s *Service) tryRegister() bool {
	ifi, err := s.lookup(s.iface)
	if err != nil {
		log.Debug().Err(err).Msgf("mdns: interface %s unavailable", s.iface)
		return false
	}
	if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
		log.Debug().Msgf("mdns: interface %s not ready", s.iface)
		return false
	}

	txt := []string{
		"path=/",
		"app=" + config.AppName,
	}

	server, err := s.register(s.instance, ServiceType, s.port, txt, []net.Interface{*ifi})
	if err != nil {
		log.Debug().Err(err).Msg("mdns: registration attempt failed")
		return false
	}

	s.mu.Lock()
	// Stop may have run while registering.
	if s.stopped {
		s.mu.Unlock()
		server.Shutdown()
		return false
	}
	s.server = server
	s.mu.Unlock()

	log.Info().
		Str("instance", s.instance).
		Int("port", s.port).
		Str("iface", s.iface).
		Msg("mdns: advertising configuration portal")
	return true
}

func (s *Service) retryLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if s.tryRegister() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop withdraws the advertisement. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	if s.server != nil {
		log.Debug().Msg("mdns: stopping advertisement")
		s.server.Shutdown()
		s.server = nil
	}
}

func (s *Service) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}
