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

package network

import (
	"context"
	"sync"

	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Supervisor reacts to link events: it connects once the station is up,
// reconnects after every disconnect and raises Connected while the node
// holds an address. Reconnection is unbounded.
type Supervisor struct {
	link      Link
	connected *syncutil.Event
	stopCh    chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

func NewSupervisor(link Link) *Supervisor {
	return &Supervisor{
		link:      link,
		connected: syncutil.NewEvent(),
		stopCh:    make(chan struct{}),
	}
}

// Connected is set while the station has an address.
func (s *Supervisor) Connected() *syncutil.Event {
	return s.connected
}

func (s *Supervisor) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	events := s.link.Events()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				log.Debug().Msg("network: link event channel closed")
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Supervisor) handle(ctx context.Context, ev Event) {
	log.Debug().Msgf("network: link event %s %s", ev.Kind, ev.Reason)

	switch ev.Kind {
	case EventStationStarted:
		s.connect(ctx)
	case EventDisconnected:
		s.connected.Clear()
		log.Info().Msgf("network: disconnected (%s), reconnecting", ev.Reason)
		s.connect(ctx)
	case EventGotIP:
		log.Info().Msg("network: station got address")
		s.connected.Set()
	}
}

func (s *Supervisor) connect(ctx context.Context) {
	if err := s.link.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("network: connect request failed")
	}
}
