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

// Package api serves read-only node status over HTTP and streams readings
// to websocket clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/mackerelio/go-osstat/loadavg"
	"github.com/mackerelio/go-osstat/memory"
	"github.com/mackerelio/go-osstat/uptime"
	apimw "github.com/meteostation/meteonode/pkg/api/middleware"
	"github.com/meteostation/meteonode/pkg/config"
	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/meteostation/meteonode/pkg/publishers"
	"github.com/meteostation/meteonode/pkg/sensors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	hostsensors "github.com/shirou/gopsutil/v4/sensors"
)

const (
	requestTimeout    = 5 * time.Second
	requestsPerMinute = 100
	requestBurst      = 20
	// MethodReadingsAdded is the notification sent for every new reading.
	MethodReadingsAdded = "readings.added"
)

type Notification struct {
	Params  any    `json:"params"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
}

type SystemStatus struct {
	UptimeSeconds *float64 `json:"uptimeSeconds,omitempty"`
	MemTotal      *uint64  `json:"memTotal,omitempty"`
	MemUsed       *uint64  `json:"memUsed,omitempty"`
	Load1         *float64 `json:"load1,omitempty"`
	SoCTempC      *float64 `json:"socTempC,omitempty"`
}

type Status struct {
	Reading   *publishers.Message `json:"reading,omitempty"`
	ReadingAt *time.Time          `json:"readingAt,omitempty"`
	System    SystemStatus        `json:"system"`
	Version   string              `json:"version"`
	Readings  uint64              `json:"readings"`
	Online    bool                `json:"online"`
}

// hostStats are swapped in tests.
type hostStats struct {
	uptime  func() (time.Duration, error)
	memory  func() (*memory.Stats, error)
	loadavg func() (*loadavg.Stats, error)
	temps   func(ctx context.Context) ([]hostsensors.TemperatureStat, error)
}

type Server struct {
	clock         clockwork.Clock
	ws            *melody.Melody
	srv           *http.Server
	limiter       *apimw.IPRateLimiter
	done          chan struct{}
	cancelCleanup context.CancelFunc
	readingAt     time.Time
	stats         hostStats
	addr          string
	origins       []string
	latest        sensors.Reading
	readings      uint64
	online        bool
	mu            syncutil.Mutex
}

func New(addr string, origins []string) *Server {
	s := &Server{
		clock:   clockwork.NewRealClock(),
		ws:      melody.New(),
		limiter: apimw.NewIPRateLimiter(requestsPerMinute, requestBurst, nil),
		addr:    addr,
		origins: origins,
		stats: hostStats{
			uptime:  uptime.Get,
			memory:  memory.Get,
			loadavg: loadavg.Get,
			temps:   hostsensors.TemperaturesWithContext,
		},
	}
	// No auth on a sensor node; CORS decides which pages may read it.
	s.ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	s.ws.HandleConnect(s.greet)
	return s
}

// SetOnline records whether provisioning ended with a network connection.
func (s *Server) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

// Observe stores the reading and pushes it to every websocket client.
func (s *Server) Observe(r sensors.Reading) {
	s.mu.Lock()
	s.latest = r
	s.readingAt = s.clock.Now()
	s.readings++
	s.mu.Unlock()

	data, err := encodeNotification(r)
	if err != nil {
		log.Error().Err(err).Msg("api: encoding reading notification")
		return
	}
	if err := s.ws.Broadcast(data); err != nil {
		log.Debug().Err(err).Msg("api: broadcasting reading")
	}
}

func encodeNotification(r sensors.Reading) ([]byte, error) {
	payload, err := publishers.EncodeReading(r)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(Notification{
		JSONRPC: "2.0",
		Method:  MethodReadingsAdded,
		Params:  json.RawMessage(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling notification: %w", err)
	}
	return data, nil
}

// greet sends the latest reading to a client as soon as it connects.
func (s *Server) greet(session *melody.Session) {
	s.mu.Lock()
	latest, have := s.latest, s.readings > 0
	s.mu.Unlock()
	if !have {
		return
	}
	data, err := encodeNotification(latest)
	if err != nil {
		return
	}
	if err := session.Write(data); err != nil {
		log.Debug().Err(err).Msg("api: greeting websocket client")
	}
}

func (s *Server) Status(ctx context.Context) Status {
	s.mu.Lock()
	st := Status{
		Version:  config.AppVersion,
		Online:   s.online,
		Readings: s.readings,
	}
	if s.readings > 0 {
		msg := publishers.NewMessage(s.latest)
		st.Reading = &msg
		at := s.readingAt
		st.ReadingAt = &at
	}
	s.mu.Unlock()

	st.System = s.systemStatus(ctx)
	return st
}

// hottest returns the highest thermal zone reading, which on the boards
// this runs on is the SoC.
func hottest(stats []hostsensors.TemperatureStat) (float64, bool) {
	var best float64
	found := false
	for _, st := range stats {
		if st.Temperature <= 0 {
			continue
		}
		if !found || st.Temperature > best {
			best, found = st.Temperature, true
		}
	}
	return best, found
}

func (s *Server) systemStatus(ctx context.Context) SystemStatus {
	var sys SystemStatus
	if up, err := s.stats.uptime(); err == nil {
		secs := up.Seconds()
		sys.UptimeSeconds = &secs
	}
	if mem, err := s.stats.memory(); err == nil && mem != nil {
		sys.MemTotal = &mem.Total
		sys.MemUsed = &mem.Used
	}
	if load, err := s.stats.loadavg(); err == nil && load != nil {
		sys.Load1 = &load.Loadavg1
	}
	// gopsutil returns partial results alongside warnings.
	stats, err := s.stats.temps(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("api: reading thermal zones")
	}
	if t, ok := hottest(stats); ok {
		sys.SoCTempC = &t
	}
	return sys
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(apimw.RateLimit(s.limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
		ExposedHeaders: []string{},
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/api/status", s.handleStatus)
	})

	r.Get("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("api: handling websocket request")
		}
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Status(r.Context())); err != nil {
		log.Error().Err(err).Msg("api: writing status")
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: requestTimeout,
	}
	done := make(chan struct{})
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	s.limiter.StartCleanup(cleanupCtx)

	s.mu.Lock()
	s.srv = srv
	s.done = done
	s.cancelCleanup = cancelCleanup
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		defer close(done)
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api: http server stopped")
		}
	}()

	log.Info().Msgf("api: serving status on %s", ln.Addr())
	return nil
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop closes websocket sessions and shuts the server down. It also
// releases a server that was never started.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done, cancelCleanup := s.srv, s.done, s.cancelCleanup
	s.srv, s.done, s.cancelCleanup = nil, nil, nil
	s.mu.Unlock()

	if cancelCleanup != nil {
		cancelCleanup()
	}
	if !s.ws.IsClosed() {
		if err := s.ws.Close(); err != nil {
			log.Debug().Err(err).Msg("api: closing websocket sessions")
		}
	}
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}
