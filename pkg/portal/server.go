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

// Package portal serves the captive configuration page shown while the
// node runs its own access point.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apimw "github.com/meteostation/meteonode/pkg/api/middleware"
	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 1024
	// Phones retry captive pages aggressively; this still leaves room for
	// a human filling the form.
	requestsPerMinute = 60
	requestBurst      = 20
)

const formPage = `<!DOCTYPE html>
<html><head><meta name="viewport" content="width=device-width, initial-scale=1"><title>Meteonode setup</title></head>
<body>
<h3>Wi-Fi Setup</h3>
<form method="POST" action="/save">
<label>SSID: <input name="ssid" maxlength="32"></label><br>
<label>Password: <input name="pass" type="password" maxlength="64"></label><br>
<button type="submit">Save</button>
</form>
<hr>
<form method="GET" action="/skip">
<button type="submit">Run without MQTT</button>
</form>
<p>Starts the station without Wi-Fi and without publishing measurements.</p>
</body></html>
`

const (
	savedPage   = "<p>Saved credentials. Rebooting...</p>"
	skippedPage = "<p>Starting without Wifi/MQTT data publishing...</p>"
)

type CredentialSaver interface {
	Save(creds credentials.Credentials) error
}

// Server is the configuration endpoint. Saved and Skipped close when the
// user makes a choice; only the first choice of each kind counts.
type Server struct {
	store         CredentialSaver
	srv           *http.Server
	limiter       *apimw.IPRateLimiter
	saved         *syncutil.Latch
	skipped       *syncutil.Latch
	done          chan struct{}
	cancelCleanup context.CancelFunc
	addr          string
	mu            syncutil.Mutex
}

func New(store CredentialSaver, addr string) *Server {
	return &Server{
		store:   store,
		addr:    addr,
		limiter: apimw.NewIPRateLimiter(requestsPerMinute, requestBurst, nil),
		saved:   syncutil.NewLatch(),
		skipped: syncutil.NewLatch(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(apimw.RateLimit(s.limiter))

	r.Get("/", s.handleForm)
	r.Post("/save", s.handleSave)
	r.Get("/skip", s.handleSkip)

	return r
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, formPage)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("portal: failed to read save request")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "No data", http.StatusBadRequest)
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		log.Warn().Err(err).Msg("portal: malformed form body")
		http.Error(w, "Malformed form data", http.StatusBadRequest)
		return
	}

	creds := credentials.Credentials{
		SSID:     values.Get("ssid"),
		Password: values.Get("pass"),
	}
	if err := creds.Validate(); err != nil {
		log.Warn().Err(err).Msg("portal: rejected credentials")
		http.Error(w, "Invalid SSID or password", http.StatusBadRequest)
		return
	}

	if err := s.store.Save(creds); err != nil {
		log.Error().Err(err).Msg("portal: failed to save credentials")
		http.Error(w, "Failed to save credentials", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, savedPage)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	log.Info().Msgf("portal: credentials saved for %q", creds.SSID)
	s.saved.Trip()
}

func (s *Server) handleSkip(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, skippedPage)

	if s.skipped.Trip() {
		log.Info().Msg("portal: user chose to run without network")
	}
}

// Saved closes after credentials were stored.
func (s *Server) Saved() <-chan struct{} {
	return s.saved.Done()
}

// Skipped closes after the user asked to continue without network.
func (s *Server) Skipped() <-chan struct{} {
	return s.skipped.Done()
}

func (s *Server) SkipRequested() bool {
	return s.skipped.Tripped()
}

// Start listens on the configured address and serves in the background.
// A server that is already running is stopped first.
func (s *Server) Start() error {
	if s.Running() {
		log.Warn().Msg("portal: replacing running server")
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("portal: stopping previous server")
		}
	}

	addr := s.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("portal listen on %s: %w", addr, err)
	}
	s.serve(ln)
	return nil
}

func (s *Server) serve(ln net.Listener) {
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
			log.Error().Err(err).Msg("portal: http server stopped")
		}
	}()

	log.Info().Msgf("portal: serving on %s", ln.Addr())
}

// Addr returns the listen address, resolved once the server is running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop shuts the server down and releases its handle.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done, cancelCleanup := s.srv, s.done, s.cancelCleanup
	s.srv, s.done, s.cancelCleanup = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	cancelCleanup()
	err := srv.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("portal shutdown: %w", err)
	}
	log.Debug().Msg("portal: http server stopped")
	return nil
}

func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}
