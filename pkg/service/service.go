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

// Package service wires the node together at boot: bus, display, sensor,
// credential store and radio, then provisioning followed by the
// telemetry loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meteostation/meteonode/pkg/api"
	"github.com/meteostation/meteonode/pkg/config"
	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/meteostation/meteonode/pkg/display"
	"github.com/meteostation/meteonode/pkg/display/bridge"
	"github.com/meteostation/meteonode/pkg/hardware/i2cbus"
	"github.com/meteostation/meteonode/pkg/helpers"
	"github.com/meteostation/meteonode/pkg/network"
	"github.com/meteostation/meteonode/pkg/portal"
	"github.com/meteostation/meteonode/pkg/provision"
	"github.com/meteostation/meteonode/pkg/publishers"
	"github.com/meteostation/meteonode/pkg/sensors/sht31"
	"github.com/meteostation/meteonode/pkg/service/discovery"
	"github.com/meteostation/meteonode/pkg/system"
	"github.com/meteostation/meteonode/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/drivers"
)

// failureRestartDelay is how long the failure screen stays up before the
// node restarts to try provisioning again.
const failureRestartDelay = 5 * time.Second

// Hardware is what the node needs from the host. Close releases all of it.
type Hardware struct {
	Bus   drivers.I2C
	Link  network.Link
	Close func() error
}

// OpenHardware opens the configured I2C bus and the NetworkManager link.
func OpenHardware(ctx context.Context, cfg *config.Instance) (*Hardware, error) {
	bus, err := i2cbus.OpenHost(cfg.I2C().Bus, cfg.I2C().FrequencyHz)
	if err != nil {
		return nil, err
	}

	link, err := network.NewNMLink(ctx, cfg.Network().Interface)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("failed to open network link: %w", err)
	}

	return &Hardware{
		Bus:  bus,
		Link: link,
		Close: func() error {
			return errors.Join(link.Close(), bus.Close())
		},
	}, nil
}

type Publisher interface {
	telemetry.Publisher
	Start() error
	Stop()
}

type Restarter interface {
	provision.Restarter
	OnRestart(hook func() error)
}

// env holds the pieces tests replace.
type env struct {
	clock        clockwork.Clock
	restarter    Restarter
	failureDelay time.Duration
	newPublisher func(broker, topic string, qos byte) Publisher
	newAnnouncer func(iface, instance string, port int) provision.Announcer
	apiAddr      func(port int) string
}

func listenAll(port int) string {
	return fmt.Sprintf(":%d", port)
}

func defaultEnv() env {
	return env{
		clock:        clockwork.NewRealClock(),
		restarter:    system.NewRestarter(),
		failureDelay: failureRestartDelay,
		newPublisher: func(broker, topic string, qos byte) Publisher {
			return publishers.NewMQTTPublisher(broker, topic, qos)
		},
		newAnnouncer: func(iface, instance string, port int) provision.Announcer {
			return discovery.New(iface, instance, port)
		},
		apiAddr: listenAll,
	}
}

// Start opens the hardware and boots the node in the background. stop
// shuts everything down; done closes when the boot goroutine exits.
func Start(
	cfg *config.Instance,
	dirs helpers.Dirs,
) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("%s starting", config.AppName)

	hw, err := OpenHardware(context.Background(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("error opening hardware")
		return nil, nil, err
	}
	return start(cfg, dirs, hw, defaultEnv())
}

// unavailableStore stands in when the credential database cannot be
// opened, so provisioning treats credentials as absent.
type unavailableStore struct {
	err error
}

func (s unavailableStore) Load() (credentials.Credentials, bool, error) {
	return credentials.Credentials{}, false, s.err
}

func (s unavailableStore) Save(credentials.Credentials) error {
	return s.err
}

func (unavailableStore) Close() error { return nil }

type credentialStore interface {
	provision.CredentialStore
	portal.CredentialSaver
	Close() error
}

func openStore(path string) credentialStore {
	store, err := credentials.Open(path)
	if err != nil {
		log.Error().Err(err).Msg("credential store unavailable, provisioning without it")
		return unavailableStore{err: err}
	}
	return store
}

func start(
	cfg *config.Instance,
	dirs helpers.Dirs,
	hw *Hardware,
	e env,
) (stop func() error, done <-chan struct{}, err error) {
	ctx, cancel := context.WithCancel(context.Background())

	i2cCfg := cfg.I2C()
	netCfg := cfg.Network()
	bus := i2cbus.NewTimedBus(e.clock, hw.Bus, cfg.BusTimeout())

	log.Info().Msgf("initializing display at 0x%02X", i2cCfg.DisplayAddress)
	renderer := display.NewRenderer(
		bridge.New(bus, i2cCfg.DisplayAddress, bridge.WithClock(e.clock)),
		cfg.BusSpeedMultiplier(),
	)
	if initErr := renderer.Init(); initErr != nil {
		log.Error().Err(initErr).Msg("display init failed, continuing without display")
	}

	sensor := sht31.New(bus,
		sht31.WithAddress(i2cCfg.SensorAddress),
		sht31.WithClock(e.clock),
		sht31.WithCRC(i2cCfg.VerifyCRC),
	)

	log.Info().Msg("opening credential store")
	store := openStore(dirs.CredentialsPath())

	supervisor := network.NewSupervisor(hw.Link)
	supervisor.Start(ctx)

	portalSrv := portal.New(store, listenAll(netCfg.PortalPort))

	if watchErr := cfg.Watch(ctx, func() {
		helpers.SetLogLevel(cfg.DebugLogging())
	}); watchErr != nil {
		log.Warn().Err(watchErr).Msg("config changes will need a restart")
	}

	var announce func(string) provision.Announcer
	if cfg.DiscoveryEnabled() {
		announce = func(instance string) provision.Announcer {
			return e.newAnnouncer(netCfg.Interface, instance, netCfg.PortalPort)
		}
	}

	e.restarter.OnRestart(hw.Close)
	e.restarter.OnRestart(store.Close)

	machine := provision.NewMachine(provision.Deps{
		Store:     store,
		Link:      hw.Link,
		Connected: supervisor.Connected(),
		Portal:    portalSrv,
		Announce:  announce,
		Display:   renderer,
		Restarter: e.restarter,
		Clock:     e.clock,
	}, provision.Settings{
		APPrefix:       netCfg.APPrefix,
		APAddress:      cfg.APGateway(),
		ConnectTimeout: cfg.ConnectTimeout(),
		RestartDelay:   cfg.RestartDelay(),
		APChannel:      netCfg.APChannel,
		APMaxClients:   netCfg.APMaxClients,
	})

	loopOpts := []telemetry.Option{
		telemetry.WithClock(e.clock),
		telemetry.WithStepDelay(cfg.StepDelay()),
	}
	var apiSrv *api.Server
	if cfg.APIEnabled() {
		apiSrv = api.New(e.apiAddr(cfg.APIPort()), cfg.APIAllowedOrigins())
		loopOpts = append(loopOpts, telemetry.WithObserver(apiSrv))
	}
	loop := telemetry.NewLoop(sensor, renderer, loopOpts...)

	var (
		pubMu     sync.Mutex
		publisher Publisher
	)

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)

		res, runErr := machine.Run(ctx)
		if runErr != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(runErr).Msgf("provisioning failed in %s", res.Final)
			select {
			case <-ctx.Done():
				return
			case <-e.clock.After(e.failureDelay):
			}
			if restartErr := e.restarter.Restart(); restartErr != nil {
				log.Error().Err(restartErr).Msg("restart failed")
			}
			return
		}

		log.Info().
			Str("final", res.Final.String()).
			Str("outcome", res.Outcome.String()).
			Msg("provisioning finished")

		if res.Final == provision.StateRestart {
			return
		}

		if apiSrv != nil {
			apiSrv.SetOnline(res.Online())
			if apiErr := apiSrv.Start(); apiErr != nil {
				log.Error().Err(apiErr).Msg("status api failed to start")
			}
		}

		switch {
		case res.Online() && cfg.MQTTEnabled():
			mqttCfg := cfg.MQTT()
			p := e.newPublisher(mqttCfg.Broker, mqttCfg.Topic, mqttCfg.QoS)
			pubMu.Lock()
			publisher = p
			pubMu.Unlock()
			go func() {
				if startErr := p.Start(); startErr != nil {
					log.Error().Err(startErr).Msg("mqtt publisher failed to start")
					return
				}
				loop.SetPublisher(p)
			}()
		case !res.Online():
			log.Info().Msg("running without network, publishing disabled")
		}

		if loopErr := loop.Run(ctx); loopErr != nil && !errors.Is(loopErr, context.Canceled) {
			log.Error().Err(loopErr).Msg("telemetry loop stopped")
		}
	}()

	stop = func() error {
		log.Info().Msg("stopping service")
		cancel()
		<-doneCh

		supervisor.Stop()

		pubMu.Lock()
		if publisher != nil {
			publisher.Stop()
		}
		pubMu.Unlock()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()

		var errs []error
		var servers errgroup.Group
		if apiSrv != nil {
			servers.Go(func() error { return apiSrv.Stop(stopCtx) })
		}
		servers.Go(func() error { return portalSrv.Stop(stopCtx) })
		if stopErr := servers.Wait(); stopErr != nil {
			errs = append(errs, stopErr)
		}
		if stopErr := store.Close(); stopErr != nil {
			errs = append(errs, stopErr)
		}
		if stopErr := hw.Close(); stopErr != nil {
			errs = append(errs, stopErr)
		}
		return errors.Join(errs...)
	}

	return stop, doneCh, nil
}
