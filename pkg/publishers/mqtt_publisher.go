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

package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/meteostation/meteonode/pkg/config"
	"github.com/meteostation/meteonode/pkg/helpers/syncutil"
	"github.com/meteostation/meteonode/pkg/sensors"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotStarted = errors.New("mqtt publisher not started")
	ErrOffline    = errors.New("mqtt broker connection not open")
)

const (
	connectTimeout  = 10 * time.Second
	disconnectQuiet = 250
)

type clientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// Message is the wire shape of one published reading. Values are fixed to
// two decimals.
type Message struct {
	TempC json.Number `json:"temp_c"`
	Hum   json.Number `json:"hum"`
}

// NewMessage rounds a reading to two decimals.
func NewMessage(r sensors.Reading) Message {
	return Message{
		TempC: json.Number(strconv.FormatFloat(r.TemperatureC, 'f', 2, 64)),
		Hum:   json.Number(strconv.FormatFloat(r.Humidity, 'f', 2, 64)),
	}
}

func EncodeReading(r sensors.Reading) ([]byte, error) {
	payload, err := json.Marshal(NewMessage(r))
	if err != nil {
		return nil, fmt.Errorf("failed to encode reading: %w", err)
	}
	return payload, nil
}

// MQTTPublisher publishes sensor readings to an MQTT broker.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient clientFactory
	broker    string
	topic     string
	qos       byte
	stopped   bool
	mu        syncutil.Mutex
}

// NewMQTTPublisher creates a publisher for the given broker URI and topic.
// Nothing is dialled until Start.
func NewMQTTPublisher(broker, topic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{
		newClient: mqtt.NewClient,
		broker:    broker,
		topic:     topic,
		qos:       qos,
	}
}

// Start connects to the broker. The client reconnects on its own after a
// lost connection.
func (p *MQTTPublisher) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(config.AppName + "-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	client := p.newClient(opts)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.client = client
	p.mu.Unlock()

	// With connect retry the token only completes once a connection is
	// made, so an unreachable broker must not hold up the caller.
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Msgf("mqtt publisher: %s not reachable yet, retrying in background", p.broker)
		return nil
	}
	if err := token.Error(); err != nil {
		p.Stop()
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.Info().Msgf("mqtt publisher: started for %s (topic: %s)", p.broker, p.topic)
	return nil
}

// Stop disconnects and cancels any pending connect retries. The publisher
// cannot be restarted.
func (p *MQTTPublisher) Stop() {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.stopped = true
	p.mu.Unlock()

	if client != nil {
		log.Debug().Msg("mqtt publisher: disconnecting")
		client.Disconnect(disconnectQuiet)
	}
}

// Publish sends one reading. It waits for the broker acknowledgement or ctx,
// whichever comes first.
func (p *MQTTPublisher) Publish(ctx context.Context, r sensors.Reading) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return ErrNotStarted
	}
	// Paho queues publishes while reconnecting; a reading that old is useless.
	if !client.IsConnectionOpen() {
		return ErrOffline
	}

	payload, err := EncodeReading(r)
	if err != nil {
		return err
	}

	token := client.Publish(p.topic, p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", p.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	log.Debug().Str("topic", p.topic).Bytes("payload", payload).Msg("mqtt publisher: published reading")
	return nil
}
