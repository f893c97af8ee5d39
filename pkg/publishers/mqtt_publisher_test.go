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
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/meteostation/meteonode/pkg/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(client mqtt.Client) (*MQTTPublisher, *mqtt.ClientOptions) {
	p := NewMQTTPublisher("mqtt://broker.example.com:1883", "meteostanice/measurements", 1)
	var captured mqtt.ClientOptions
	p.newClient = func(opts *mqtt.ClientOptions) mqtt.Client {
		captured = *opts
		return client
	}
	return p, &captured
}

func TestEncodeReading(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected string
		reading  sensors.Reading
	}{
		{
			name:     "typical",
			reading:  sensors.Reading{TemperatureC: 23.456, Humidity: 50},
			expected: `{"temp_c":23.46,"hum":50.00}`,
		},
		{
			name:     "sentinel",
			reading:  sensors.Sentinel,
			expected: `{"temp_c":0.00,"hum":0.00}`,
		},
		{
			name:     "below zero",
			reading:  sensors.Reading{TemperatureC: -12.3, Humidity: 99.999},
			expected: `{"temp_c":-12.30,"hum":100.00}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			payload, err := EncodeReading(tt.reading)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(payload))
		})
	}
}

func TestNewMessage(t *testing.T) {
	t.Parallel()

	msg := NewMessage(sensors.Reading{TemperatureC: 21.456, Humidity: 40})
	assert.Equal(t, json.Number("21.46"), msg.TempC)
	assert.Equal(t, json.Number("40.00"), msg.Hum)
}

func TestStart_ConfiguresClient(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	p, opts := newTestPublisher(mock)

	require.NoError(t, p.Start())
	assert.True(t, mock.IsConnected())
	assert.True(t, strings.HasPrefix(opts.ClientID, "meteonode-"))
	assert.Len(t, opts.ClientID, len("meteonode-")+8)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker.example.com:1883", opts.Servers[0].Host)
	assert.True(t, opts.AutoReconnect)
}

func TestStart_ConnectError(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	mock.connectError = errors.New("connection refused")
	p, _ := newTestPublisher(mock)

	err := p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, mock.disconnects())
	require.ErrorIs(t, p.Publish(context.Background(), sensors.Sentinel), ErrNotStarted)
}

func TestStart_UnreachableBrokerDoesNotBlock(t *testing.T) {
	t.Parallel()

	client := &unreachableClient{mockMQTTClient: newMockMQTTClient()}
	p, _ := newTestPublisher(client)

	require.NoError(t, p.Start())
	require.ErrorIs(t, p.Publish(context.Background(), sensors.Sentinel), ErrOffline)

	p.Stop()
	assert.Equal(t, 1, client.disconnects())
}

func TestStart_AfterStop(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	p, _ := newTestPublisher(mock)
	p.Stop()

	require.ErrorIs(t, p.Start(), ErrNotStarted)
	assert.False(t, mock.IsConnected())
}

func TestPublish_SendsReading(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	p, _ := newTestPublisher(mock)
	require.NoError(t, p.Start())

	err := p.Publish(context.Background(), sensors.Reading{TemperatureC: 21.5, Humidity: 40.25})
	require.NoError(t, err)

	msgs := mock.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "meteostanice/measurements", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.False(t, msgs[0].retained)
	assert.JSONEq(t, `{"temp_c":21.5,"hum":40.25}`, string(msgs[0].payload.([]byte)))
}

func TestPublish_BrokerError(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	p, _ := newTestPublisher(mock)
	require.NoError(t, p.Start())

	mock.publishError = errors.New("not authorised")
	err := p.Publish(context.Background(), sensors.Sentinel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorised")
}

func TestPublish_Offline(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	p, _ := newTestPublisher(mock)
	require.NoError(t, p.Start())

	mock.Disconnect(0)
	require.ErrorIs(t, p.Publish(context.Background(), sensors.Sentinel), ErrOffline)
	assert.Empty(t, mock.published())
}

func TestPublish_ContextCancelled(t *testing.T) {
	t.Parallel()

	stalled := &stalledClient{mockMQTTClient: newMockMQTTClient()}
	p, _ := newTestPublisher(stalled)
	require.NoError(t, p.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Publish(ctx, sensors.Sentinel)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStop(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	p, _ := newTestPublisher(mock)
	require.NoError(t, p.Start())

	p.Stop()
	p.Stop()
	assert.Equal(t, 1, mock.disconnects())
	assert.False(t, mock.IsConnected())
	require.ErrorIs(t, p.Publish(context.Background(), sensors.Sentinel), ErrNotStarted)
}
