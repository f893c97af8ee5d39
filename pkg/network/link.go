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

// Package network brings the Wi-Fi link up either as a station on a known
// network or as the node's own access point.
package network

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/meteostation/meteonode/pkg/credentials"
)

type EventKind uint8

const (
	EventStationStarted EventKind = iota + 1
	EventDisconnected
	EventGotIP
)

func (k EventKind) String() string {
	switch k {
	case EventStationStarted:
		return "station_started"
	case EventDisconnected:
		return "disconnected"
	case EventGotIP:
		return "got_ip"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

type Event struct {
	Reason string
	Kind   EventKind
}

// APConfig describes the access point the node raises for provisioning.
type APConfig struct {
	SSID       string
	Address    netip.Prefix
	Channel    int
	MaxClients int
}

// Link is the radio as seen by the connectivity logic. Station lifecycle
// changes are reported asynchronously through Events.
type Link interface {
	// StartStation switches to client mode for creds and starts the
	// interface. EventStationStarted follows once it is up.
	StartStation(ctx context.Context, creds credentials.Credentials) error
	// Connect asks the station to associate. Success is reported as
	// EventGotIP, failure as EventDisconnected.
	Connect(ctx context.Context) error
	StopStation(ctx context.Context) error
	StartAccessPoint(ctx context.Context, cfg APConfig) error
	StopAccessPoint(ctx context.Context) error
	HardwareAddr() (net.HardwareAddr, error)
	Events() <-chan Event
	Close() error
}

// APName appends the last two bytes of the hardware address to prefix,
// e.g. "ESP_Config-A1B2".
func APName(prefix string, hw net.HardwareAddr) string {
	var hi, lo byte
	if n := len(hw); n >= 2 {
		hi, lo = hw[n-2], hw[n-1]
	}
	return fmt.Sprintf("%s-%02X%02X", prefix, hi, lo)
}
