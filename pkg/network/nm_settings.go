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
	"strconv"

	"github.com/godbus/dbus/v5"
	"github.com/meteostation/meteonode/pkg/credentials"
)

// NetworkManager device states that matter to the station.
const (
	deviceStateDisconnected uint32 = 30
	deviceStateActivated    uint32 = 100
	deviceStateFailed       uint32 = 120
)

const (
	stationConnID = "meteonode-station"
	apConnID      = "meteonode-ap"
)

type connSettings = map[string]map[string]dbus.Variant

func stationSettings(creds credentials.Credentials) connSettings {
	s := connSettings{
		"connection": {
			"id":          dbus.MakeVariant(stationConnID),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(creds.SSID)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {"method": dbus.MakeVariant("auto")},
		"ipv6": {"method": dbus.MakeVariant("ignore")},
	}
	if creds.Password != "" {
		s["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(creds.Password),
		}
	}
	return s
}

// apSettings builds an open access point. The "shared" method gives the
// node the gateway address and runs a DHCP server for clients.
func apSettings(cfg APConfig) connSettings {
	return connSettings{
		"connection": {
			"id":          dbus.MakeVariant(apConnID),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid":    dbus.MakeVariant([]byte(cfg.SSID)),
			"mode":    dbus.MakeVariant("ap"),
			"band":    dbus.MakeVariant("bg"),
			"channel": dbus.MakeVariant(uint32(cfg.Channel)),
		},
		"ipv4": {
			"method": dbus.MakeVariant("shared"),
			"address-data": dbus.MakeVariant([]map[string]dbus.Variant{{
				"address": dbus.MakeVariant(cfg.Address.Addr().String()),
				"prefix":  dbus.MakeVariant(uint32(cfg.Address.Bits())),
			}}),
		},
		"ipv6": {"method": dbus.MakeVariant("ignore")},
	}
}

// stationEvent maps a device state change to a link event. ok is false for
// intermediate states.
func stationEvent(newState, reason uint32) (Event, bool) {
	switch newState {
	case deviceStateActivated:
		return Event{Kind: EventGotIP}, true
	case deviceStateDisconnected, deviceStateFailed:
		return Event{Kind: EventDisconnected, Reason: stateReason(reason)}, true
	default:
		return Event{}, false
	}
}

var stateReasons = map[uint32]string{
	0:  "none",
	1:  "unknown",
	7:  "no secrets",
	8:  "supplicant disconnected",
	10: "supplicant failed",
	11: "supplicant timeout",
	53: "ssid not found",
}

func stateReason(reason uint32) string {
	if s, ok := stateReasons[reason]; ok {
		return s
	}
	return "reason " + strconv.FormatUint(uint64(reason), 10)
}
