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

package config

import (
	"net/netip"
	"time"
)

type Network struct {
	Interface        string `toml:"interface" validate:"required"`
	APPrefix         string `toml:"ap_prefix" validate:"required,max=27"`
	APAddress        string `toml:"ap_address" validate:"required,ipv4prefix"`
	ConnectTimeoutMs int    `toml:"connect_timeout_ms" validate:"gt=0"`
	APChannel        int    `toml:"ap_channel" validate:"min=1,max=13"`
	APMaxClients     int    `toml:"ap_max_clients" validate:"min=1,max=10"`
	PortalPort       int    `toml:"portal_port" validate:"min=1,max=65535"`
	RestartDelayMs   int    `toml:"restart_delay_ms" validate:"gte=0"`
	// Discovery advertises the configuration portal over mDNS while the
	// access point is up. Defaults to true when unset.
	Discovery *bool `toml:"discovery,omitempty"`
}

func (c *Instance) Network() Network {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Network
}

func (c *Instance) ConnectTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.Network.ConnectTimeoutMs)
}

func (c *Instance) RestartDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.Network.RestartDelayMs)
}

// APGateway returns the address the node takes on its own access point.
func (c *Instance) APGateway() netip.Prefix {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, err := netip.ParsePrefix(c.vals.Network.APAddress)
	if err != nil {
		return netip.MustParsePrefix(BaseDefaults.Network.APAddress)
	}
	return p
}

func (c *Instance) DiscoveryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Network.Discovery == nil {
		return true
	}
	return *c.vals.Network.Discovery
}
