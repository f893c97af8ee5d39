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

package provision

import "strconv"

type State uint8

const (
	StateStart State = iota
	StateLoadCredentials
	StateAttemptConnect
	StateEnterPortal
	StateReady
	StateReadyWithoutNetwork
	StateRestart
)

var stateNames = [...]string{
	StateStart:               "Start",
	StateLoadCredentials:     "LoadCredentials",
	StateAttemptConnect:      "AttemptConnect",
	StateEnterPortal:         "EnterPortal",
	StateReady:               "Ready",
	StateReadyWithoutNetwork: "ReadyWithoutNetwork",
	StateRestart:             "Restart",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether control passes on to the telemetry loop (or the
// process restarts) once the machine reaches s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateReadyWithoutNetwork || s == StateRestart
}

type Outcome uint8

const (
	OutcomeNone Outcome = iota
	// OutcomeConnected: the station got an address within the timeout.
	OutcomeConnected
	// OutcomeTimedOut: no address in time, the portal was entered.
	OutcomeTimedOut
	// OutcomeBypassed: the user skipped provisioning.
	OutcomeBypassed
	// OutcomeSaved: new credentials were stored and a restart requested.
	OutcomeSaved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConnected:
		return "connected"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeBypassed:
		return "bypassed"
	case OutcomeSaved:
		return "saved"
	default:
		return "none"
	}
}

// Result records how the machine got where it ended up.
type Result struct {
	Path    []State
	Final   State
	Outcome Outcome
}

// Online reports whether the node finished provisioning with a working
// station connection.
func (r Result) Online() bool {
	return r.Final == StateReady
}
