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

package mocks

import (
	"context"
	"fmt"
	"net"

	"github.com/meteostation/meteonode/pkg/credentials"
	"github.com/meteostation/meteonode/pkg/network"
	"github.com/stretchr/testify/mock"
)

// MockLink is a mock implementation of network.Link using testify/mock.
// Events are delivered through EventsCh, which tests write to directly.
type MockLink struct {
	mock.Mock
	EventsCh chan network.Event
}

func NewMockLink() *MockLink {
	return &MockLink{EventsCh: make(chan network.Event, 8)}
}

func (m *MockLink) StartStation(ctx context.Context, creds credentials.Credentials) error {
	args := m.Called(ctx, creds)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLink) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLink) StopStation(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLink) StartAccessPoint(ctx context.Context, cfg network.APConfig) error {
	args := m.Called(ctx, cfg)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLink) StopAccessPoint(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLink) HardwareAddr() (net.HardwareAddr, error) {
	args := m.Called()
	hw, _ := args.Get(0).(net.HardwareAddr)
	if err := args.Error(1); err != nil {
		return hw, fmt.Errorf("mock operation failed: %w", err)
	}
	return hw, nil
}

func (m *MockLink) Events() <-chan network.Event {
	return m.EventsCh
}

func (m *MockLink) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}
