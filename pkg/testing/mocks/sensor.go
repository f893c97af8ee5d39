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

	"github.com/meteostation/meteonode/pkg/sensors"
	"github.com/stretchr/testify/mock"
)

// MockSensor is a mock implementation of sensors.Reader.
type MockSensor struct {
	mock.Mock
}

func (m *MockSensor) Read(ctx context.Context) (sensors.Reading, error) {
	args := m.Called(ctx)
	reading, _ := args.Get(0).(sensors.Reading)
	if err := args.Error(1); err != nil {
		return reading, fmt.Errorf("mock operation failed: %w", err)
	}
	return reading, nil
}

// MockPublisher is a mock reading publisher with a start/stop lifecycle.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Start() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockPublisher) Stop() {
	m.Called()
}

func (m *MockPublisher) Publish(ctx context.Context, r sensors.Reading) error {
	args := m.Called(ctx, r)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}
