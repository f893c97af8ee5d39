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

package syncutil

import (
	"sync"
	"sync/atomic"
)

// Latch is a one-shot flag. Trip may be called from any goroutine and any
// number of times; only the first call has an effect.
type Latch struct {
	ch      chan struct{}
	once    sync.Once
	tripped atomic.Bool
}

func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Trip sets the flag and closes Done. Reports whether this call tripped it.
func (l *Latch) Trip() bool {
	first := false
	l.once.Do(func() {
		l.tripped.Store(true)
		close(l.ch)
		first = true
	})
	return first
}

func (l *Latch) Tripped() bool {
	return l.tripped.Load()
}

func (l *Latch) Done() <-chan struct{} {
	return l.ch
}
