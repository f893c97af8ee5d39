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

package display

// 48x48 XBM icons, rows LSB first.
const iconSize = 48

var thermometerIcon = [...]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xe0, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x10, 0x01, 0x00, 0x00, 0x00, 0x00, 0x18, 0x03, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x3a, 0x00, 0x00, 0x00, 0x00, 0x58, 0x7a, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x02, 0x00, 0x00, 0x00, 0x00, 0x58, 0x1a, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x02, 0x00, 0x00, 0x00, 0x00, 0x58, 0x02, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x7a, 0x00, 0x00, 0x00, 0x00, 0x58, 0x02, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x1e, 0x00, 0x00, 0x00, 0x00, 0x58, 0x02, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x02, 0x00, 0x00, 0x00, 0x00, 0x58, 0x3a, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x02, 0x00, 0x00, 0x00, 0x00, 0x58, 0x1a, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x02, 0x00, 0x00, 0x00, 0x00, 0x58, 0x02, 0x00, 0x00,
	0x00, 0x00, 0x58, 0x7a, 0x00, 0x00, 0x00, 0x00, 0x48, 0x02, 0x00, 0x00,
	0x00, 0x00, 0x4c, 0x06, 0x00, 0x00, 0x00, 0x00, 0xf4, 0x05, 0x00, 0x00,
	0x00, 0x00, 0xf6, 0x09, 0x00, 0x00, 0x00, 0x00, 0xfa, 0x0b, 0x00, 0x00,
	0x00, 0x00, 0xfa, 0x0b, 0x00, 0x00, 0x00, 0x00, 0xf4, 0x0d, 0x00, 0x00,
	0x00, 0x00, 0x44, 0x04, 0x00, 0x00, 0x00, 0x00, 0x18, 0x03, 0x00, 0x00,
	0x00, 0x00, 0xf0, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var humidityIcon = [...]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x80, 0x01, 0x00, 0x00, 0x00, 0x00, 0xc0, 0x03, 0x00, 0x00,
	0x00, 0x00, 0x40, 0x02, 0x00, 0x00, 0x00, 0x00, 0x20, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x10, 0x08, 0x00, 0x00, 0x00, 0x00, 0x08, 0x10, 0x00, 0x00,
	0x00, 0x00, 0x0c, 0x30, 0x00, 0x00, 0x00, 0x00, 0x04, 0x60, 0x00, 0x00,
	0x00, 0x00, 0x02, 0x40, 0x00, 0x00, 0x00, 0x00, 0x03, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x80, 0x00, 0x00, 0x00, 0x80, 0x00, 0x00, 0x01, 0x00,
	0x00, 0xc0, 0x00, 0x00, 0x03, 0x00, 0x00, 0x40, 0x00, 0x00, 0x02, 0x00,
	0x00, 0x60, 0x00, 0x00, 0x06, 0x00, 0x00, 0x20, 0x00, 0x00, 0x04, 0x00,
	0x00, 0x20, 0x00, 0x00, 0x04, 0x00, 0x00, 0x10, 0x70, 0x04, 0x08, 0x00,
	0x00, 0x10, 0x48, 0x04, 0x08, 0x00, 0x00, 0x10, 0x48, 0x02, 0x18, 0x00,
	0x00, 0x18, 0x48, 0x02, 0x10, 0x00, 0x00, 0x08, 0x70, 0x01, 0x10, 0x00,
	0x00, 0x08, 0x00, 0x1d, 0x10, 0x00, 0x00, 0x08, 0x80, 0x14, 0x10, 0x00,
	0x00, 0x08, 0x80, 0x22, 0x10, 0x00, 0x00, 0x08, 0x40, 0x14, 0x10, 0x00,
	0x00, 0x08, 0x40, 0x1c, 0x10, 0x00, 0x00, 0x18, 0x00, 0x00, 0x18, 0x00,
	0x00, 0x10, 0x00, 0x00, 0x08, 0x00, 0x00, 0x30, 0x00, 0x00, 0x0c, 0x00,
	0x00, 0x20, 0x00, 0x00, 0x04, 0x00, 0x00, 0x40, 0x00, 0x00, 0x02, 0x00,
	0x00, 0x80, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0xc0, 0x00, 0x00,
	0x00, 0x00, 0x1e, 0x78, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x0f, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}
