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

package bridge

import "fmt"

// Kind identifies a display protocol message.
type Kind uint8

const (
	KindUnknown Kind = iota
	// byte path
	KindByteInit
	KindStartTransfer
	KindSendBytes
	KindEndTransfer
	KindSetDC
	// gpio and delay path
	KindGPIOAndDelayInit
	KindDelayMilli
	KindDelay10Micro
	KindDelay100Nano
	KindDelayI2C
	KindGPIOReset
	KindGPIOChipSelect
)

var kindNames = map[Kind]string{
	KindByteInit:         "byte_init",
	KindStartTransfer:    "start_transfer",
	KindSendBytes:        "send_bytes",
	KindEndTransfer:      "end_transfer",
	KindSetDC:            "set_dc",
	KindGPIOAndDelayInit: "gpio_and_delay_init",
	KindDelayMilli:       "delay_milli",
	KindDelay10Micro:     "delay_10micro",
	KindDelay100Nano:     "delay_100nano",
	KindDelayI2C:         "delay_i2c",
	KindGPIOReset:        "gpio_reset",
	KindGPIOChipSelect:   "gpio_cs",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message is one display protocol request. Arg carries the delay amount,
// the line level or the bus speed multiplier depending on Kind. Data is
// only used by KindSendBytes.
type Message struct {
	Data []byte
	Kind Kind
	Arg  uint8
}

func ByteInit() Message { return Message{Kind: KindByteInit} }
func StartTransfer() Message { return Message{Kind: KindStartTransfer} }
func SendBytes(b []byte) Message { return Message{Kind: KindSendBytes, Data: b} }
func EndTransfer() Message { return Message{Kind: KindEndTransfer} }
func SetDC(level uint8) Message { return Message{Kind: KindSetDC, Arg: level} }
func GPIOAndDelayInit() Message { return Message{Kind: KindGPIOAndDelayInit} }
func DelayMilli(ms uint8) Message { return Message{Kind: KindDelayMilli, Arg: ms} }
func Delay10Micro(n uint8) Message { return Message{Kind: KindDelay10Micro, Arg: n} }
func Delay100Nano(n uint8) Message { return Message{Kind: KindDelay100Nano, Arg: n} }
func DelayI2C(mult uint8) Message { return Message{Kind: KindDelayI2C, Arg: mult} }
func GPIOReset(level uint8) Message { return Message{Kind: KindGPIOReset, Arg: level} }

// Sink consumes display protocol messages.
type Sink interface {
	Dispatch(msg Message) error
}
