// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/sensormesh/gatewaykit/codec"
)

// Connect represents the MQTT 3.1.1 CONNECT packet. The broker inspects
// only the fixed header of an incoming CONNECT, so decoding the variable
// header is not implemented; the encoder exists for clients and tests
// driving the broker over a raw socket.
type Connect struct {
	FixedHeader
	ClientID     string
	CleanSession bool
	KeepAlive    uint16
}

func (c *Connect) String() string {
	return fmt.Sprintf("%s\nClientID: %s\nCleanSession: %t\nKeepAlive: %d\n", c.FixedHeader, c.ClientID, c.CleanSession, c.KeepAlive)
}

func (c *Connect) Type() byte {
	return ConnectType
}

func (c *Connect) Encode() []byte {
	var body []byte
	body = append(body, codec.EncodeUint16(4)...)
	body = append(body, "MQTT"...)
	body = append(body, 0x04) // protocol level 3.1.1

	var flags byte
	if c.CleanSession {
		flags |= 0x02
	}
	body = append(body, flags)
	body = append(body, codec.EncodeUint16(c.KeepAlive)...)

	body = append(body, codec.EncodeUint16(uint16(len(c.ClientID)))...)
	body = append(body, c.ClientID...)

	c.FixedHeader.PacketType = ConnectType
	c.FixedHeader.RemainingLength = len(body)
	return append(c.FixedHeader.Encode(), body...)
}
