// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "fmt"

// ConnAck represents the MQTT 3.1.1 CONNACK packet. The mock broker only
// ever sends the "connection accepted" form with no session present.
type ConnAck struct {
	FixedHeader
	SessionPresent bool
	ReturnCode     byte
}

func (c *ConnAck) String() string {
	return fmt.Sprintf("%s\nSessionPresent: %t\nReturnCode: %d\n", c.FixedHeader, c.SessionPresent, c.ReturnCode)
}

func (c *ConnAck) Type() byte {
	return ConnAckType
}

func (c *ConnAck) Encode() []byte {
	var flags byte
	if c.SessionPresent {
		flags |= 0x01
	}
	body := []byte{flags, c.ReturnCode}
	c.FixedHeader.PacketType = ConnAckType
	c.FixedHeader.RemainingLength = len(body)
	return append(c.FixedHeader.Encode(), body...)
}
