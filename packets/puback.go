// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/sensormesh/gatewaykit/codec"
)

// PubAck represents the MQTT 3.1.1 PUBACK packet.
type PubAck struct {
	FixedHeader
	ID uint16
}

func (p *PubAck) String() string {
	return fmt.Sprintf("%s\nPacketID: %d\n", p.FixedHeader, p.ID)
}

func (p *PubAck) Type() byte {
	return PubAckType
}

func (p *PubAck) Encode() []byte {
	body := codec.EncodeUint16(p.ID)
	p.FixedHeader.PacketType = PubAckType
	p.FixedHeader.RemainingLength = len(body)
	return append(p.FixedHeader.Encode(), body...)
}
