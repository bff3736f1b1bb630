// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "fmt"

// PingResp represents the MQTT 3.1.1 PINGRESP packet.
type PingResp struct {
	FixedHeader
}

func (p *PingResp) String() string {
	return fmt.Sprintf("%s\n", p.FixedHeader)
}

func (p *PingResp) Type() byte {
	return PingRespType
}

func (p *PingResp) Encode() []byte {
	p.FixedHeader.PacketType = PingRespType
	p.FixedHeader.RemainingLength = 0
	return p.FixedHeader.Encode()
}
