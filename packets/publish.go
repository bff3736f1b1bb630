// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"strings"

	"github.com/sensormesh/gatewaykit/codec"
)

// Publish represents the decoded fields of an MQTT 3.1.1 PUBLISH packet.
type Publish struct {
	FixedHeader
	TopicName string
	ID        uint16 // Packet Identifier, set only for QoS > 0
	Payload   []byte
}

func (p *Publish) String() string {
	return fmt.Sprintf("%s\nTopic: %s\nPacketID: %d\nPayload: %s\n", p.FixedHeader, p.TopicName, p.ID, string(p.Payload))
}

func (p *Publish) Type() byte {
	return PublishType
}

// Encode serializes the packet, computing the remaining length from the body.
func (p *Publish) Encode() []byte {
	var body []byte
	body = append(body, codec.EncodeUint16(uint16(len(p.TopicName)))...)
	body = append(body, p.TopicName...)
	if p.QoS > 0 {
		body = append(body, codec.EncodeUint16(p.ID)...)
	}
	body = append(body, p.Payload...)
	p.FixedHeader.PacketType = PublishType
	p.FixedHeader.RemainingLength = len(body)
	return append(p.FixedHeader.Encode(), body...)
}

// DecodePublish parses the variable header and payload of a PUBLISH packet.
// body holds everything after the fixed header. The topic is decoded as
// UTF-8 with invalid sequences replaced, never failing the packet; for
// QoS > 0 the two packet identifier bytes are consumed. All remaining bytes
// are the payload.
func DecodePublish(body []byte, fh FixedHeader) (Publish, error) {
	p := Publish{FixedHeader: fh}

	topicLen, err := codec.DecodeUint16(body)
	if err != nil {
		return p, fmt.Errorf("topic length: %w", err)
	}
	body = body[2:]

	if int(topicLen) > len(body) {
		return p, fmt.Errorf("topic: %w", codec.ErrBufferTooShort)
	}
	p.TopicName = strings.ToValidUTF8(string(body[:topicLen]), "�")
	body = body[topicLen:]

	if fh.QoS > 0 {
		p.ID, err = codec.DecodeUint16(body)
		if err != nil {
			return p, fmt.Errorf("packet identifier: %w", err)
		}
		body = body[2:]
	}

	p.Payload = body
	return p, nil
}
