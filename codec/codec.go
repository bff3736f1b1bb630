// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package codec provides byte-level primitives shared by the MQTT packet
// decoder: big-endian integers and the variable byte integer used for the
// remaining-length field.
package codec

import "errors"

// ErrBufferTooShort indicates the buffer ends before the field it should contain.
var ErrBufferTooShort = errors.New("buffer too short")

// ErrMalformedVBI indicates a variable byte integer longer than four bytes.
var ErrMalformedVBI = errors.New("malformed variable byte integer")

// EncodeUint16 serializes v as two big-endian bytes.
func EncodeUint16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// DecodeUint16 reads two big-endian bytes from the front of data.
func DecodeUint16(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, ErrBufferTooShort
	}
	return uint16(data[0])<<8 | uint16(data[1]), nil
}

// EncodeVBI serializes length using the MQTT variable byte integer encoding:
// 7 bits of magnitude per byte, high bit set while more bytes follow.
func EncodeVBI(length int) []byte {
	var out []byte
	for {
		digit := byte(length % 128)
		length /= 128
		if length > 0 {
			digit |= 0x80
		}
		out = append(out, digit)
		if length == 0 {
			return out
		}
	}
}

// DecodeVBI parses a variable byte integer from the front of data and
// returns the value and the number of bytes consumed. Decoding stops at the
// first byte whose continuation bit is clear.
func DecodeVBI(data []byte) (int, int, error) {
	var vbi uint32
	var shift uint32
	for i := 0; i < 4; i++ {
		if i >= len(data) {
			return 0, 0, ErrBufferTooShort
		}
		b := data[i]
		vbi |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return int(vbi), i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrMalformedVBI
}
