// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeUint16(t *testing.T) {
	for _, v := range []uint16{0, 1, 7, 256, 0x1234, 0xFFFF} {
		got, err := DecodeUint16(EncodeUint16(v))
		if err != nil {
			t.Fatalf("DecodeUint16(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}

	if _, err := DecodeUint16([]byte{0x01}); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("expected ErrBufferTooShort, got %v", err)
	}
}

func TestVBI(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		encoded  []byte
		consumed int
	}{
		{"zero", 0, []byte{0x00}, 1},
		{"single byte max", 127, []byte{0x7F}, 1},
		{"two bytes min", 128, []byte{0x80, 0x01}, 2},
		{"two bytes", 321, []byte{0xC1, 0x02}, 2},
		{"two bytes max", 16383, []byte{0xFF, 0x7F}, 2},
		{"three bytes min", 16384, []byte{0x80, 0x80, 0x01}, 3},
		{"four bytes max", 268435455, []byte{0xFF, 0xFF, 0xFF, 0x7F}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeVBI(tt.value); !bytes.Equal(got, tt.encoded) {
				t.Errorf("EncodeVBI(%d) = %x, want %x", tt.value, got, tt.encoded)
			}

			value, consumed, err := DecodeVBI(tt.encoded)
			if err != nil {
				t.Fatalf("DecodeVBI(%x): %v", tt.encoded, err)
			}
			if value != tt.value || consumed != tt.consumed {
				t.Errorf("DecodeVBI(%x) = (%d, %d), want (%d, %d)",
					tt.encoded, value, consumed, tt.value, tt.consumed)
			}
		})
	}
}

func TestVBIStopsAtClearContinuationBit(t *testing.T) {
	// Trailing bytes after the terminating byte must not be consumed.
	value, consumed, err := DecodeVBI([]byte{0x05, 0xFF, 0xFF})
	if err != nil {
		t.Fatal(err)
	}
	if value != 5 || consumed != 1 {
		t.Errorf("got (%d, %d), want (5, 1)", value, consumed)
	}
}

func TestVBIErrors(t *testing.T) {
	if _, _, err := DecodeVBI(nil); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("empty input: expected ErrBufferTooShort, got %v", err)
	}
	if _, _, err := DecodeVBI([]byte{0x80, 0x80}); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("truncated VBI: expected ErrBufferTooShort, got %v", err)
	}
	if _, _, err := DecodeVBI([]byte{0x80, 0x80, 0x80, 0x80, 0x01}); !errors.Is(err, ErrMalformedVBI) {
		t.Errorf("overlong VBI: expected ErrMalformedVBI, got %v", err)
	}
}
