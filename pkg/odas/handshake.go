// ABOUTME: Version-stamped handshake sent before streaming begins
// ABOUTME: Lets a receiver fail fast when the engine was built with other parameters
package odas

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// HandshakeSize is the fixed wire size of a handshake.
const HandshakeSize = 32

var handshakeMagic = [4]byte{'O', 'D', 'A', 'S'}

// Handshake is the parameter set as announced by the sending side.
type Handshake struct {
	Version    uint16
	Layout     Layout
	ByteOrder  ByteOrder
	MaxSources uint32
	TagLen     uint32
	SampleRate uint32
	HopSize    uint32
	BitDepth   uint32
}

// Handshake builds the handshake announcing p.
func (p Params) Handshake() Handshake {
	return Handshake{
		Version:    ProtocolVersion,
		Layout:     p.Layout,
		ByteOrder:  p.ByteOrder,
		MaxSources: uint32(p.MaxSources),
		TagLen:     uint32(p.TagLen),
		SampleRate: uint32(p.SampleRate),
		HopSize:    uint32(p.HopSize),
		BitDepth:   uint32(p.BitDepth),
	}
}

// MarshalBinary encodes the handshake: magic, version, layout, byte order,
// the five parameters as big-endian uint32, then a CRC-32 of all of it.
func (h Handshake) MarshalBinary() ([]byte, error) {
	b := make([]byte, HandshakeSize)
	copy(b[0:4], handshakeMagic[:])
	binary.BigEndian.PutUint16(b[4:6], h.Version)
	b[6] = byte(h.Layout)
	b[7] = byte(h.ByteOrder)
	binary.BigEndian.PutUint32(b[8:12], h.MaxSources)
	binary.BigEndian.PutUint32(b[12:16], h.TagLen)
	binary.BigEndian.PutUint32(b[16:20], h.SampleRate)
	binary.BigEndian.PutUint32(b[20:24], h.HopSize)
	binary.BigEndian.PutUint32(b[24:28], h.BitDepth)
	binary.BigEndian.PutUint32(b[28:32], crc32.ChecksumIEEE(b[:28]))
	return b, nil
}

// ParseHandshake decodes a handshake and checks magic and checksum.
func ParseHandshake(b []byte) (Handshake, error) {
	if len(b) < HandshakeSize {
		return Handshake{}, fmt.Errorf("odas: handshake too short: %d bytes", len(b))
	}
	if !bytes.Equal(b[0:4], handshakeMagic[:]) {
		return Handshake{}, fmt.Errorf("odas: bad handshake magic %q", b[0:4])
	}
	if sum := binary.BigEndian.Uint32(b[28:32]); sum != crc32.ChecksumIEEE(b[:28]) {
		return Handshake{}, fmt.Errorf("odas: handshake checksum mismatch")
	}
	return Handshake{
		Version:    binary.BigEndian.Uint16(b[4:6]),
		Layout:     Layout(b[6]),
		ByteOrder:  ByteOrder(b[7]),
		MaxSources: binary.BigEndian.Uint32(b[8:12]),
		TagLen:     binary.BigEndian.Uint32(b[12:16]),
		SampleRate: binary.BigEndian.Uint32(b[16:20]),
		HopSize:    binary.BigEndian.Uint32(b[20:24]),
		BitDepth:   binary.BigEndian.Uint32(b[24:28]),
	}, nil
}

// Verify compares the announced parameters with p. Every differing field is
// listed in the returned *MismatchError.
func (h Handshake) Verify(p Params) error {
	local := p.Handshake()
	fields := []struct {
		name          string
		local, remote uint32
	}{
		{"version", uint32(local.Version), uint32(h.Version)},
		{"layout", uint32(local.Layout), uint32(h.Layout)},
		{"byte_order", uint32(local.ByteOrder), uint32(h.ByteOrder)},
		{"max_sources", local.MaxSources, h.MaxSources},
		{"tag_len", local.TagLen, h.TagLen},
		{"sample_rate", local.SampleRate, h.SampleRate},
		{"hop_size", local.HopSize, h.HopSize},
		{"bit_depth", local.BitDepth, h.BitDepth},
	}

	var mismatch MismatchError
	for _, f := range fields {
		if f.local != f.remote {
			mismatch.Fields = append(mismatch.Fields, FieldMismatch{Field: f.name, Local: f.local, Remote: f.remote})
		}
	}
	if len(mismatch.Fields) > 0 {
		return &mismatch
	}
	return nil
}
