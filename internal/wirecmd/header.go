// Package wirecmd implements the generated-per-command marshalling layer of
// the wire protocol: the fixed command header, checked variable-length-
// argument sizing, and per-command Serialize/Deserialize pairs. A real
// deployment would generate these from an API schema; the command set here
// is written by hand for the object types this module implements (Device,
// Buffer, CommandEncoderBuilder/CommandEncoder).
//
// All multi-byte fields use little-endian encoding, marshalled field by
// field with no reflection on the hot path.
package wirecmd

import "encoding/binary"

// HeaderSize is the size in bytes of the fixed command header shared by
// every forward and return command.
const HeaderSize = 8

// Header is the fixed header prefixing every forward and return command.
type Header struct {
	CommandID   uint32
	CommandSize uint32
}

// PutHeader writes h to buf[0:8]. buf must be at least HeaderSize long.
func PutHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], h.CommandID)
	binary.LittleEndian.PutUint32(buf[4:8], h.CommandSize)
}

// GetHeader reads a Header from buf[0:8]. buf must be at least HeaderSize
// long; callers check length before calling.
func GetHeader(buf []byte) Header {
	return Header{
		CommandID:   binary.LittleEndian.Uint32(buf[0:4]),
		CommandSize: binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// le is a small helper namespace for the repeated little-endian field
// reads/writes in the per-command (de)serializers below.
var le = binary.LittleEndian

// Command is satisfied by every per-command struct in this package: each
// knows its own serialized body size (excluding the fixed Header) and can
// write itself into an exactly-sized buffer.
type Command interface {
	Size_() (uint64, error)
	Serialize(buf []byte)
}
