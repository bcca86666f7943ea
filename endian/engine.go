// Package endian provides byte order utilities for binary record decoding.
//
// It combines the ByteOrder and AppendByteOrder interfaces of the standard
// encoding/binary package into a single EndianEngine interface, so decoders
// can both read fixed-width fields and append them without juggling two
// values.
//
// DataFlash records are little-endian on disk, so most callers only need
// GetLittleEndianEngine().
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface for convenient byte order operations.
//
// The interface is satisfied by binary.LittleEndian and binary.BigEndian,
// keeping it fully compatible with existing code.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine. This is the wire
// order of the DataFlash format.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
