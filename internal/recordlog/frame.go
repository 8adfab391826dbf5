// Package recordlog implements the single-file record log: a record-framed,
// append-only file supporting in-place logical deletion, tail truncation on
// terminal deletes, and corruption skip-over on recovery.
//
// frame.go implements the on-disk record frame:
//
//	[4-byte marker][4-byte LE int32 payload_length][payload_length bytes]
package recordlog

import "encoding/binary"

// markerSize is the width of the live/deleted marker.
const markerSize = 4

// lengthSize is the width of the little-endian int32 length prefix.
const lengthSize = 4

// headerSize is the total size of a frame header (marker + length).
const headerSize = markerSize + lengthSize

// liveMarker tags a record that has not been logically deleted.
var liveMarker = [markerSize]byte{0x00, 0x00, 0xFF, 0x01}

// deletedMarker tags a record that has been logically deleted.
var deletedMarker = [markerSize]byte{0x00, 0x00, 0x01, 0xFF}

// encodeLength writes n as a little-endian int32 into dst.
// REQUIRES: len(dst) >= 4.
func encodeLength(dst []byte, n int32) {
	binary.LittleEndian.PutUint32(dst, uint32(n))
}

// decodeLength reads a little-endian int32 from src.
// REQUIRES: len(src) >= 4.
func decodeLength(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

// isLive reports whether m is the live marker.
func isLive(m [markerSize]byte) bool {
	return m == liveMarker
}

// isDeleted reports whether m is the deleted marker.
func isDeleted(m [markerSize]byte) bool {
	return m == deletedMarker
}

// isKnownMarker reports whether m is either a live or deleted marker.
func isKnownMarker(m [markerSize]byte) bool {
	return isLive(m) || isDeleted(m)
}
