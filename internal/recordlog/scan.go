package recordlog

import (
	"errors"
	"io"

	"github.com/mindtouch/dreamqueue/internal/vfs"
)

// frameInfo describes a single frame found by scanNext.
type frameInfo struct {
	marker     [markerSize]byte
	length     int32
	offset     int64 // offset of the marker
	payloadOff int64 // offset of the first payload byte
	nextOffset int64 // offset one past the payload
}

// scanNext finds the next well-formed frame at or after start, within
// [0, limit). It implements the corruption recovery rule: an unknown marker,
// an invalid length, or a length that would read past limit is treated as a
// single corrupt byte; the scan resumes one byte later. It returns ok=false
// once fewer than headerSize bytes remain before limit.
func scanNext(file vfs.File, start, limit int64) (frameInfo, bool, error) {
	offset := start
	for {
		if offset+markerSize > limit {
			return frameInfo{}, false, nil
		}
		var mbuf [markerSize]byte
		if _, err := file.ReadAt(mbuf[:], offset); err != nil {
			if errors.Is(err, io.EOF) {
				return frameInfo{}, false, nil
			}
			return frameInfo{}, false, err
		}
		var marker [markerSize]byte
		copy(marker[:], mbuf[:])
		if !isKnownMarker(marker) {
			offset++
			continue
		}
		if offset+headerSize > limit {
			// Marker present but the length field is torn (e.g. a crash
			// mid-append). Indistinguishable from corruption.
			offset++
			continue
		}
		var lbuf [lengthSize]byte
		if _, err := file.ReadAt(lbuf[:], offset+markerSize); err != nil {
			if errors.Is(err, io.EOF) {
				offset++
				continue
			}
			return frameInfo{}, false, err
		}
		length := decodeLength(lbuf[:])
		if length < 0 || offset+headerSize+int64(length) > limit {
			offset++
			continue
		}
		return frameInfo{
			marker:     marker,
			length:     length,
			offset:     offset,
			payloadOff: offset + headerSize,
			nextOffset: offset + headerSize + int64(length),
		}, true, nil
	}
}

// scanCount walks every frame from offset 0 to limit and counts the live
// ones, per the open-time scan described for the single-file log.
func scanCount(file vfs.File, limit int64) (int, error) {
	count := 0
	offset := int64(0)
	for {
		fi, ok, err := scanNext(file, offset, limit)
		if err != nil {
			return 0, err
		}
		if !ok {
			return count, nil
		}
		if isLive(fi.marker) {
			count++
		}
		offset = fi.nextOffset
	}
}
