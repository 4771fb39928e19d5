package pile

import "encoding/binary"

// Record framing constants.
//
// Every record on disk is a 64-byte header followed by its payload and
// zero padding out to the next multiple of 64 bytes. A record is therefore
// never shorter than 128 bytes, even for a zero-length blob.
const (
	// recordHeaderSize is the fixed size of a record header.
	recordHeaderSize = 64

	// recordAlignment is the alignment every record's total framed size
	// (header + payload + padding) is rounded up to.
	recordAlignment = 64

	// digestSize is the size in bytes of a digest.
	digestSize = 32
)

// magicMarker is the fixed 16-byte constant at the start of every record.
var magicMarker = [16]byte{
	0x1E, 0x08, 0xB0, 0x22, 0xFF, 0x2F, 0x47, 0xB6,
	0xEB, 0xAC, 0xF1, 0xD6, 0x8E, 0xB3, 0x5D, 0x96,
}

// Header field offsets within a 64-byte record header.
const (
	offMagic     = 0  // [16]byte
	offTimestamp = 16 // uint64, milliseconds since Unix epoch
	offLength    = 24 // uint64, payload length L
	offHash      = 32 // [32]byte
)

// recordHeader is the in-memory representation of a 64-byte record header.
type recordHeader struct {
	Magic     [16]byte
	Timestamp uint64
	Length    uint64
	Hash      Digest
}

// encodeRecordHeader serializes h into a freshly allocated 64-byte slice.
func encodeRecordHeader(h recordHeader) []byte {
	buf := make([]byte, recordHeaderSize)

	copy(buf[offMagic:], h.Magic[:])
	binary.LittleEndian.PutUint64(buf[offTimestamp:], h.Timestamp)
	binary.LittleEndian.PutUint64(buf[offLength:], h.Length)
	copy(buf[offHash:], h.Hash[:])

	return buf
}

// decodeRecordHeader deserializes a 64-byte slice into a recordHeader. The
// caller is responsible for validating the magic marker.
func decodeRecordHeader(buf []byte) recordHeader {
	var h recordHeader

	copy(h.Magic[:], buf[offMagic:offMagic+16])
	h.Timestamp = binary.LittleEndian.Uint64(buf[offTimestamp:])
	h.Length = binary.LittleEndian.Uint64(buf[offLength:])
	copy(h.Hash[:], buf[offHash:offHash+digestSize])

	return h
}

// paddingFor returns the number of zero padding bytes that follow a payload
// of the given length, per spec: P = 64 - (L mod 64), so P is always in
// [1, 64] -- a record is never exactly a multiple of 64 bytes of header and
// payload alone, it always carries at least one byte of padding.
func paddingFor(length uint64) uint64 {
	return recordAlignment - (length % recordAlignment)
}

// framedSize returns the total on-disk size of a record carrying a payload
// of the given length: header + payload + padding.
func framedSize(length uint64) uint64 {
	return recordHeaderSize + length + paddingFor(length)
}
