package pagestore

import (
	"encoding/binary"

	"github.com/lakeviewdb/pagestore/kvstore"
)

// anchorFixedSize is the byte size of the five little-endian u32 fields that
// precede the object-class string.
const anchorFixedSize = 20

// Anchor is the small, fixed-layout record written last by a Sink. Its
// presence at (META_OID, DEFAULT_DKEY, ANCHOR_AKEY) is a dataset's commit
// marker: a Source refuses to attach to a dataset whose anchor is missing or
// unreadable.
type Anchor struct {
	Version      uint32
	NBytesHeader uint32
	LenHeader    uint32
	NBytesFooter uint32
	LenFooter    uint32
	ObjClass     string
}

// Size returns the exact number of bytes Serialize needs for this anchor.
func (a Anchor) Size() int {
	return anchorFixedSize + 4 + len(a.ObjClass)
}

// Serialize writes the anchor's on-storage bytes into buf, which must be at
// least a.Size() bytes long, and returns the number of bytes written.
func (a Anchor) Serialize(buf []byte) (int, error) {
	n := a.Size()
	if len(buf) < n {
		return 0, ErrCorrupt
	}
	binary.LittleEndian.PutUint32(buf[0:4], a.Version)
	binary.LittleEndian.PutUint32(buf[4:8], a.NBytesHeader)
	binary.LittleEndian.PutUint32(buf[8:12], a.LenHeader)
	binary.LittleEndian.PutUint32(buf[12:16], a.NBytesFooter)
	binary.LittleEndian.PutUint32(buf[16:20], a.LenFooter)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(a.ObjClass)))
	copy(buf[24:n], a.ObjClass)
	return n, nil
}

// DeserializeAnchor decodes an Anchor from buf. buf may carry trailing bytes
// beyond the record (as it does when read into an AnchorMaxSize buffer); they
// are ignored. Returns the number of bytes actually consumed.
func DeserializeAnchor(buf []byte) (Anchor, int, error) {
	if len(buf) < anchorFixedSize {
		return Anchor{}, 0, ErrAnchorTooShort
	}
	var a Anchor
	a.Version = binary.LittleEndian.Uint32(buf[0:4])
	a.NBytesHeader = binary.LittleEndian.Uint32(buf[4:8])
	a.LenHeader = binary.LittleEndian.Uint32(buf[8:12])
	a.NBytesFooter = binary.LittleEndian.Uint32(buf[12:16])
	a.LenFooter = binary.LittleEndian.Uint32(buf[16:20])

	rest := buf[anchorFixedSize:]
	if len(rest) < 4 {
		return Anchor{}, 0, ErrAnchorDecodeFailed
	}
	classLen := binary.LittleEndian.Uint32(rest[0:4])
	if uint64(4+classLen) > uint64(len(rest)) {
		return Anchor{}, 0, ErrAnchorDecodeFailed
	}
	a.ObjClass = string(rest[4 : 4+classLen])
	return a, anchorFixedSize + 4 + int(classLen), nil
}

// AnchorMaxSize returns the buffer size a Source must allocate to read any
// anchor: the fixed fields, the string length prefix, and the driver's
// object-class-name upper bound. Extra trailing bytes in the stored record
// are ignored on read.
func AnchorMaxSize() int {
	return anchorFixedSize + 4 + kvstore.MaxObjectClassNameLength
}
