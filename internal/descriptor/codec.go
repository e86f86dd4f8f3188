package descriptor

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// The wire format for header, footer and pagelist blobs is a flat sequence
// of tagged varint fields, the same shape leveldb's version_edit.go uses
// for MANIFEST records: every blob opens with a one-byte format tag so a
// reader can reject an unrecognized layout outright instead of misreading
// it as valid data.
const (
	tagHeader   byte = 1
	tagFooter   byte = 2
	tagPageList byte = 3
)

var errBadTag = errors.New("descriptor: unrecognized blob tag")

// cursor reads sequential varints/bytes out of a buffer, tracking the
// first decode error it hits so callers can chain reads without checking
// after every call.
type cursor struct {
	buf []byte
	pos int
	err error
}

func (c *cursor) uvarint() uint64 {
	if c.err != nil {
		return 0
	}
	v, n := binary.Uvarint(c.buf[c.pos:])
	if n <= 0 {
		c.err = errors.New("descriptor: truncated varint")
		return 0
	}
	c.pos += n
	return v
}

func (c *cursor) byte() byte {
	if c.err != nil {
		return 0
	}
	if c.pos >= len(c.buf) {
		c.err = errors.New("descriptor: truncated tag byte")
		return 0
	}
	b := c.buf[c.pos]
	c.pos++
	return b
}

// EncodeHeader serializes a dataset's column list.
func EncodeHeader(columns []ColumnDescriptor) []byte {
	buf := []byte{tagHeader}
	buf = binary.AppendUvarint(buf, uint64(len(columns)))
	for _, col := range columns {
		buf = binary.AppendUvarint(buf, col.ID)
		buf = binary.AppendUvarint(buf, uint64(col.ElementSize))
	}
	return buf
}

// DecodeHeader parses a blob produced by EncodeHeader.
func DecodeHeader(blob []byte) ([]ColumnDescriptor, error) {
	c := &cursor{buf: blob}
	if tag := c.byte(); tag != tagHeader {
		return nil, errBadTag
	}
	n := c.uvarint()
	cols := make([]ColumnDescriptor, 0, n)
	for i := uint64(0); i < n; i++ {
		id := c.uvarint()
		sz := c.uvarint()
		cols = append(cols, ColumnDescriptor{ID: id, ElementSize: int(sz)})
	}
	if c.err != nil {
		return nil, errors.Wrap(c.err, "descriptor: decode header")
	}
	return cols, nil
}

// EncodeFooter serializes a dataset's cluster-group list.
func EncodeFooter(groups []ClusterGroupDescriptor) []byte {
	buf := []byte{tagFooter}
	buf = binary.AppendUvarint(buf, uint64(len(groups)))
	for _, g := range groups {
		buf = binary.AppendUvarint(buf, g.ID)
		buf = binary.AppendUvarint(buf, g.Locator.Position)
		buf = binary.AppendUvarint(buf, g.Locator.BytesOnStorage)
		buf = binary.AppendUvarint(buf, uint64(g.PageListLength))
	}
	return buf
}

// DecodeFooter parses a blob produced by EncodeFooter.
func DecodeFooter(blob []byte) ([]ClusterGroupDescriptor, error) {
	c := &cursor{buf: blob}
	if tag := c.byte(); tag != tagFooter {
		return nil, errBadTag
	}
	n := c.uvarint()
	groups := make([]ClusterGroupDescriptor, 0, n)
	for i := uint64(0); i < n; i++ {
		id := c.uvarint()
		pos := c.uvarint()
		bytesOnStorage := c.uvarint()
		pageListLen := c.uvarint()
		groups = append(groups, ClusterGroupDescriptor{
			ID:             id,
			Locator:        Locator{Position: pos, BytesOnStorage: bytesOnStorage},
			PageListLength: uint32(pageListLen),
		})
	}
	if c.err != nil {
		return nil, errors.Wrap(c.err, "descriptor: decode footer")
	}
	return groups, nil
}

// EncodePageList serializes the cluster/column/page detail for one cluster
// group's worth of clusters.
func EncodePageList(clusters []*ClusterDescriptor) []byte {
	buf := []byte{tagPageList}
	buf = binary.AppendUvarint(buf, uint64(len(clusters)))
	for _, cd := range clusters {
		buf = binary.AppendUvarint(buf, cd.ID)
		buf = binary.AppendUvarint(buf, cd.NEntries)
		buf = binary.AppendUvarint(buf, uint64(len(cd.PageRanges)))
		for columnID, pr := range cd.PageRanges {
			cr := cd.ColumnRanges[columnID]
			buf = binary.AppendUvarint(buf, columnID)
			buf = binary.AppendUvarint(buf, cr.FirstElementIndex)
			buf = binary.AppendUvarint(buf, uint64(len(pr.PageInfos)))
			for _, pi := range pr.PageInfos {
				buf = binary.AppendUvarint(buf, pi.Locator.Position)
				buf = binary.AppendUvarint(buf, pi.Locator.BytesOnStorage)
				buf = binary.AppendUvarint(buf, pi.NElements)
				buf = binary.AppendUvarint(buf, pi.FirstInPage)
			}
		}
	}
	return buf
}

// DecodePageList parses a blob produced by EncodePageList.
func DecodePageList(blob []byte) ([]*ClusterDescriptor, error) {
	c := &cursor{buf: blob}
	if tag := c.byte(); tag != tagPageList {
		return nil, errBadTag
	}
	nClusters := c.uvarint()
	out := make([]*ClusterDescriptor, 0, nClusters)
	for i := uint64(0); i < nClusters; i++ {
		cd := NewClusterDescriptor(c.uvarint())
		cd.NEntries = c.uvarint()
		nColumns := c.uvarint()
		for j := uint64(0); j < nColumns; j++ {
			columnID := c.uvarint()
			firstElementIndex := c.uvarint()
			nPages := c.uvarint()
			pr := PageRange{PageInfos: make([]PageInfo, 0, nPages)}
			for k := uint64(0); k < nPages; k++ {
				pos := c.uvarint()
				bytesOnStorage := c.uvarint()
				nElements := c.uvarint()
				firstInPage := c.uvarint()
				pr.PageInfos = append(pr.PageInfos, PageInfo{
					Locator:     Locator{Position: pos, BytesOnStorage: bytesOnStorage},
					NElements:   nElements,
					FirstInPage: firstInPage,
				})
			}
			cd.ColumnRanges[columnID] = ColumnRange{FirstElementIndex: firstElementIndex}
			cd.PageRanges[columnID] = pr
		}
		out = append(out, cd)
	}
	if c.err != nil {
		return nil, errors.Wrap(c.err, "descriptor: decode pagelist")
	}
	return out, nil
}
