package pagestore

// ClusterIndex addresses an element by its cluster id and its index within
// that cluster's column range, as an alternative to a dataset-global index.
type ClusterIndex struct {
	ClusterID uint64
	Index     uint64
}

// Page is a contiguous, decompressed run of column values: the unit of I/O
// and compression. The page pool owns a page's backing buffer once the page
// has been registered with it; before that, the caller that reserved or
// populated the page owns it.
type Page struct {
	columnID    uint64
	buf         []byte
	elementSize int
	nElements   int

	firstInPageIndex      uint64
	clusterID             uint64
	columnOffsetInCluster uint64
}

// IsNull reports whether p carries no backing buffer.
func (p Page) IsNull() bool { return p.buf == nil }

// ColumnID returns the column this page belongs to.
func (p Page) ColumnID() uint64 { return p.columnID }

// Buffer returns the page's raw element bytes.
func (p Page) Buffer() []byte { return p.buf }

// NElements returns the number of elements the page holds.
func (p Page) NElements() int { return p.nElements }

// ElementSize returns the byte size of a single element.
func (p Page) ElementSize() int { return p.elementSize }

// GlobalIndex returns the dataset-global index of the page's first element.
func (p Page) GlobalIndex() uint64 { return p.columnOffsetInCluster + p.firstInPageIndex }

// ClusterIndex returns the page's first element addressed relative to its
// cluster.
func (p Page) ClusterIndex() ClusterIndex {
	return ClusterIndex{ClusterID: p.clusterID, Index: p.firstInPageIndex}
}

// setWindow records where in the dataset this page sits, mirroring
// RPage::SetWindow in the original design.
func (p *Page) setWindow(firstInPageIndex, clusterID, columnOffsetInCluster uint64) {
	p.firstInPageIndex = firstInPageIndex
	p.clusterID = clusterID
	p.columnOffsetInCluster = columnOffsetInCluster
}

// PageAllocator allocates and releases the raw memory backing logical
// pages. It has no state; Sink and Source each hold one by value, so no
// other allocator can be substituted without changing their code.
type PageAllocator struct{}

// NewPageOwning wraps buf, which must be exactly elementSize*nElements
// bytes, in a Page that takes ownership of it.
func (PageAllocator) NewPageOwning(columnID uint64, buf []byte, elementSize, nElements int) Page {
	return Page{columnID: columnID, buf: buf, elementSize: elementSize, nElements: nElements}
}

// NewPageEmpty allocates elementSize*nElements bytes and returns an empty
// page with that capacity, ready to be filled by the caller.
func (a PageAllocator) NewPageEmpty(columnID uint64, elementSize, nElements int) (Page, error) {
	if nElements == 0 {
		return Page{}, ErrEmptyPage
	}
	buf := make([]byte, elementSize*nElements)
	return a.NewPageOwning(columnID, buf, elementSize, nElements), nil
}

// DeletePage releases the buffer owned by page. A null page is a no-op.
func (PageAllocator) DeletePage(page *Page) {
	if page == nil || page.IsNull() {
		return
	}
	page.buf = nil
}
