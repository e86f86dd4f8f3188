package pagestore

import "sync/atomic"

// onDiskPageKey addresses a page within a cluster's on-disk page map by
// column id and its zero-based page number within that column.
type onDiskPageKey struct {
	columnID uint64
	pageNo   uint64
}

type onDiskPageSlot struct {
	offset int
	size   int
}

// Cluster holds the sealed (compressed) pages of one horizontal partition
// of rows, backed by a single contiguous byte arena so that a whole
// cluster can be read with one KVStore batch. It does not own decompressed
// pages: those live in a PagePool once produced.
type Cluster struct {
	id      uint64
	arena   []byte
	pages   map[onDiskPageKey]onDiskPageSlot
	columns map[uint64]bool

	pinned atomic.Int32
}

// NewCluster returns an empty cluster for the given cluster id.
func NewCluster(id uint64) *Cluster {
	return &Cluster{
		id:      id,
		columns: make(map[uint64]bool),
	}
}

// ID returns the cluster's id.
func (c *Cluster) ID() uint64 { return c.id }

// Adopt gives the cluster ownership of arena and its on-disk page map. It
// is called once, when the cluster is assembled by LoadClusters.
func (c *Cluster) Adopt(arena []byte, pages map[onDiskPageKey]onDiskPageSlot) {
	c.arena = arena
	c.pages = pages
}

// SetColumnAvailable marks columnID as present in this cluster.
func (c *Cluster) SetColumnAvailable(columnID uint64) {
	c.columns[columnID] = true
}

// ContainsColumn reports whether columnID was loaded into this cluster.
func (c *Cluster) ContainsColumn(columnID uint64) bool {
	return c.columns[columnID]
}

// AvailableColumns returns the columns loaded into this cluster.
func (c *Cluster) AvailableColumns() []uint64 {
	cols := make([]uint64, 0, len(c.columns))
	for id := range c.columns {
		cols = append(cols, id)
	}
	return cols
}

// NOnDiskPages returns the number of sealed pages held by this cluster.
func (c *Cluster) NOnDiskPages() int { return len(c.pages) }

// OnDiskPage returns the sealed bytes for (columnID, pageNo), a
// non-owning slice into the cluster's arena.
func (c *Cluster) OnDiskPage(columnID, pageNo uint64) ([]byte, bool) {
	slot, ok := c.pages[onDiskPageKey{columnID, pageNo}]
	if !ok {
		return nil, false
	}
	return c.arena[slot.offset : slot.offset+slot.size], true
}

// Pin increments the cluster's pin count. GetCluster pins the cluster it
// returns and a Source unpins it once the page read from it is done. The
// count does not affect retention: the cluster pool never evicts.
func (c *Cluster) Pin() { c.pinned.Add(1) }

// Unpin decrements the cluster's pin count.
func (c *Cluster) Unpin() { c.pinned.Add(-1) }

// IsPinned reports whether the cluster is currently referenced by any
// Source.
func (c *Cluster) IsPinned() bool { return c.pinned.Load() > 0 }
