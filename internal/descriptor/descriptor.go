// Package descriptor implements the minimal in-memory metadata tree the
// page-storage engine needs to map (column, index) coordinates onto pages:
// columns, clusters, per-column page ranges and cluster groups. It stands
// in for the "higher-level logical model/descriptor builder" spec.md
// treats as an external collaborator, scoped down to exactly what a Sink
// and Source need to drive the engine end to end. It is not a full logical
// type system: column types, field trees and the header/footer payload
// schema remain out of scope.
package descriptor

import "sync"

// Locator finds a payload: position is the KVStore attribute key (or, for a
// pagelist, the cluster-group sequence number) and bytesOnStorage is the
// sealed (compressed) size.
type Locator struct {
	Position       uint64
	BytesOnStorage uint64
}

// ColumnDescriptor describes one column's element layout.
type ColumnDescriptor struct {
	ID          uint64
	ElementSize int
}

// PageInfo describes one committed page: its Locator, the number of
// elements it holds, and its cumulative element offset within its column
// within its cluster.
type PageInfo struct {
	Locator     Locator
	NElements   uint64
	FirstInPage uint64
}

// PageRange is the ordered list of pages a column contributed to a
// cluster, starting at element 0.
type PageRange struct {
	PageInfos []PageInfo
}

// Find returns the page containing idxInCluster, its zero-based page
// number within this range, and whether such a page exists.
func (pr PageRange) Find(idxInCluster uint64) (info PageInfo, pageNo uint64, ok bool) {
	for i, pi := range pr.PageInfos {
		if idxInCluster >= pi.FirstInPage && idxInCluster < pi.FirstInPage+pi.NElements {
			return pi, uint64(i), true
		}
	}
	return PageInfo{}, 0, false
}

// NElements returns the total element count across every page in the range.
func (pr PageRange) NElements() uint64 {
	var n uint64
	for _, pi := range pr.PageInfos {
		n += pi.NElements
	}
	return n
}

// ColumnRange records where a column's elements for one cluster begin in
// the column's dataset-global index space.
type ColumnRange struct {
	FirstElementIndex uint64
}

// ClusterDescriptor describes one cluster's contribution per column.
type ClusterDescriptor struct {
	ID           uint64
	NEntries     uint64
	ColumnRanges map[uint64]ColumnRange
	PageRanges   map[uint64]PageRange
}

// NewClusterDescriptor returns an empty descriptor for clusterID.
func NewClusterDescriptor(clusterID uint64) *ClusterDescriptor {
	return &ClusterDescriptor{
		ID:           clusterID,
		ColumnRanges: make(map[uint64]ColumnRange),
		PageRanges:   make(map[uint64]PageRange),
	}
}

// ColumnRange returns the column range recorded for columnID.
func (cd *ClusterDescriptor) ColumnRange(columnID uint64) ColumnRange {
	return cd.ColumnRanges[columnID]
}

// PageRange returns the page range recorded for columnID.
func (cd *ClusterDescriptor) PageRange(columnID uint64) PageRange {
	return cd.PageRanges[columnID]
}

// ClusterGroupDescriptor names a pagelist blob and the clusters
// summarized by it.
type ClusterGroupDescriptor struct {
	ID             uint64
	Locator        Locator
	PageListLength uint32
}

// Descriptor is the in-memory metadata tree assembled by Source.Attach and
// consulted by Sink for cluster-count bookkeeping. All accessors are safe
// for concurrent use: page lookups take a read lock for the minimum scope
// needed to copy out the answer.
type Descriptor struct {
	mu sync.RWMutex

	columns     map[uint64]ColumnDescriptor
	columnOrder []uint64

	clusters     map[uint64]*ClusterDescriptor
	clusterOrder []uint64

	clusterGroups []ClusterGroupDescriptor
}

// New returns an empty Descriptor.
func New() *Descriptor {
	return &Descriptor{
		columns:  make(map[uint64]ColumnDescriptor),
		clusters: make(map[uint64]*ClusterDescriptor),
	}
}

// AddColumn registers a column. Columns must be added before any cluster
// that references them.
func (d *Descriptor) AddColumn(col ColumnDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.columns[col.ID]; !ok {
		d.columnOrder = append(d.columnOrder, col.ID)
	}
	d.columns[col.ID] = col
}

// Column returns the column descriptor for id.
func (d *Descriptor) Column(id uint64) (ColumnDescriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.columns[id]
	return c, ok
}

// Columns returns every registered column, in the order columns were added.
func (d *Descriptor) Columns() []ColumnDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]ColumnDescriptor, 0, len(d.columnOrder))
	for _, id := range d.columnOrder {
		out = append(out, d.columns[id])
	}
	return out
}

// NClusters returns the number of clusters currently known to the
// descriptor, which a Sink uses as the next cluster id to assign.
func (d *Descriptor) NClusters() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return uint64(len(d.clusterOrder))
}

// AddClusterDetails registers a fully-populated cluster descriptor. Called
// by Source.Attach while replaying pagelists, and by Sink.CommitCluster
// once a cluster's pages have all been committed.
func (d *Descriptor) AddClusterDetails(cd *ClusterDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.clusters[cd.ID]; !ok {
		d.clusterOrder = append(d.clusterOrder, cd.ID)
	}
	d.clusters[cd.ID] = cd
}

// ClusterDescriptor returns the descriptor for clusterID.
func (d *Descriptor) ClusterDescriptor(clusterID uint64) (*ClusterDescriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cd, ok := d.clusters[clusterID]
	return cd, ok
}

// FindClusterID returns the id of the cluster holding globalIndex for
// columnID.
func (d *Descriptor) FindClusterID(columnID, globalIndex uint64) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, id := range d.clusterOrder {
		cd := d.clusters[id]
		cr, ok := cd.ColumnRanges[columnID]
		if !ok {
			continue
		}
		pr := cd.PageRanges[columnID]
		if globalIndex >= cr.FirstElementIndex && globalIndex < cr.FirstElementIndex+pr.NElements() {
			return id, true
		}
	}
	return 0, false
}

// AddClusterGroup registers a cluster group's pagelist locator.
func (d *Descriptor) AddClusterGroup(cg ClusterGroupDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clusterGroups = append(d.clusterGroups, cg)
}

// ClusterGroups returns the registered cluster groups, in the order they
// were added (which Source.Attach preserves as the footer's order).
func (d *Descriptor) ClusterGroups() []ClusterGroupDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]ClusterGroupDescriptor, len(d.clusterGroups))
	copy(out, d.clusterGroups)
	return out
}
