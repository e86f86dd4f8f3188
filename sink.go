package pagestore

import (
	"sync/atomic"

	"github.com/lakeviewdb/pagestore/internal/descriptor"
	"github.com/lakeviewdb/pagestore/kvstore"
)

// Sink writes a dataset to a KVStore container: it seals pages, batches
// them into KVStore keys per the configured MappingVariant, and drives the
// commit sequence header -> pages -> pagelists -> footer -> anchor. The
// anchor write is always last: its presence is what makes a dataset visible
// to a Source, mirroring RPageSinkDaos::CommitDatasetImpl in the original
// design.
type Sink struct {
	driver kvstore.Driver
	uri    URI
	opts   *WriteOptions
	alloc  PageAllocator
	desc   *descriptor.Descriptor

	counters *Counters

	columns       []descriptor.ColumnDescriptor
	columnOffsets map[uint64]uint64

	currentClusterID uint64
	currentCluster   *descriptor.ClusterDescriptor

	pendingClusterIDs []uint64
	nextGroupSeq      uint64

	// nextPageSeq is a single counter shared by every column and cluster: it
	// is the position recorded in each page's Locator, and (under
	// OidPerCluster) the attribute key a page is stored at. Invariant: over
	// one writer session the sequence of assigned values is 0, 1, 2, ...
	nextPageSeq atomic.Uint64

	headerNBytes uint32
	headerLen    uint32
	footerNBytes uint32
	footerLen    uint32

	opened    bool
	committed bool
}

// NewSink returns a Sink that writes through driver to the dataset named by
// uri, once Create is called.
func NewSink(driver kvstore.Driver, uri URI, opts WriteOptions) *Sink {
	opts.EnsureDefaults()
	return &Sink{
		driver:        driver,
		uri:           uri,
		opts:          &opts,
		desc:          descriptor.New(),
		counters:      NewCounters("sink"),
		columnOffsets: make(map[uint64]uint64),
	}
}

// Counters returns the sink's observability counters.
func (s *Sink) Counters() *Counters { return s.counters }

// Create opens (creating if necessary) the dataset's pool and container,
// registers columns, and writes the header. It must be called exactly once,
// before any CommitPage/CommitCluster call.
func (s *Sink) Create(columns []descriptor.ColumnDescriptor) error {
	if s.opened {
		return ErrAlreadyOpen
	}
	if err := s.driver.OpenPool(s.uri.Pool); err != nil {
		return errWriteFailed(err)
	}
	if err := s.driver.OpenContainer(s.uri.Container, true); err != nil {
		return errWriteFailed(err)
	}
	if !s.driver.KnownObjectClass(s.opts.ObjectClass) {
		return ErrUnknownObjectClass
	}
	if err := s.driver.SetDefaultObjectClass(s.opts.ObjectClass); err != nil {
		return errWriteFailed(err)
	}

	for _, col := range columns {
		s.desc.AddColumn(col)
		s.columnOffsets[col.ID] = 0
	}
	s.columns = columns
	s.beginCluster()

	headerBlob := descriptor.EncodeHeader(columns)
	sealed, err := s.opts.Compressor.Seal(headerBlob, s.opts.Compression)
	if err != nil {
		return err
	}
	if err := s.driver.WriteSingle(metaKey(attrKeyHeader), metaObjectClass, sealed); err != nil {
		return errWriteFailed(err)
	}
	s.headerNBytes = uint32(len(sealed))
	s.headerLen = uint32(len(headerBlob))

	s.opts.Logger.Infof("pagestore: dataset %s created (experimental kv backend)", s.uri)
	s.opened = true
	return nil
}

// beginCluster opens the next cluster, whose id is the number of clusters
// already finalized by CommitCluster (AddClusterDetails runs before this is
// called, so desc.NClusters already reflects the cluster just closed).
func (s *Sink) beginCluster() {
	s.currentClusterID = s.desc.NClusters()
	s.currentCluster = descriptor.NewClusterDescriptor(s.currentClusterID)
}

// ReservePage allocates an empty page of nElements elements for columnID,
// ready to be filled by the caller and passed to CommitPage.
func (s *Sink) ReservePage(columnID uint64, nElements int) (Page, error) {
	col, ok := s.desc.Column(columnID)
	if !ok {
		return Page{}, ErrUnknownColumn
	}
	return s.alloc.NewPageEmpty(columnID, col.ElementSize, nElements)
}

// ReleasePage releases a page's backing buffer without committing it.
func (s *Sink) ReleasePage(page *Page) {
	s.alloc.DeletePage(page)
}

// commitOnePage records a sealed page's slot in the current cluster's page
// range under the page sequence number it was written at. It does not
// perform the KVStore write; the caller is expected to do that (single or
// batched) and pass the assigned seq and sealed bytes here.
func (s *Sink) commitOnePage(page Page, seq uint64, sealed []byte) descriptor.PageInfo {
	columnID := page.ColumnID()
	if _, ok := s.currentCluster.ColumnRanges[columnID]; !ok {
		s.currentCluster.ColumnRanges[columnID] = descriptor.ColumnRange{
			FirstElementIndex: s.columnOffsets[columnID],
		}
	}
	pr := s.currentCluster.PageRanges[columnID]
	var firstInPage uint64
	for _, pi := range pr.PageInfos {
		firstInPage += pi.NElements
	}
	info := descriptor.PageInfo{
		Locator:     descriptor.Locator{Position: seq, BytesOnStorage: uint64(len(sealed))},
		NElements:   uint64(page.NElements()),
		FirstInPage: firstInPage,
	}
	pr.PageInfos = append(pr.PageInfos, info)
	s.currentCluster.PageRanges[columnID] = pr
	s.columnOffsets[columnID] += uint64(page.NElements())
	return info
}

// CommitPage seals page and writes it with a single KVStore request.
func (s *Sink) CommitPage(page Page) (descriptor.PageInfo, error) {
	columnID := page.ColumnID()

	timer := s.counters.startTimer(s.counters.TimeZip)
	sealed, err := s.opts.Compressor.Seal(page.Buffer(), s.opts.Compression)
	timer.stop()
	if err != nil {
		return descriptor.PageInfo{}, err
	}
	s.counters.SzZip.Add(int64(len(sealed)))
	s.counters.SzUnzip.Add(int64(len(page.Buffer())))

	seq := s.nextPageSeq.Add(1) - 1
	key := pageKey(s.opts.Mapping, s.currentClusterID, columnID, seq)
	writeTimer := s.counters.startTimer(s.counters.TimeWrite)
	err = s.driver.WriteSingle(key, "", sealed)
	writeTimer.stop()
	if err != nil {
		return descriptor.PageInfo{}, errWriteFailed(err)
	}
	s.counters.NWrite.Add(1)
	s.counters.SzWritePayload.Add(int64(len(sealed)))
	s.counters.NPageCommitted.Add(1)

	info := s.commitOnePage(page, seq, sealed)
	return info, nil
}

// CommitPages seals and writes a batch of pages with a single grouped
// KVStore request. All pages must belong to the cluster currently open.
// Page sequence numbers, and therefore returned locators, are assigned in
// the input order over the flattened page list.
func (s *Sink) CommitPages(pages []Page) ([]descriptor.PageInfo, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	batch := make(kvstore.WriteBatch)
	sealedByIdx := make([][]byte, len(pages))
	seqByIdx := make([]uint64, len(pages))

	zipTimer := s.counters.startTimer(s.counters.TimeZip)
	for i, page := range pages {
		sealed, err := s.opts.Compressor.Seal(page.Buffer(), s.opts.Compression)
		if err != nil {
			return nil, err
		}
		sealedByIdx[i] = sealed
		s.counters.SzZip.Add(int64(len(sealed)))
		s.counters.SzUnzip.Add(int64(len(page.Buffer())))

		seq := s.nextPageSeq.Add(1) - 1
		seqByIdx[i] = seq
		key := pageKey(s.opts.Mapping, s.currentClusterID, page.ColumnID(), seq)
		batch.Insert(kvstore.ObjDkey{Oid: key.Oid, Dkey: key.Dkey}, key.Akey, sealed)
	}
	zipTimer.stop()

	writeTimer := s.counters.startTimer(s.counters.TimeWrite)
	err := s.driver.WriteV(batch)
	writeTimer.stop()
	if err != nil {
		return nil, errWriteFailed(err)
	}
	s.counters.NWriteV.Add(1)

	infos := make([]descriptor.PageInfo, len(pages))
	for i, page := range pages {
		infos[i] = s.commitOnePage(page, seqByIdx[i], sealedByIdx[i])
		s.counters.SzWritePayload.Add(int64(len(sealedByIdx[i])))
		s.counters.NPageCommitted.Add(1)
	}
	return infos, nil
}

// CommitCluster finalizes the currently open cluster as having nEntries
// rows and opens the next one.
func (s *Sink) CommitCluster(nEntries uint64) error {
	s.currentCluster.NEntries = nEntries
	s.desc.AddClusterDetails(s.currentCluster)
	s.pendingClusterIDs = append(s.pendingClusterIDs, s.currentCluster.ID)
	s.beginCluster()
	return nil
}

// CommitClusterGroup seals and writes a pagelist blob summarizing every
// cluster committed since the last CommitClusterGroup call.
func (s *Sink) CommitClusterGroup() error {
	if len(s.pendingClusterIDs) == 0 {
		return nil
	}
	clusters := make([]*descriptor.ClusterDescriptor, 0, len(s.pendingClusterIDs))
	for _, id := range s.pendingClusterIDs {
		cd, ok := s.desc.ClusterDescriptor(id)
		if !ok {
			return ErrCorrupt
		}
		clusters = append(clusters, cd)
	}

	blob := descriptor.EncodePageList(clusters)
	sealed, err := s.opts.Compressor.Seal(blob, s.opts.Compression)
	if err != nil {
		return err
	}
	groupID := s.nextGroupSeq
	if err := s.driver.WriteSingle(pageListKey(groupID), metaObjectClass, sealed); err != nil {
		return errWriteFailed(err)
	}
	s.desc.AddClusterGroup(descriptor.ClusterGroupDescriptor{
		ID:             groupID,
		Locator:        descriptor.Locator{Position: groupID, BytesOnStorage: uint64(len(sealed))},
		PageListLength: uint32(len(blob)),
	})
	s.nextGroupSeq++
	s.pendingClusterIDs = nil
	return nil
}

// CommitDataset flushes any remaining cluster group, writes the footer, and
// finally writes the anchor. The anchor write is the dataset's commit
// point: once it succeeds, a Source can attach.
func (s *Sink) CommitDataset() error {
	if s.committed {
		return ErrAlreadyOpen
	}
	if len(s.currentCluster.PageRanges) > 0 {
		return ErrDatasetNotCommitted
	}
	if err := s.CommitClusterGroup(); err != nil {
		return err
	}

	footerBlob := descriptor.EncodeFooter(s.desc.ClusterGroups())
	sealedFooter, err := s.opts.Compressor.Seal(footerBlob, s.opts.Compression)
	if err != nil {
		return err
	}
	if err := s.driver.WriteSingle(metaKey(attrKeyFooter), metaObjectClass, sealedFooter); err != nil {
		return errWriteFailed(err)
	}
	s.footerNBytes = uint32(len(sealedFooter))
	s.footerLen = uint32(len(footerBlob))

	anchor := Anchor{
		Version:      1,
		NBytesHeader: s.headerNBytes,
		LenHeader:    s.headerLen,
		NBytesFooter: s.footerNBytes,
		LenFooter:    s.footerLen,
		ObjClass:     string(s.opts.ObjectClass),
	}
	buf := make([]byte, AnchorMaxSize())
	if _, err := anchor.Serialize(buf); err != nil {
		return err
	}
	if err := s.driver.WriteSingle(metaKey(attrKeyAnchor), metaObjectClass, buf); err != nil {
		return errWriteFailed(err)
	}

	s.committed = true
	return nil
}
