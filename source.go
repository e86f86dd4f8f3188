package pagestore

import (
	"github.com/lakeviewdb/pagestore/internal/descriptor"
	"github.com/lakeviewdb/pagestore/kvstore"
)

// Source reads a dataset previously written by a Sink. Attach replays the
// anchor, header, footer and every pagelist into an in-memory descriptor;
// PopulatePage and PopulatePageByClusterIndex resolve (column, index)
// coordinates to decompressed pages, either through the cluster pool
// (batched, cached) or with a direct single-page read, depending on
// ReadOptions.ClusterCache.
type Source struct {
	driver kvstore.Driver
	uri    URI
	opts   *ReadOptions
	alloc  PageAllocator
	desc   *descriptor.Descriptor

	pagePool    *PagePool
	clusterPool *ClusterPool
	scheduler   *TaskScheduler
	counters    *Counters

	objClass kvstore.ObjectClass
	attached bool
}

// NewSource returns a Source that reads through driver from the dataset
// named by uri, once Attach is called.
func NewSource(driver kvstore.Driver, uri URI, opts ReadOptions) *Source {
	opts.EnsureDefaults()
	s := &Source{
		driver:   driver,
		uri:      uri,
		opts:     &opts,
		desc:     descriptor.New(),
		pagePool: NewPagePool(),
		counters: NewCounters("source"),
	}
	s.scheduler = NewTaskScheduler()
	s.clusterPool = NewClusterPool(s.LoadClusters, opts.ClusterBunchSize)
	return s
}

// Counters returns the source's observability counters.
func (s *Source) Counters() *Counters { return s.counters }

// Descriptor exposes the in-memory metadata tree assembled by Attach.
func (s *Source) Descriptor() *descriptor.Descriptor { return s.desc }

// Attach opens the dataset's pool and container, reads its anchor, and
// replays the header, footer and every pagelist into the source's
// descriptor. It fails with ErrUnknownObjectClass if the anchor names an
// object class the driver does not recognize.
func (s *Source) Attach() error {
	if err := s.driver.OpenPool(s.uri.Pool); err != nil {
		return errReadFailed(err)
	}
	if err := s.driver.OpenContainer(s.uri.Container, false); err != nil {
		return errReadFailed(err)
	}

	anchorBuf := make([]byte, AnchorMaxSize())
	if err := s.driver.ReadSingle(metaKey(attrKeyAnchor), metaObjectClass, anchorBuf); err != nil {
		return errReadFailed(err)
	}
	anchor, _, err := DeserializeAnchor(anchorBuf)
	if err != nil {
		return err
	}

	objClass := kvstore.ObjectClass(anchor.ObjClass)
	if !s.driver.KnownObjectClass(objClass) {
		return ErrUnknownObjectClass
	}
	if err := s.driver.SetDefaultObjectClass(objClass); err != nil {
		return errReadFailed(err)
	}
	s.objClass = objClass

	headerBuf := make([]byte, anchor.NBytesHeader)
	if err := s.driver.ReadSingle(metaKey(attrKeyHeader), metaObjectClass, headerBuf); err != nil {
		return errReadFailed(err)
	}
	headerBlob, err := s.opts.Compressor.Unseal(headerBuf, int(anchor.LenHeader))
	if err != nil {
		return err
	}
	columns, err := descriptor.DecodeHeader(headerBlob)
	if err != nil {
		return err
	}
	for _, col := range columns {
		s.desc.AddColumn(col)
	}

	footerBuf := make([]byte, anchor.NBytesFooter)
	if err := s.driver.ReadSingle(metaKey(attrKeyFooter), metaObjectClass, footerBuf); err != nil {
		return errReadFailed(err)
	}
	footerBlob, err := s.opts.Compressor.Unseal(footerBuf, int(anchor.LenFooter))
	if err != nil {
		return err
	}
	groups, err := descriptor.DecodeFooter(footerBlob)
	if err != nil {
		return err
	}

	for _, g := range groups {
		s.desc.AddClusterGroup(g)
		plBuf := make([]byte, g.Locator.BytesOnStorage)
		if err := s.driver.ReadSingle(pageListKey(g.ID), metaObjectClass, plBuf); err != nil {
			return errReadFailed(err)
		}
		plBlob, err := s.opts.Compressor.Unseal(plBuf, int(g.PageListLength))
		if err != nil {
			return err
		}
		clusters, err := descriptor.DecodePageList(plBlob)
		if err != nil {
			return err
		}
		for _, cd := range clusters {
			s.desc.AddClusterDetails(cd)
		}
	}

	s.attached = true
	return nil
}

// PopulatePage resolves columnID's element at the dataset-global index
// globalIndex to a decompressed page, populating the page pool on a miss.
func (s *Source) PopulatePage(columnID, globalIndex uint64) (Page, error) {
	if page, ok := s.pagePool.GetByGlobalIndex(columnID, globalIndex); ok {
		return page, nil
	}
	clusterID, ok := s.desc.FindClusterID(columnID, globalIndex)
	if !ok {
		return Page{}, ErrIndexOutOfRange
	}
	cd, ok := s.desc.ClusterDescriptor(clusterID)
	if !ok {
		return Page{}, ErrCorrupt
	}
	cr := cd.ColumnRange(columnID)
	return s.populateFromCluster(cd, columnID, globalIndex-cr.FirstElementIndex)
}

// PopulatePageByClusterIndex resolves columnID's element at ci to a
// decompressed page, populating the page pool on a miss.
func (s *Source) PopulatePageByClusterIndex(columnID uint64, ci ClusterIndex) (Page, error) {
	if page, ok := s.pagePool.GetByClusterIndex(columnID, ci); ok {
		return page, nil
	}
	cd, ok := s.desc.ClusterDescriptor(ci.ClusterID)
	if !ok {
		return Page{}, ErrIndexOutOfRange
	}
	return s.populateFromCluster(cd, columnID, ci.Index)
}

func (s *Source) populateFromCluster(cd *descriptor.ClusterDescriptor, columnID, idxInCluster uint64) (Page, error) {
	col, ok := s.desc.Column(columnID)
	if !ok {
		return Page{}, ErrUnknownColumn
	}
	pr := cd.PageRange(columnID)
	info, pageNo, ok := pr.Find(idxInCluster)
	if !ok {
		return Page{}, ErrIndexOutOfRange
	}
	cr := cd.ColumnRange(columnID)

	var sealed []byte
	var err error
	switch s.opts.ClusterCache {
	case ClusterCacheOff:
		sealed, err = s.LoadSealedPage(cd.ID, columnID, info)
		if err != nil {
			return Page{}, err
		}
		s.counters.NPageLoadedDirect.Add(1)
	default:
		cluster, cerr := s.clusterPool.GetCluster(cd.ID, []uint64{columnID})
		if cerr != nil {
			return Page{}, cerr
		}
		defer cluster.Unpin()
		on, ok := cluster.OnDiskPage(columnID, pageNo)
		if !ok {
			return Page{}, ErrCorrupt
		}
		sealed = on
		s.counters.NPageLoadedPrefetched.Add(1)
	}

	nElements := int(info.NElements)
	unzipTimer := s.counters.startTimer(s.counters.TimeUnzip)
	buf, err := s.opts.Compressor.Unseal(sealed, nElements*col.ElementSize)
	unzipTimer.stop()
	if err != nil {
		return Page{}, err
	}
	s.counters.SzUnzip.Add(int64(len(buf)))

	page := s.alloc.NewPageOwning(columnID, buf, col.ElementSize, nElements)
	page.setWindow(info.FirstInPage, cd.ID, cr.FirstElementIndex)
	s.pagePool.RegisterPage(page, func(p *Page) { s.alloc.DeletePage(p) })
	s.counters.NPagePopulated.Add(1)
	return page, nil
}

// LoadSealedPage issues a direct, single-key read for one page's sealed
// bytes, bypassing the cluster pool. info.Locator.Position is the page
// sequence number the sink assigned it, which the KVStore coordinates are
// derived from.
func (s *Source) LoadSealedPage(clusterID, columnID uint64, info descriptor.PageInfo) ([]byte, error) {
	key := pageKey(s.opts.Mapping, clusterID, columnID, info.Locator.Position)
	buf := make([]byte, info.Locator.BytesOnStorage)
	readTimer := s.counters.startTimer(s.counters.TimeRead)
	s.counters.NRead.Add(1)
	err := s.driver.ReadSingle(key, "", buf)
	readTimer.stop()
	if err != nil {
		return nil, errReadFailed(err)
	}
	s.counters.SzReadPayload.Add(int64(len(buf)))
	return buf, nil
}

// LoadClusters is the ClusterLoader the source's ClusterPool uses: it
// groups every requested page across every requested cluster into a single
// batched KVStore read.
func (s *Source) LoadClusters(keys []ClusterKey) ([]*Cluster, error) {
	type pageLoc struct {
		clusterID, columnID, pageNo uint64
		dest                        []byte
	}
	batch := make(kvstore.ReadBatch)
	var locs []pageLoc

	for _, k := range keys {
		cd, ok := s.desc.ClusterDescriptor(k.ClusterID)
		if !ok {
			continue
		}
		for _, columnID := range k.ColumnSet {
			pr := cd.PageRange(columnID)
			for pageNo, info := range pr.PageInfos {
				key := pageKey(s.opts.Mapping, k.ClusterID, columnID, info.Locator.Position)
				dest := make([]byte, info.Locator.BytesOnStorage)
				batch.Insert(kvstore.ObjDkey{Oid: key.Oid, Dkey: key.Dkey}, key.Akey, dest)
				locs = append(locs, pageLoc{k.ClusterID, columnID, uint64(pageNo), dest})
			}
		}
	}
	if len(locs) == 0 {
		return nil, nil
	}

	readTimer := s.counters.startTimer(s.counters.TimeRead)
	s.counters.NReadV.Add(1)
	err := s.driver.ReadV(batch)
	readTimer.stop()
	if err != nil {
		return nil, errReadFailed(err)
	}

	clustersByID := make(map[uint64]*Cluster)
	arenaByID := make(map[uint64][]byte)
	pagesByID := make(map[uint64]map[onDiskPageKey]onDiskPageSlot)

	for _, loc := range locs {
		c, ok := clustersByID[loc.clusterID]
		if !ok {
			c = NewCluster(loc.clusterID)
			clustersByID[loc.clusterID] = c
			pagesByID[loc.clusterID] = make(map[onDiskPageKey]onDiskPageSlot)
		}
		arena := arenaByID[loc.clusterID]
		offset := len(arena)
		arena = append(arena, loc.dest...)
		arenaByID[loc.clusterID] = arena
		pagesByID[loc.clusterID][onDiskPageKey{loc.columnID, loc.pageNo}] = onDiskPageSlot{offset: offset, size: len(loc.dest)}
		c.SetColumnAvailable(loc.columnID)
		s.counters.SzReadPayload.Add(int64(len(loc.dest)))
	}

	out := make([]*Cluster, 0, len(clustersByID))
	for id, c := range clustersByID {
		c.Adopt(arenaByID[id], pagesByID[id])
		out = append(out, c)
		s.counters.NClusterLoaded.Add(1)
	}
	return out, nil
}

// LoadClusterGroup asks the cluster pool to prefetch every cluster listed
// in keys, so a subsequent PopulatePage call finds them already cached.
func (s *Source) LoadClusterGroup(keys []ClusterKey) {
	s.clusterPool.Prefetch(keys)
}

// UnzipCluster decompresses every page of the given columns in cluster,
// fanning the work out across the task scheduler and registering each
// result into the page pool. cd must be the descriptor for cluster.
func (s *Source) UnzipCluster(cd *descriptor.ClusterDescriptor, cluster *Cluster, columns []uint64) error {
	s.scheduler.Reset()
	for _, columnID := range columns {
		columnID := columnID
		s.scheduler.AddTask(func() error {
			col, ok := s.desc.Column(columnID)
			if !ok {
				return ErrUnknownColumn
			}
			pr := cd.PageRange(columnID)
			cr := cd.ColumnRange(columnID)
			for pageNo, info := range pr.PageInfos {
				sealed, ok := cluster.OnDiskPage(columnID, uint64(pageNo))
				if !ok {
					return ErrCorrupt
				}
				buf, err := s.opts.Compressor.Unseal(sealed, int(info.NElements)*col.ElementSize)
				if err != nil {
					return err
				}
				page := s.alloc.NewPageOwning(columnID, buf, col.ElementSize, int(info.NElements))
				page.setWindow(info.FirstInPage, cd.ID, cr.FirstElementIndex)
				s.pagePool.PreloadPage(page, func(p *Page) { s.alloc.DeletePage(p) })
				s.counters.NPagePopulated.Add(1)
			}
			return nil
		})
	}
	return s.scheduler.Wait()
}

// ReleasePage hands page back to the page pool once a caller is done with
// it. The backing buffer is not freed: the page remains resident in the
// page pool for future lookups.
func (s *Source) ReleasePage(page *Page) {
	s.pagePool.ReturnPage(*page)
}

// Clone returns a new Source attached to the same dataset, with its own
// independent descriptor, page pool and cluster pool, so a second goroutine
// can read the dataset concurrently.
func (s *Source) Clone() (*Source, error) {
	clone := NewSource(s.driver, s.uri, *s.opts)
	if err := clone.Attach(); err != nil {
		return nil, err
	}
	return clone, nil
}
