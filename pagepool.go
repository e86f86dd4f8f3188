package pagestore

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// numPagePoolShards shards the page pool's locking the same way the
// teacher's internal/cache shards its block cache: by hashing the column id
// so unrelated columns don't contend on one mutex.
const numPagePoolShards = 16

type pagePoolEntry struct {
	page    Page
	deleter func(*Page)
}

type globalPageKey struct {
	columnID uint64
	index    uint64
}

type clusterPageKey struct {
	columnID  uint64
	clusterID uint64
	index     uint64
}

type pagePoolShard struct {
	mu        sync.Mutex
	byGlobal  map[globalPageKey]*pagePoolEntry
	byCluster map[clusterPageKey]*pagePoolEntry
}

// PagePool is a thread-safe cache of decompressed pages, addressable either
// by dataset-global index or by cluster-local index. GetPage, RegisterPage,
// PreloadPage and ReturnPage are atomic with respect to one another: a
// PreloadPage from a background decompression task is immediately visible
// to a subsequent GetPage from the caller thread. Eviction policy is out of
// scope for this engine; pages remain resident until the pool is discarded.
type PagePool struct {
	shards [numPagePoolShards]*pagePoolShard
}

// NewPagePool returns an empty PagePool.
func NewPagePool() *PagePool {
	p := &PagePool{}
	for i := range p.shards {
		p.shards[i] = &pagePoolShard{
			byGlobal:  make(map[globalPageKey]*pagePoolEntry),
			byCluster: make(map[clusterPageKey]*pagePoolEntry),
		}
	}
	return p
}

func (p *PagePool) shardFor(columnID uint64) *pagePoolShard {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], columnID)
	return p.shards[xxhash.Sum64(b[:])%numPagePoolShards]
}

// GetByGlobalIndex returns the cached page for (columnID, globalIndex), if any.
func (p *PagePool) GetByGlobalIndex(columnID, globalIndex uint64) (Page, bool) {
	shard := p.shardFor(columnID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	e, ok := shard.byGlobal[globalPageKey{columnID, globalIndex}]
	if !ok {
		return Page{}, false
	}
	return e.page, true
}

// GetByClusterIndex returns the cached page for (columnID, clusterIndex), if any.
func (p *PagePool) GetByClusterIndex(columnID uint64, ci ClusterIndex) (Page, bool) {
	shard := p.shardFor(columnID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	e, ok := shard.byCluster[clusterPageKey{columnID, ci.ClusterID, ci.Index}]
	if !ok {
		return Page{}, false
	}
	return e.page, true
}

func (p *PagePool) insert(page Page, deleter func(*Page)) {
	shard := p.shardFor(page.ColumnID())
	e := &pagePoolEntry{page: page, deleter: deleter}
	shard.mu.Lock()
	shard.byGlobal[globalPageKey{page.ColumnID(), page.GlobalIndex()}] = e
	shard.byCluster[clusterPageKey{page.ColumnID(), page.ClusterIndex().ClusterID, page.ClusterIndex().Index}] = e
	shard.mu.Unlock()
}

// RegisterPage makes page (and its release function) visible to future
// lookups. Used by the synchronous populate-page path.
func (p *PagePool) RegisterPage(page Page, deleter func(*Page)) {
	p.insert(page, deleter)
}

// PreloadPage makes page visible to future lookups. Used by background
// decompression tasks; semantically identical to RegisterPage.
func (p *PagePool) PreloadPage(page Page, deleter func(*Page)) {
	p.insert(page, deleter)
}

// ReturnPage signals that the caller is done with page. Eviction policy is
// out of scope, so this is a no-op: the page remains cached for future
// lookups.
func (p *PagePool) ReturnPage(page Page) {
}
