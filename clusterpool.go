package pagestore

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ClusterKey names a cluster and the set of columns a prefetch or fetch
// should populate for it.
type ClusterKey struct {
	ClusterID uint64
	ColumnSet []uint64
}

// ClusterLoader loads a batch of clusters, aggregating their page reads
// into as few KVStore requests as the driver contract allows. Source.
// LoadClusters is the ClusterLoader a Source hands its ClusterPool.
type ClusterLoader func(keys []ClusterKey) ([]*Cluster, error)

// ClusterPool caches loaded clusters. Concurrent GetCluster calls for the
// same cluster id and column set are coalesced with singleflight into one
// load. Prefetch loads run outside singleflight, so a prefetch and a
// GetCluster may fetch the same cluster at the same time. Eviction policy
// is out of scope for this engine: cached clusters are retained until the
// pool is discarded, whether or not they are pinned.
type ClusterPool struct {
	loader    ClusterLoader
	bunchSize int

	mu    sync.Mutex
	cache map[uint64]*Cluster
	group singleflight.Group
}

// NewClusterPool returns a ClusterPool that uses loader to fetch clusters
// on a cache miss. bunchSize is stored (values <= 0 become 1) but the pool
// does not read ahead on its own: Prefetch loads exactly the keys it is
// given.
func NewClusterPool(loader ClusterLoader, bunchSize int) *ClusterPool {
	if bunchSize <= 0 {
		bunchSize = 1
	}
	return &ClusterPool{
		loader:    loader,
		bunchSize: bunchSize,
		cache:     make(map[uint64]*Cluster),
	}
}

func (cp *ClusterPool) cached(clusterID uint64) (*Cluster, bool) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	c, ok := cp.cache[clusterID]
	return c, ok
}

// GetCluster returns the cluster for clusterID, fetching (and caching) it
// if necessary. A cached cluster is only a hit if it carries every column
// in columns; otherwise the cluster is loaded again for columns and the new
// copy replaces the cached one. The returned cluster is pinned; callers are expected to
// Unpin it once done, mirroring the original's "cluster remains pinned
// while fCurrentCluster points to it" contract.
func (cp *ClusterPool) GetCluster(clusterID uint64, columns []uint64) (*Cluster, error) {
	hit := func() (*Cluster, bool) {
		c, ok := cp.cached(clusterID)
		for _, id := range columns {
			ok = ok && c.ContainsColumn(id)
		}
		return c, ok
	}
	if c, ok := hit(); ok {
		c.Pin()
		return c, nil
	}

	key := strconv.FormatUint(clusterID, 10)
	for _, id := range columns {
		key += "/" + strconv.FormatUint(id, 10)
	}
	v, err, _ := cp.group.Do(key, func() (interface{}, error) {
		if c, ok := hit(); ok {
			return c, nil
		}
		clusters, err := cp.loader([]ClusterKey{{ClusterID: clusterID, ColumnSet: columns}})
		if err != nil {
			return nil, err
		}
		if len(clusters) == 0 {
			return nil, ErrCorrupt
		}
		cp.mu.Lock()
		cp.cache[clusterID] = clusters[0]
		cp.mu.Unlock()
		return clusters[0], nil
	})
	if err != nil {
		return nil, err
	}
	c := v.(*Cluster)
	c.Pin()
	return c, nil
}

// Prefetch asynchronously loads keys not already cached. Failures are
// swallowed: prefetching is best-effort, and a subsequent synchronous
// GetCluster call will retry the fetch.
func (cp *ClusterPool) Prefetch(keys []ClusterKey) {
	var pending []ClusterKey
	for _, k := range keys {
		if _, ok := cp.cached(k.ClusterID); !ok {
			pending = append(pending, k)
		}
	}
	if len(pending) == 0 {
		return
	}
	go func() {
		clusters, err := cp.loader(pending)
		if err != nil {
			return
		}
		cp.mu.Lock()
		for _, c := range clusters {
			cp.cache[c.ID()] = c
		}
		cp.mu.Unlock()
	}()
}
