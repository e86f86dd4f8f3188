package pagestore_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lakeviewdb/pagestore"
	"github.com/lakeviewdb/pagestore/internal/descriptor"
	"github.com/lakeviewdb/pagestore/kvstore/memkv"
)

func newDriver(t *testing.T) *memkv.Driver {
	t.Helper()
	return memkv.New("default", "meta")
}

func u32Page(t *testing.T, sink *pagestore.Sink, columnID uint64, values ...uint32) pagestore.Page {
	t.Helper()
	page, err := sink.ReservePage(columnID, len(values))
	require.NoError(t, err)
	buf := page.Buffer()
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return page
}

// S1 — single page round-trip, compression off.
func TestScenarioSinglePageRoundTrip(t *testing.T) {
	driver := newDriver(t)
	uri, err := pagestore.ParseURI("kv://p/c")
	require.NoError(t, err)

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{Compression: 0})
	require.NoError(t, sink.Create([]descriptor.ColumnDescriptor{{ID: 0, ElementSize: 4}}))

	page := u32Page(t, sink, 0, 1, 2, 3, 4)
	info, err := sink.CommitPage(page)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Locator.Position)
	sink.ReleasePage(&page)

	require.NoError(t, sink.CommitCluster(4))
	require.NoError(t, sink.CommitDataset())

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{})
	require.NoError(t, source.Attach())

	got, err := source.PopulatePage(0, 0)
	require.NoError(t, err)
	require.Equal(t, 4, got.NElements())
	require.Equal(t,
		[]byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0},
		got.Buffer(),
	)
}

// S2 — batched multi-column write, page-seq order preservation.
func TestScenarioBatchedMultiColumnWrite(t *testing.T) {
	driver := newDriver(t)
	uri, _ := pagestore.ParseURI("kv://p/c2")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{Compression: 0})
	columns := []descriptor.ColumnDescriptor{{ID: 0, ElementSize: 4}, {ID: 1, ElementSize: 4}}
	require.NoError(t, sink.Create(columns))

	a0 := u32Page(t, sink, 0, 1, 2)
	a1 := u32Page(t, sink, 0, 3, 4)
	b0 := u32Page(t, sink, 1, 5, 6)
	b1 := u32Page(t, sink, 1, 7, 8)

	infos, err := sink.CommitPages([]pagestore.Page{a0, a1, b0, b1})
	require.NoError(t, err)
	require.Len(t, infos, 4)
	for i, info := range infos {
		require.Equal(t, uint64(i), info.Locator.Position)
	}

	require.NoError(t, sink.CommitCluster(4))
	require.NoError(t, sink.CommitDataset())

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{})
	require.NoError(t, source.Attach())

	p, err := source.PopulatePage(0, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, p.Buffer())

	p, err = source.PopulatePage(1, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{7, 0, 0, 0, 8, 0, 0, 0}, p.Buffer())
}

// S3 — cluster prefetch: loadClusters issues one readV and populates both
// columns of every requested cluster.
func TestScenarioClusterPrefetch(t *testing.T) {
	driver := newDriver(t)
	uri, _ := pagestore.ParseURI("kv://p/c3")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{Compression: 0})
	columns := []descriptor.ColumnDescriptor{{ID: 0, ElementSize: 4}, {ID: 1, ElementSize: 4}}
	require.NoError(t, sink.Create(columns))

	for cluster := 0; cluster < 3; cluster++ {
		c0 := u32Page(t, sink, 0, uint32(cluster*10))
		c1 := u32Page(t, sink, 1, uint32(cluster*10+1))
		_, err := sink.CommitPages([]pagestore.Page{c0, c1})
		require.NoError(t, err)
		require.NoError(t, sink.CommitCluster(1))
	}
	require.NoError(t, sink.CommitDataset())

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{ClusterCache: pagestore.ClusterCacheOn})
	require.NoError(t, source.Attach())

	clusters, err := source.LoadClusters([]pagestore.ClusterKey{
		{ClusterID: 0, ColumnSet: []uint64{0, 1}},
		{ClusterID: 1, ColumnSet: []uint64{0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	for _, c := range clusters {
		require.True(t, c.ContainsColumn(0))
		require.True(t, c.ContainsColumn(1))
		buf, ok := c.OnDiskPage(0, 0)
		require.True(t, ok)
		require.Len(t, buf, 5) // 1 indicator byte + 4 uncompressed bytes
	}

	page, err := source.PopulatePage(0, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(20), binary.LittleEndian.Uint32(page.Buffer()))
}

// S4 — compression round-trip through Attach.
func TestScenarioCompressionRoundTrip(t *testing.T) {
	driver := newDriver(t)
	uri, _ := pagestore.ParseURI("kv://p/c4")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{Compression: 5})
	columns := make([]descriptor.ColumnDescriptor, 512)
	for i := range columns {
		columns[i] = descriptor.ColumnDescriptor{ID: uint64(i), ElementSize: 8}
	}
	require.NoError(t, sink.Create(columns))
	require.NoError(t, sink.CommitCluster(0))
	require.NoError(t, sink.CommitDataset())

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{})
	require.NoError(t, source.Attach())
	require.Len(t, source.Descriptor().Columns(), 512)
}

// S5 — truncated/missing anchor.
func TestScenarioTruncatedAnchor(t *testing.T) {
	// Simulating a truncated on-storage anchor isn't expressible through the
	// Driver contract (ReadSingle always returns the exact stored value or
	// ErrNotFound), so the truncation half of this scenario is exercised
	// directly against the anchor codec: DeserializeAnchor on a too-short
	// buffer must fail with ErrAnchorTooShort.
	_, _, err := pagestore.DeserializeAnchor(make([]byte, 16))
	require.ErrorIs(t, err, pagestore.ErrAnchorTooShort)

	// Attach against a dataset whose anchor was never written fails.
	driver := newDriver(t)
	uri, _ := pagestore.ParseURI("kv://p/never-committed")
	require.NoError(t, driver.OpenPool("p"))
	require.NoError(t, driver.OpenContainer("never-committed", true))

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{})
	require.Error(t, source.Attach())
}

// S6 — unknown object class rejected at Create; no header/anchor written.
func TestScenarioUnknownObjectClass(t *testing.T) {
	driver := newDriver(t) // only knows "default" and "meta"
	uri, _ := pagestore.ParseURI("kv://p/c6")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{ObjectClass: "NOT_A_CLASS"})
	err := sink.Create([]descriptor.ColumnDescriptor{{ID: 0, ElementSize: 4}})
	require.ErrorIs(t, err, pagestore.ErrUnknownObjectClass)
}

// Invariant 2 — page-seq monotonicity across columns and clusters.
func TestInvariantPageSeqMonotonic(t *testing.T) {
	driver := newDriver(t)
	uri, _ := pagestore.ParseURI("kv://p/c7")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{})
	columns := []descriptor.ColumnDescriptor{{ID: 0, ElementSize: 4}, {ID: 1, ElementSize: 4}}
	require.NoError(t, sink.Create(columns))

	var seqs []uint64
	for cluster := 0; cluster < 2; cluster++ {
		for _, col := range columns {
			p := u32Page(t, sink, col.ID, 1)
			info, err := sink.CommitPage(p)
			require.NoError(t, err)
			seqs = append(seqs, info.Locator.Position)
		}
		require.NoError(t, sink.CommitCluster(1))
	}
	for i, seq := range seqs {
		require.Equal(t, uint64(i), seq)
	}
}

// Invariant 6 — idempotent re-read hits the page pool.
func TestInvariantIdempotentRepeatedPopulate(t *testing.T) {
	driver := newDriver(t)
	uri, _ := pagestore.ParseURI("kv://p/c8")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{})
	require.NoError(t, sink.Create([]descriptor.ColumnDescriptor{{ID: 0, ElementSize: 4}}))
	p := u32Page(t, sink, 0, 42)
	_, err := sink.CommitPage(p)
	require.NoError(t, err)
	require.NoError(t, sink.CommitCluster(1))
	require.NoError(t, sink.CommitDataset())

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{})
	require.NoError(t, source.Attach())

	first, err := source.PopulatePage(0, 0)
	require.NoError(t, err)
	second, err := source.PopulatePage(0, 0)
	require.NoError(t, err)
	require.Equal(t, first.Buffer(), second.Buffer())

	counters := source.Counters()
	require.Equal(t, int64(1), counters.NPagePopulated.Load())
}

// Clone gives a second, independent source over the same dataset.
func TestSourceClone(t *testing.T) {
	driver := newDriver(t)
	uri, _ := pagestore.ParseURI("kv://p/c9")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{})
	require.NoError(t, sink.Create([]descriptor.ColumnDescriptor{{ID: 0, ElementSize: 4}}))
	p := u32Page(t, sink, 0, 7)
	_, err := sink.CommitPage(p)
	require.NoError(t, err)
	require.NoError(t, sink.CommitCluster(1))
	require.NoError(t, sink.CommitDataset())

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{})
	require.NoError(t, source.Attach())

	clone, err := source.Clone()
	require.NoError(t, err)
	require.NotSame(t, source, clone)

	page, err := clone.PopulatePage(0, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(7), binary.LittleEndian.Uint32(page.Buffer()))
}
