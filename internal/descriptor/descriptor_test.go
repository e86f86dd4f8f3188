package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescriptorColumns(t *testing.T) {
	d := New()
	d.AddColumn(ColumnDescriptor{ID: 1, ElementSize: 8})
	d.AddColumn(ColumnDescriptor{ID: 2, ElementSize: 4})

	cols := d.Columns()
	require.Len(t, cols, 2)
	require.Equal(t, uint64(1), cols[0].ID)
	require.Equal(t, uint64(2), cols[1].ID)

	c, ok := d.Column(2)
	require.True(t, ok)
	require.Equal(t, 4, c.ElementSize)

	_, ok = d.Column(99)
	require.False(t, ok)
}

func TestPageRangeFind(t *testing.T) {
	pr := PageRange{PageInfos: []PageInfo{
		{NElements: 10, FirstInPage: 0},
		{NElements: 10, FirstInPage: 10},
		{NElements: 5, FirstInPage: 20},
	}}

	info, pageNo, ok := pr.Find(12)
	require.True(t, ok)
	require.Equal(t, uint64(1), pageNo)
	require.Equal(t, uint64(10), info.FirstInPage)

	_, _, ok = pr.Find(25)
	require.False(t, ok)

	require.Equal(t, uint64(25), pr.NElements())
}

func TestFindClusterID(t *testing.T) {
	d := New()
	d.AddColumn(ColumnDescriptor{ID: 0, ElementSize: 8})

	cd0 := NewClusterDescriptor(0)
	cd0.NEntries = 100
	cd0.ColumnRanges[0] = ColumnRange{FirstElementIndex: 0}
	cd0.PageRanges[0] = PageRange{PageInfos: []PageInfo{{NElements: 100}}}
	d.AddClusterDetails(cd0)

	cd1 := NewClusterDescriptor(1)
	cd1.NEntries = 50
	cd1.ColumnRanges[0] = ColumnRange{FirstElementIndex: 100}
	cd1.PageRanges[0] = PageRange{PageInfos: []PageInfo{{NElements: 50}}}
	d.AddClusterDetails(cd1)

	id, ok := d.FindClusterID(0, 0)
	require.True(t, ok)
	require.Equal(t, uint64(0), id)

	id, ok = d.FindClusterID(0, 120)
	require.True(t, ok)
	require.Equal(t, uint64(1), id)

	_, ok = d.FindClusterID(0, 200)
	require.False(t, ok)

	require.Equal(t, uint64(2), d.NClusters())
}

func TestClusterGroups(t *testing.T) {
	d := New()
	d.AddClusterGroup(ClusterGroupDescriptor{ID: 0, Locator: Locator{Position: 0, BytesOnStorage: 10}, PageListLength: 20})
	d.AddClusterGroup(ClusterGroupDescriptor{ID: 1, Locator: Locator{Position: 1, BytesOnStorage: 12}, PageListLength: 24})

	groups := d.ClusterGroups()
	require.Len(t, groups, 2)
	require.Equal(t, uint64(0), groups[0].ID)
	require.Equal(t, uint64(1), groups[1].ID)
}
