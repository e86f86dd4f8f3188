package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	cols := []ColumnDescriptor{
		{ID: 0, ElementSize: 8},
		{ID: 1, ElementSize: 4},
	}
	blob := EncodeHeader(cols)
	got, err := DecodeHeader(blob)
	require.NoError(t, err)
	require.Equal(t, cols, got)
}

func TestHeaderEmpty(t *testing.T) {
	blob := EncodeHeader(nil)
	got, err := DecodeHeader(blob)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFooterRoundTrip(t *testing.T) {
	groups := []ClusterGroupDescriptor{
		{ID: 0, Locator: Locator{Position: 0, BytesOnStorage: 128}, PageListLength: 256},
		{ID: 1, Locator: Locator{Position: 1, BytesOnStorage: 64}, PageListLength: 96},
	}
	blob := EncodeFooter(groups)
	got, err := DecodeFooter(blob)
	require.NoError(t, err)
	require.Equal(t, groups, got)
}

func TestPageListRoundTrip(t *testing.T) {
	cd := NewClusterDescriptor(5)
	cd.NEntries = 30
	cd.ColumnRanges[0] = ColumnRange{FirstElementIndex: 0}
	cd.PageRanges[0] = PageRange{PageInfos: []PageInfo{
		{Locator: Locator{BytesOnStorage: 40}, NElements: 15, FirstInPage: 0},
		{Locator: Locator{BytesOnStorage: 44}, NElements: 15, FirstInPage: 15},
	}}
	cd.ColumnRanges[1] = ColumnRange{FirstElementIndex: 10}
	cd.PageRanges[1] = PageRange{PageInfos: []PageInfo{
		{Locator: Locator{BytesOnStorage: 8}, NElements: 30, FirstInPage: 0},
	}}

	blob := EncodePageList([]*ClusterDescriptor{cd})
	got, err := DecodePageList(blob)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, cd.ID, got[0].ID)
	require.Equal(t, cd.NEntries, got[0].NEntries)
	require.Equal(t, cd.ColumnRanges, got[0].ColumnRanges)
	require.Equal(t, cd.PageRanges, got[0].PageRanges)
}

func TestDecodeHeaderRejectsWrongTag(t *testing.T) {
	blob := EncodeFooter(nil)
	_, err := DecodeHeader(blob)
	require.ErrorIs(t, err, errBadTag)
}

func TestDecodeTruncated(t *testing.T) {
	blob := EncodeHeader([]ColumnDescriptor{{ID: 1, ElementSize: 8}})
	_, err := DecodeHeader(blob[:len(blob)-1])
	require.Error(t, err)
}
