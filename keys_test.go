package pagestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageKeyOidPerClusterIsPure(t *testing.T) {
	k1 := pageKey(OidPerCluster, 3, 7, 2)
	k2 := pageKey(OidPerCluster, 3, 7, 2)
	require.Equal(t, k1, k2)
	require.Equal(t, uint64(3), k1.Oid.Lo)
	require.Equal(t, uint64(7), uint64(k1.Dkey))
	require.Equal(t, uint64(2), uint64(k1.Akey))
}

func TestPageKeyOidPerClusterDistinguishesColumnsAndPages(t *testing.T) {
	base := pageKey(OidPerCluster, 3, 7, 2)
	otherColumn := pageKey(OidPerCluster, 3, 8, 2)
	otherPage := pageKey(OidPerCluster, 3, 7, 3)
	otherCluster := pageKey(OidPerCluster, 4, 7, 2)
	require.NotEqual(t, base, otherColumn)
	require.NotEqual(t, base, otherPage)
	require.NotEqual(t, base, otherCluster)
}

func TestPageKeyOidPerPageDistinguishesOnlyByPageSeq(t *testing.T) {
	// Under OidPerPage, cluster and column id play no role in the key: only
	// the page sequence number (used as the object id) does.
	k1 := pageKey(OidPerPage, 3, 7, 2)
	k2 := pageKey(OidPerPage, 99, 1, 2)
	require.Equal(t, k1, k2)

	k3 := pageKey(OidPerPage, 3, 7, 5)
	require.NotEqual(t, k1, k3)
}

func TestReservedKeysAreDisjointFromUserKeys(t *testing.T) {
	meta := metaKey(attrKeyAnchor)
	pl := pageListKey(0)
	page := pageKey(OidPerCluster, 0, 0, 0)

	require.NotEqual(t, meta.Oid, page.Oid)
	require.NotEqual(t, pl.Oid, page.Oid)
	require.NotEqual(t, meta.Oid, pl.Oid)
}

func TestMetaAttrKeysAreDistinct(t *testing.T) {
	keys := map[uint64]string{
		uint64(attrKeyDefault): "default",
		uint64(attrKeyAnchor):  "anchor",
		uint64(attrKeyHeader):  "header",
		uint64(attrKeyFooter):  "footer",
	}
	require.Len(t, keys, 4)
}
