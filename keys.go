package pagestore

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/lakeviewdb/pagestore/kvstore"
)

// MappingVariant selects how (cluster, column, page) coordinates are mapped
// onto KVStore keys. OidPerCluster is the default: one object per cluster,
// with the column id as distribution key and the page sequence number as
// attribute key. OidPerPage instead gives every page its own object id and
// relies on fixed distribution/attribute keys.
//
// The mapping is a build-time (configuration-time) choice; it is not
// persisted in the anchor, so a Source must be configured with the same
// variant the writer used. See the "mapping variant persistence" open
// question in DESIGN.md.
type MappingVariant int

const (
	OidPerCluster MappingVariant = iota
	OidPerPage
)

// metaObjectClass is the object class used for the anchor, header, footer
// and pagelist payloads. It is distinct from the dataset's default object
// class, which pages use.
const metaObjectClass kvstore.ObjectClass = "meta"

// Reserved object ids, disjoint from the range used for user clusters and
// cluster-group ids: math.MaxUint64 for metadata (anchor/header/footer),
// math.MaxUint64-1 for pagelists. Any deterministic, disjoint choice is
// spec-conformant; these mirror the reserved sentinel values the original
// DAOS backend used for its metadata and pagelist objects.
var (
	reservedMetaObjectID     = kvstore.ObjectID{Lo: math.MaxUint64}
	reservedPageListObjectID = kvstore.ObjectID{Lo: math.MaxUint64 - 1}
)

// Distribution/attribute keys for metadata and default-mapping pages have no
// natural value of their own, so they are derived from fixed, stable label
// strings via a non-cryptographic hash. Any deterministic 64-bit choice
// disjoint across these five keys is spec-conformant.
var (
	defaultDistKey = kvstore.DistKey(xxhash.Sum64String("pagestore/dkey/default"))
	attrKeyDefault = kvstore.AttrKey(xxhash.Sum64String("pagestore/akey/default"))
	attrKeyAnchor  = kvstore.AttrKey(xxhash.Sum64String("pagestore/akey/anchor"))
	attrKeyHeader  = kvstore.AttrKey(xxhash.Sum64String("pagestore/akey/header"))
	attrKeyFooter  = kvstore.AttrKey(xxhash.Sum64String("pagestore/akey/footer"))
)

// pageKey computes the deterministic KVStore coordinates for a page, given
// the mapping variant in effect. It is a pure function: the same
// (variant, clusterID, columnID, pageSeq) always yields the same key.
func pageKey(variant MappingVariant, clusterID, columnID, pageSeq uint64) kvstore.Key {
	switch variant {
	case OidPerPage:
		return kvstore.Key{
			Oid:  kvstore.ObjectID{Lo: pageSeq},
			Dkey: defaultDistKey,
			Akey: attrKeyDefault,
		}
	default: // OidPerCluster
		return kvstore.Key{
			Oid:  kvstore.ObjectID{Lo: clusterID},
			Dkey: kvstore.DistKey(columnID),
			Akey: kvstore.AttrKey(pageSeq),
		}
	}
}

func metaKey(akey kvstore.AttrKey) kvstore.Key {
	return kvstore.Key{Oid: reservedMetaObjectID, Dkey: defaultDistKey, Akey: akey}
}

func pageListKey(cgSeq uint64) kvstore.Key {
	return kvstore.Key{Oid: reservedPageListObjectID, Dkey: defaultDistKey, Akey: kvstore.AttrKey(cgSeq)}
}
