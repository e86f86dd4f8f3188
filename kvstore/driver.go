// Package kvstore defines the driver contract that the page-storage engine
// consumes: a distributed object-store key-value abstraction addressed by a
// 128-bit object id, a distribution key and an attribute key.
//
// The engine treats the driver as an external collaborator. This package
// states the contract only; concrete drivers (e.g. memkv) live in
// sub-packages.
package kvstore

import "github.com/cockroachdb/errors"

// MaxObjectClassNameLength bounds the length of an ObjectClass name, mirroring
// a typical driver's fixed-size object-class-name field.
const MaxObjectClassNameLength = 64

// ErrNotFound is returned by a Driver when a requested key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// ObjectID is a 128-bit object identifier, split into a low and high word to
// mirror the wire representation object stores commonly use for object ids.
type ObjectID struct {
	Lo, Hi uint64
}

// DistKey is the first-level (distribution) key below an object id.
type DistKey uint64

// AttrKey is the second-level (attribute) key below a distribution key.
type AttrKey uint64

// ObjectClass names a driver-defined placement/replication policy for an
// object. The empty ObjectClass means "use the container's default class".
type ObjectClass string

// Key addresses a single value: an object id, a distribution key and an
// attribute key.
type Key struct {
	Oid  ObjectID
	Dkey DistKey
	Akey AttrKey
}

// ObjDkey groups a Key down to its object id and distribution key, the unit
// that WriteV/ReadV batch requests by.
type ObjDkey struct {
	Oid  ObjectID
	Dkey DistKey
}

// WriteBatch groups per-akey payloads by (object id, distribution key), the
// shape WriteV expects so that akeys sharing an (oid, dkey) pair are issued
// as a single request.
type WriteBatch map[ObjDkey]map[AttrKey][]byte

// Insert adds a value for akey under the given (oid, dkey), creating the
// inner map on first use.
func (b WriteBatch) Insert(od ObjDkey, akey AttrKey, value []byte) {
	m, ok := b[od]
	if !ok {
		m = make(map[AttrKey][]byte)
		b[od] = m
	}
	m[akey] = value
}

// ReadBatch groups per-akey destination buffers by (object id, distribution
// key). ReadV fills each buffer in place.
type ReadBatch map[ObjDkey]map[AttrKey][]byte

// Insert registers a pre-sized destination buffer for akey under the given
// (oid, dkey).
func (b ReadBatch) Insert(od ObjDkey, akey AttrKey, dest []byte) {
	m, ok := b[od]
	if !ok {
		m = make(map[AttrKey][]byte)
		b[od] = m
	}
	m[akey] = dest
}

// Driver is the KVStore contract the page-storage engine consumes. A pool is
// opened by label; a container is opened (or created) by label under a pool.
// Every write/read of metadata or pagelist payloads addresses an explicit
// ObjectClass; page payloads use the container's default object class,
// configured once via SetDefaultObjectClass.
type Driver interface {
	// OpenPool opens the pool identified by label. Idempotent.
	OpenPool(label string) error
	// OpenContainer opens the container identified by label under the
	// current pool, creating it first if create is true and it does not
	// exist. Idempotent.
	OpenContainer(label string, create bool) error
	// Close releases the pool/container handles.
	Close() error

	// KnownObjectClass reports whether class is a class name the driver
	// recognizes.
	KnownObjectClass(class ObjectClass) bool
	// SetDefaultObjectClass sets the container's default object class, used
	// for page payloads. Fails if class is unrecognized.
	SetDefaultObjectClass(class ObjectClass) error
	// DefaultObjectClass returns the container's current default object
	// class.
	DefaultObjectClass() ObjectClass

	// WriteSingle writes buf at key. If class is empty, the container's
	// default object class applies.
	WriteSingle(key Key, class ObjectClass, buf []byte) error
	// ReadSingle reads the value at key into buf, which must be exactly the
	// size of the stored value. If class is empty, the container's default
	// object class applies.
	ReadSingle(key Key, class ObjectClass, buf []byte) error

	// WriteV issues a single grouped, batched write across every (oid,
	// dkey) present in batch. All values use the container's default
	// object class.
	WriteV(batch WriteBatch) error
	// ReadV issues a single grouped, batched read across every (oid, dkey)
	// present in batch, filling each destination buffer in place. All
	// values use the container's default object class.
	ReadV(batch ReadBatch) error
}
