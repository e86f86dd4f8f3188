// Package memkv provides an in-memory reference implementation of
// kvstore.Driver, used by tests and by callers that want to exercise the
// page-storage engine without a real object-store deployment.
package memkv

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/lakeviewdb/pagestore/kvstore"
)

// Driver is a memory-backed kvstore.Driver. It supports exactly one open
// pool and one open container at a time, which is all the page-storage
// engine ever needs from a single Sink or Source instance.
type Driver struct {
	knownClasses map[kvstore.ObjectClass]bool

	mu             sync.RWMutex
	poolLabel      string
	containerLabel string
	defaultClass   kvstore.ObjectClass
	opened         bool
	objects        map[kvstore.ObjectID]map[kvstore.DistKey]map[kvstore.AttrKey][]byte
}

// New returns a Driver that recognizes the given object class names. The
// empty string is always a valid class name to pass through as "use the
// container default" but is never itself a recognized default class.
func New(knownClasses ...string) *Driver {
	known := make(map[kvstore.ObjectClass]bool, len(knownClasses))
	for _, c := range knownClasses {
		known[kvstore.ObjectClass(c)] = true
	}
	return &Driver{knownClasses: known}
}

func (d *Driver) OpenPool(label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.poolLabel != "" && d.poolLabel != label {
		return errors.Newf("memkv: pool already open as %q", d.poolLabel)
	}
	d.poolLabel = label
	return nil
}

func (d *Driver) OpenContainer(label string, create bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.poolLabel == "" {
		return errors.New("memkv: pool not open")
	}
	if d.opened && d.containerLabel != label {
		return errors.Newf("memkv: container already open as %q", d.containerLabel)
	}
	if !d.opened {
		if !create {
			return errors.Newf("memkv: container %q does not exist", label)
		}
		d.containerLabel = label
		d.objects = make(map[kvstore.ObjectID]map[kvstore.DistKey]map[kvstore.AttrKey][]byte)
		d.opened = true
	}
	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) KnownObjectClass(class kvstore.ObjectClass) bool {
	return d.knownClasses[class]
}

func (d *Driver) SetDefaultObjectClass(class kvstore.ObjectClass) error {
	if !d.KnownObjectClass(class) {
		return errors.Newf("memkv: unknown object class %q", class)
	}
	d.mu.Lock()
	d.defaultClass = class
	d.mu.Unlock()
	return nil
}

func (d *Driver) DefaultObjectClass() kvstore.ObjectClass {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.defaultClass
}

func (d *Driver) resolveClass(class kvstore.ObjectClass) kvstore.ObjectClass {
	if class != "" {
		return class
	}
	return d.defaultClass
}

func (d *Driver) get(oid kvstore.ObjectID, dkey kvstore.DistKey, akey kvstore.AttrKey) ([]byte, bool) {
	dkeys, ok := d.objects[oid]
	if !ok {
		return nil, false
	}
	akeys, ok := dkeys[dkey]
	if !ok {
		return nil, false
	}
	v, ok := akeys[akey]
	return v, ok
}

func (d *Driver) put(oid kvstore.ObjectID, dkey kvstore.DistKey, akey kvstore.AttrKey, value []byte) {
	dkeys, ok := d.objects[oid]
	if !ok {
		dkeys = make(map[kvstore.DistKey]map[kvstore.AttrKey][]byte)
		d.objects[oid] = dkeys
	}
	akeys, ok := dkeys[dkey]
	if !ok {
		akeys = make(map[kvstore.AttrKey][]byte)
		dkeys[dkey] = akeys
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	akeys[akey] = stored
}

func (d *Driver) WriteSingle(key kvstore.Key, class kvstore.ObjectClass, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return errors.New("memkv: container not open")
	}
	resolved := d.resolveClass(class)
	if !d.KnownObjectClass(resolved) {
		return errors.Newf("memkv: unknown object class %q", resolved)
	}
	d.put(key.Oid, key.Dkey, key.Akey, buf)
	return nil
}

func (d *Driver) ReadSingle(key kvstore.Key, class kvstore.ObjectClass, buf []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.opened {
		return errors.New("memkv: container not open")
	}
	v, ok := d.get(key.Oid, key.Dkey, key.Akey)
	if !ok {
		return kvstore.ErrNotFound
	}
	if len(v) != len(buf) {
		return errors.Newf("memkv: read %d bytes into a %d-byte buffer", len(v), len(buf))
	}
	copy(buf, v)
	return nil
}

func (d *Driver) WriteV(batch kvstore.WriteBatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return errors.New("memkv: container not open")
	}
	for od, akeys := range batch {
		for akey, value := range akeys {
			d.put(od.Oid, od.Dkey, akey, value)
		}
	}
	return nil
}

func (d *Driver) ReadV(batch kvstore.ReadBatch) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.opened {
		return errors.New("memkv: container not open")
	}
	for od, akeys := range batch {
		for akey, dest := range akeys {
			v, ok := d.get(od.Oid, od.Dkey, akey)
			if !ok {
				return fmt.Errorf("memkv: %w: oid=%v dkey=%v akey=%v", kvstore.ErrNotFound, od.Oid, od.Dkey, akey)
			}
			if len(v) != len(dest) {
				return errors.Newf("memkv: read %d bytes into a %d-byte buffer", len(v), len(dest))
			}
			copy(dest, v)
		}
	}
	return nil
}

var _ kvstore.Driver = (*Driver)(nil)
