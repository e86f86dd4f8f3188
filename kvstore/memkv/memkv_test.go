package memkv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lakeviewdb/pagestore/kvstore"
	"github.com/lakeviewdb/pagestore/kvstore/memkv"
)

func openedDriver(t *testing.T) *memkv.Driver {
	t.Helper()
	d := memkv.New("default", "meta")
	require.NoError(t, d.OpenPool("pool1"))
	require.NoError(t, d.OpenContainer("container1", true))
	require.NoError(t, d.SetDefaultObjectClass("default"))
	return d
}

func TestSingleWriteRead(t *testing.T) {
	d := openedDriver(t)
	key := kvstore.Key{Oid: kvstore.ObjectID{Lo: 1}, Dkey: 2, Akey: 3}
	require.NoError(t, d.WriteSingle(key, "", []byte("hello")))

	buf := make([]byte, 5)
	require.NoError(t, d.ReadSingle(key, "", buf))
	require.Equal(t, "hello", string(buf))
}

func TestReadMissingKey(t *testing.T) {
	d := openedDriver(t)
	buf := make([]byte, 5)
	err := d.ReadSingle(kvstore.Key{}, "", buf)
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestReadWrongSizeBuffer(t *testing.T) {
	d := openedDriver(t)
	key := kvstore.Key{Oid: kvstore.ObjectID{Lo: 1}}
	require.NoError(t, d.WriteSingle(key, "", []byte("hello")))
	err := d.ReadSingle(key, "", make([]byte, 3))
	require.Error(t, err)
}

func TestUnknownObjectClassRejected(t *testing.T) {
	d := openedDriver(t)
	err := d.SetDefaultObjectClass("bogus")
	require.Error(t, err)

	key := kvstore.Key{Oid: kvstore.ObjectID{Lo: 1}}
	err = d.WriteSingle(key, "bogus", []byte("x"))
	require.Error(t, err)
}

func TestBatchedWriteRead(t *testing.T) {
	d := openedDriver(t)
	od1 := kvstore.ObjDkey{Oid: kvstore.ObjectID{Lo: 1}, Dkey: 0}
	od2 := kvstore.ObjDkey{Oid: kvstore.ObjectID{Lo: 2}, Dkey: 0}

	wb := make(kvstore.WriteBatch)
	wb.Insert(od1, 0, []byte("a"))
	wb.Insert(od1, 1, []byte("bb"))
	wb.Insert(od2, 0, []byte("ccc"))
	require.NoError(t, d.WriteV(wb))

	rb := make(kvstore.ReadBatch)
	destA := make([]byte, 1)
	destB := make([]byte, 2)
	destC := make([]byte, 3)
	rb.Insert(od1, 0, destA)
	rb.Insert(od1, 1, destB)
	rb.Insert(od2, 0, destC)
	require.NoError(t, d.ReadV(rb))

	require.Equal(t, "a", string(destA))
	require.Equal(t, "bb", string(destB))
	require.Equal(t, "ccc", string(destC))
}

func TestReadVMissingKeyFails(t *testing.T) {
	d := openedDriver(t)
	rb := make(kvstore.ReadBatch)
	rb.Insert(kvstore.ObjDkey{Oid: kvstore.ObjectID{Lo: 9}}, 0, make([]byte, 1))
	err := d.ReadV(rb)
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestOpenContainerRequiresPool(t *testing.T) {
	d := memkv.New("default")
	err := d.OpenContainer("c1", true)
	require.Error(t, err)
}

func TestOpenContainerMissingWithoutCreate(t *testing.T) {
	d := memkv.New("default")
	require.NoError(t, d.OpenPool("p1"))
	err := d.OpenContainer("c1", false)
	require.Error(t, err)
}
