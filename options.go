package pagestore

import (
	"fmt"
	"log"
	"os"

	"github.com/lakeviewdb/pagestore/kvstore"
)

// Logger defines an interface for writing log messages, mirroring the
// teacher's internal/base.Logger so callers can redirect (or silence)
// diagnostics without the core depending on a specific logging library.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go standard library logger.
type DefaultLogger struct{}

func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, "INFO: "+fmt.Sprintf(format, args...))
}

func (DefaultLogger) Errorf(format string, args ...interface{}) {
	_ = log.Output(2, "ERROR: "+fmt.Sprintf(format, args...))
}

func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, "FATAL: "+fmt.Sprintf(format, args...))
	os.Exit(1)
}

// ClusterCacheMode toggles whether a Source reads pages through the cluster
// pool (batched, cached) or with direct single-key reads.
type ClusterCacheMode int

const (
	// ClusterCacheOn routes page reads through the cluster pool: a cluster's
	// pages for the requested column are fetched with one batched read and
	// cached, and pages are served out of the cached cluster's on-disk page
	// map.
	ClusterCacheOn ClusterCacheMode = iota
	// ClusterCacheOff issues a direct single-key read for every page.
	ClusterCacheOff
)

// WriteOptions configures a Sink.
type WriteOptions struct {
	// Compression is the compression level passed to the Compressor. Zero
	// means "no compression".
	Compression int
	// ObjectClass is the object class requested for the dataset's pages. If
	// empty, DefaultObjectClass is used.
	ObjectClass kvstore.ObjectClass
	// Mapping selects the (cluster, column, page) to KVStore key mapping.
	Mapping MappingVariant
	// Compressor seals and unseals pages and metadata blobs. If nil, a
	// default zstd-backed Compressor is used.
	Compressor Compressor
	// Logger receives diagnostic messages. If nil, DefaultLogger is used.
	Logger Logger
}

// DefaultObjectClass is the object class requested when WriteOptions does
// not specify one.
const DefaultObjectClass kvstore.ObjectClass = "default"

// EnsureDefaults fills in zero-valued fields with their defaults and
// returns the receiver.
func (o *WriteOptions) EnsureDefaults() *WriteOptions {
	if o.ObjectClass == "" {
		o.ObjectClass = DefaultObjectClass
	}
	if o.Compressor == nil {
		o.Compressor = NewZstdCompressor()
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	return o
}

// ReadOptions configures a Source.
type ReadOptions struct {
	// Mapping selects the (cluster, column, page) to KVStore key mapping.
	// It must match the Mapping the writer used.
	Mapping MappingVariant
	// ClusterCache toggles whole-cluster caching versus direct page reads.
	ClusterCache ClusterCacheMode
	// ClusterBunchSize is handed to the source's cluster pool as its bunch
	// size. The pool does not prefetch on its own; clusters are loaded ahead
	// of use only through Source.LoadClusterGroup, which loads exactly the
	// keys it is given.
	ClusterBunchSize int
	// Compressor unseals pages and metadata blobs. If nil, a default
	// zstd-backed Compressor is used.
	Compressor Compressor
	// Logger receives diagnostic messages. If nil, DefaultLogger is used.
	Logger Logger
}

// EnsureDefaults fills in zero-valued fields with their defaults and
// returns the receiver.
func (o *ReadOptions) EnsureDefaults() *ReadOptions {
	if o.ClusterBunchSize <= 0 {
		o.ClusterBunchSize = 1
	}
	if o.Compressor == nil {
		o.Compressor = NewZstdCompressor()
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	return o
}
