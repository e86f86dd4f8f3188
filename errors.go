package pagestore

import "github.com/cockroachdb/errors"

// Sentinel errors surfaced by the page-storage engine. The core retries
// nothing; every failure is returned to the caller. See error_handler.go
// idiom in the teacher stack for the wrapping style used below.
var (
	// ErrInvalidURI is returned when a URI does not match kv://<pool>/<container>.
	ErrInvalidURI = errors.New("pagestore: invalid uri, want kv://<pool>/<container>")
	// ErrUnknownObjectClass is returned when the driver does not recognize a
	// requested object class name.
	ErrUnknownObjectClass = errors.New("pagestore: unknown object class")
	// ErrAnchorTooShort is returned when an anchor buffer is fewer than 20 bytes.
	ErrAnchorTooShort = errors.New("pagestore: anchor buffer too short")
	// ErrAnchorDecodeFailed is returned when the anchor's object-class string
	// could not be decoded.
	ErrAnchorDecodeFailed = errors.New("pagestore: anchor decode failed")
	// ErrEmptyPage is returned when a caller requests a page of zero elements.
	ErrEmptyPage = errors.New("pagestore: cannot reserve a page of zero elements")
	// ErrCorrupt is returned when a page's on-storage size does not match
	// what the descriptor recorded for it.
	ErrCorrupt = errors.New("pagestore: page size on storage does not match descriptor")
	// ErrUnknownColumn is returned when a caller references a column id that
	// was never registered with Create.
	ErrUnknownColumn = errors.New("pagestore: unknown column")
	// ErrIndexOutOfRange is returned when a requested (column, index) pair
	// falls outside every committed cluster's range for that column.
	ErrIndexOutOfRange = errors.New("pagestore: index out of range for column")
	// ErrDatasetNotCommitted is returned by CommitDataset if there is an
	// open cluster with committed pages that was never passed to
	// CommitCluster.
	ErrDatasetNotCommitted = errors.New("pagestore: open cluster has uncommitted pages")
	// ErrAlreadyOpen is returned by Create or CommitDataset when called a
	// second time on the same Sink.
	ErrAlreadyOpen = errors.New("pagestore: sink already created or committed")
)

// errWriteFailed wraps a driver error observed on a write path.
func errWriteFailed(cause error) error {
	return errors.Wrap(cause, "pagestore: write failed")
}

// errReadFailed wraps a driver error observed on a read path.
func errReadFailed(cause error) error {
	return errors.Wrap(cause, "pagestore: read failed")
}
