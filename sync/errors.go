package sync

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds of the pipe, which could be matched with errors.Is.
var (
	// ErrTransport indicates the node is unreachable or replied with a failure.
	ErrTransport = errors.New("node transport error")

	// ErrAbsentBlock indicates the node has no block or an inconsistent one for a height
	// below its reported tip, e.g. during a chain reorganization.
	ErrAbsentBlock = errors.New("absent block")

	// ErrStore indicates a database operation failed.
	ErrStore = errors.New("store error")

	// ErrEncoding indicates encoded rows could not be produced or emitted.
	ErrEncoding = errors.New("encoding error")
)

// kindError classifies cause with one of the error kinds above.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%v: %v", e.kind, e.cause)
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

func classify(kind, cause error) error {
	if cause == nil {
		return nil
	}

	return &kindError{kind, cause}
}

func NewTransportError(cause error) error { return classify(ErrTransport, cause) }
func NewStoreError(cause error) error     { return classify(ErrStore, cause) }
func NewEncodingError(cause error) error  { return classify(ErrEncoding, cause) }

func NewAbsentBlockError(height uint64, cause error) error {
	if cause == nil {
		return errors.WithMessagef(ErrAbsentBlock, "block %v", height)
	}

	return classify(ErrAbsentBlock, errors.WithMessagef(cause, "block %v", height))
}

// IsTransient returns true if err is expected to disappear by retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrAbsentBlock)
}
