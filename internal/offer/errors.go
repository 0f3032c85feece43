package offer

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoPrice      = errors.New("no parseable price")
	ErrNotWetFood   = errors.New("not wet cat food")
	ErrNoTiles      = errors.New("no product tiles found")
	ErrRunActive    = errors.New("a run is already active")
	ErrNoAlertRoute = errors.New("no alert channel configured")
)

// FetchError wraps a failed page navigation or selector wait. The adapter
// treats the page as absent and stops paginating that sequence.
type FetchError struct {
	Site Site
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error on %s for %s: %v", e.Site, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError wraps a failed tile-to-offer conversion. Only the one tile is
// skipped; siblings on the same page still get processed.
type ExtractError struct {
	Site Site
	URL  string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract error on %s (%s): %v", e.Site, e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// SinkError wraps a persistence failure for one chunk.
type SinkError struct {
	Backend string
	Err     error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error (%s): %v", e.Backend, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
