package usecase

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")

	// ErrFetch marks a per-team provider failure. The team is skipped and the
	// run continues.
	ErrFetch = crerr.New("fetch failed")
	// ErrStorage marks an object storage failure. The run is aborted.
	ErrStorage = crerr.New("storage failed")
	// ErrCatalog marks a schema registration failure. The run ends failed.
	ErrCatalog = crerr.New("catalog failed")
	// ErrQuery marks a query service failure.
	ErrQuery = crerr.New("query service failed")
)

// FetchError is the per-team failure reported by a player fetcher.
type FetchError struct {
	TeamKey    string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch team %s: provider status=%d: %v", e.TeamKey, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch team %s: %v", e.TeamKey, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
