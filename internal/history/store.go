package history

import (
	"errors"

	"github.com/jlammi/stride/pkg/api"
)

// ErrRunNotFound is returned when a run is not found.
var ErrRunNotFound = errors.New("run not found")

// RunFilter is used to select runs from the store.
// Empty string / zero values mean "no filter" for that field.
type RunFilter struct {
	Name   string
	Kind   api.Kind
	Status api.Status
}

// RunStore handles storage of run records.
type RunStore interface {
	SaveRun(run *api.Run) error
	UpdateRun(run *api.Run) error
	GetRun(id string) (*api.Run, error)
	ListRuns(filter RunFilter) ([]*api.Run, error)
}
