package resource

import "github.com/towerops/fieldtrack/internal/models"

// State is the outcome of a mutating call.
type State int

const (
	// StateConfirmed means the backend accepted the mutation and the
	// entity is canonical.
	StateConfirmed State = iota

	// StatePendingSync means the mutation was accepted locally while the
	// backend was unreachable; the entity carries a locally generated id
	// and will be replayed by the sync queue.
	StatePendingSync

	// StateRejected means local validation failed; no network call was
	// attempted. Fields lists every violation.
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StatePendingSync:
		return "pending_sync"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is the three-state outcome of a mutating call. Callers handle all
// three states: rejected results carry field errors, pending results carry
// a locally accepted entity awaiting confirmation.
type Result[T any] struct {
	State  State
	Entity T
	Fields []models.FieldError
}

func confirmed[T any](entity T) Result[T] {
	return Result[T]{State: StateConfirmed, Entity: entity}
}

func pendingSync[T any](entity T) Result[T] {
	return Result[T]{State: StatePendingSync, Entity: entity}
}

func rejected[T any](fields []models.FieldError) Result[T] {
	return Result[T]{State: StateRejected, Fields: fields}
}
