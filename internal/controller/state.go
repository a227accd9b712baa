package controller

// State is the lifecycle state of a controller.
type State int

// Controller states.
const (
	// StateIdle means no expression column is selected and the editor is
	// hidden.
	StateIdle State = iota
	// StateEditing means the editor is shown for a new or existing
	// expression.
	StateEditing
	// StateSaving is held while a save is being dispatched.
	StateSaving
	// StateDeleting is held while a delete is being dispatched.
	StateDeleting
	// StateClosed is terminal for the instance.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateDeleting:
		return "deleting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
