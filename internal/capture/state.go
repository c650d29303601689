package capture

import "errors"

// State is the position of a session in the capture flow
type State int

const (
	Idle State = iota
	ImageSelected
	Submitting
	ExtractionPopulated
	ExtractionFailed
	Editing
	Persisted
	PersistFailed
)

var stateNames = map[State]string{
	Idle:                "idle",
	ImageSelected:       "image-selected",
	Submitting:          "submitting",
	ExtractionPopulated: "extraction-populated",
	ExtractionFailed:    "extraction-failed",
	Editing:             "editing",
	Persisted:           "persisted",
	PersistFailed:       "persist-failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

var (
	// ErrExtractionInFlight is returned when an extraction is already running for the session
	ErrExtractionInFlight = errors.New("extraction already in progress")

	// ErrPersistInFlight is returned when an expense submission is already running for the session
	ErrPersistInFlight = errors.New("expense submission already in progress")

	// ErrSessionReset is returned in place of a response that arrived after the
	// session was reset or its image replaced. The response is not applied.
	ErrSessionReset = errors.New("session was reset while the request was outstanding")
)
