package segmenter

// State is a step of the per-file segmentation state machine.
type State int

const (
	StateStart State = iota
	StateAligningHead
	StateEmittingFullBlocks
	StateFlushingTail
	StateDone
	StateError
)

var stateNames = map[State]string{
	StateStart:              "start",
	StateAligningHead:       "aligning-head",
	StateEmittingFullBlocks: "emitting-full-blocks",
	StateFlushingTail:       "flushing-tail",
	StateDone:               "done",
	StateError:              "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
