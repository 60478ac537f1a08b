package orchestrator

// State names one stage of the turn pipeline. Each turn walks the states in
// order; Transcribing is skipped for text input. Done and Aborted are
// terminal.
type State int

const (
	Idle State = iota
	Transcribing
	Analyzing
	FetchingMemory
	SelectingStyle
	Generating
	BuildingMarkup
	Synthesizing
	Persisting
	Done
	Aborted
)

var stateNames = map[State]string{
	Idle:           "idle",
	Transcribing:   "transcribing",
	Analyzing:      "analyzing",
	FetchingMemory: "fetching_memory",
	SelectingStyle: "selecting_style",
	Generating:     "generating",
	BuildingMarkup: "building_markup",
	Synthesizing:   "synthesizing",
	Persisting:     "persisting",
	Done:           "done",
	Aborted:        "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
