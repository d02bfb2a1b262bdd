package eventstore

// CycleStartedPayload is the payload of a cycle.started event.
type CycleStartedPayload struct {
	Files   []string `json:"files"`
	Trigger string   `json:"trigger,omitempty"`
}

// CycleCompletedPayload is the payload of a cycle.completed event.
type CycleCompletedPayload struct {
	Units      int      `json:"units"`
	Outputs    []string `json:"outputs,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// CycleFailedPayload is the payload of a cycle.failed event.
type CycleFailedPayload struct {
	Stage      string `json:"stage"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}
