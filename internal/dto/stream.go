package dto

// StatusResponse reports the session state and where viewers can tune in.
// ViewerURL is null while no session is active.
type StatusResponse struct {
	Running   bool    `json:"running"`
	IP        string  `json:"ip"`
	ViewerURL *string `json:"viewer_url"`
}

// Screen represents one enumerable capture source.
type Screen struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// SourcesResponse lists available capture sources.
type SourcesResponse struct {
	Screens []Screen `json:"screens"`
}

// StartRequest is the body of a start call. ID selects the capture source
// and may be omitted.
type StartRequest struct {
	ID string `json:"id"`
}

// StartResponse reports the outcome of a start call. URL is null on failure.
type StartResponse struct {
	OK      bool    `json:"ok"`
	Message string  `json:"message"`
	URL     *string `json:"url"`
	IP      string  `json:"ip"`
}

// StopResponse reports the outcome of a stop call.
type StopResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// EventMessage is pushed over the events websocket on state transitions.
type EventMessage struct {
	Running bool `json:"running"`
}
