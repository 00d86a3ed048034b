package api

import "time"

// SessionCreateRequest is the body of POST /api/v1/sessions: the grid
// source to compile and load.
type SessionCreateRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

// SessionCreateResponse is returned once a session's grid has been
// compiled and its image loaded into a fresh Executor.
type SessionCreateResponse struct {
	SessionID  string    `json:"sessionId"`
	EntryCount int       `json:"entryCount"`
	ImageBytes int       `json:"imageBytes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProcessState reports one process's execution state.
type ProcessState struct {
	ID      int    `json:"id"`
	PC      int    `json:"pc"`
	Stack   []int  `json:"stack"`
	Stopped bool   `json:"stopped"`
	Error   string `json:"error,omitempty"`
}

// SessionStateResponse reports a session's executor state: whether any
// process is still live, and every process's current state.
type SessionStateResponse struct {
	SessionID string         `json:"sessionId"`
	Live      bool           `json:"live"`
	Processes []ProcessState `json:"processes"`
}

// RunRequest bounds how many round-robin steps a run request will take
// before returning, so a non-terminating program can't hang the request.
type RunRequest struct {
	MaxSteps int `json:"maxSteps,omitempty"`
}

// ErrorResponse is the JSON body of any non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
