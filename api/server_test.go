package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer() *Server {
	return NewServer(0)
}

func TestHandleCreateAndGetSession(t *testing.T) {
	s := newTestServer()

	body, _ := json.Marshal(SessionCreateRequest{Source: "E@"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created SessionCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("expected a non-empty session id")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.SessionID, nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", getRec.Code, getRec.Body.String())
	}
}

func TestHandleCreateSessionRejectsBadSource(t *testing.T) {
	s := newTestServer()

	body, _ := json.Marshal(SessionCreateRequest{Source: "\x01"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleStepAndRun(t *testing.T) {
	s := newTestServer()

	body, _ := json.Marshal(SessionCreateRequest{Source: "E@"})
	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	createRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(createRec, createReq)

	var created SessionCreateResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	stepReq := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/step", nil)
	stepRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(stepRec, stepReq)
	if stepRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from step, got %d: %s", stepRec.Code, stepRec.Body.String())
	}

	var state SessionStateResponse
	if err := json.Unmarshal(stepRec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode step response: %v", err)
	}
	if state.Live {
		t.Error("expected the process to have halted after stepping through HALT")
	}

	runReq := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/run", nil)
	runRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(runRec, runReq)
	if runRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from run, got %d: %s", runRec.Code, runRec.Body.String())
	}

	var runState SessionStateResponse
	if err := json.Unmarshal(runRec.Body.Bytes(), &runState); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	if runState.Live {
		t.Error("expected no live process after run")
	}
}

func TestHandleDestroySessionThenGetNotFound(t *testing.T) {
	s := newTestServer()

	body, _ := json.Marshal(SessionCreateRequest{Source: "E@"})
	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	createRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(createRec, createReq)

	var created SessionCreateResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+created.SessionID, nil)
	delRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", delRec.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.SessionID, nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", getRec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
