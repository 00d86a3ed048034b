package api

import "testing"

func TestCreateSessionCompilesAndLoads(t *testing.T) {
	sm := NewSessionManager(nil)

	session, err := sm.CreateSession(SessionCreateRequest{Source: "E@"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.EntryCount != 1 {
		t.Errorf("expected 1 entry point, got %d", session.EntryCount)
	}
	if session.ImageBytes == 0 {
		t.Error("expected a non-empty compiled image")
	}

	got, err := sm.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.ID != session.ID {
		t.Errorf("GetSession returned a different session")
	}
}

func TestCreateSessionRejectsBadSource(t *testing.T) {
	sm := NewSessionManager(nil)
	if _, err := sm.CreateSession(SessionCreateRequest{Source: "\x01"}); err == nil {
		t.Error("expected compile error for malformed source")
	}
}

func TestSessionStepHaltsImmediately(t *testing.T) {
	sm := NewSessionManager(nil)
	session, err := sm.CreateSession(SessionCreateRequest{Source: "E@"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	state := session.Step(nil)
	if state.Live {
		t.Error("expected the lone process to have halted after one step")
	}
	if len(state.Processes) != 1 || !state.Processes[0].Stopped {
		t.Errorf("expected the single process to report stopped, got %+v", state.Processes)
	}
}

func TestSessionRunRespectsMaxSteps(t *testing.T) {
	// Every pass through the loop re-pushes a nonzero digit before the
	// COND, so the nonzero branch is always taken and the HALT on the
	// zero branch is never reached. Run must still return once maxSteps
	// elapses rather than hang.
	src := "" +
		"S    \n" +
		">1_@ \n"
	sm := NewSessionManager(nil)
	session, err := sm.CreateSession(SessionCreateRequest{Source: src})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	state := session.Run(nil, 50)
	if !state.Live {
		t.Error("expected the process to still be live after a bounded run of a non-terminating loop")
	}
}

func TestDestroySessionRemovesIt(t *testing.T) {
	sm := NewSessionManager(nil)
	session, err := sm.CreateSession(SessionCreateRequest{Source: "E@"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := sm.DestroySession(session.ID); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	if _, err := sm.GetSession(session.ID); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
