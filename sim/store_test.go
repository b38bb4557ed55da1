package sim

import "testing"

func TestStore_Construction(t *testing.T) {
	initial := newEmptyState()
	s := NewStore(initial)

	if s == nil {
		t.Fatal("NewStore returned nil")
	}
	if s.GetState().TimeMs != 0 {
		t.Errorf("GetState().TimeMs = %d, want 0", s.GetState().TimeMs)
	}
	if !sameTokenMap(s.GetState().Tokens, initial.Tokens) {
		t.Error("GetState() should return the exact state NewStore was constructed with")
	}
	if !sameTokenMap(s.GetInitialState().Tokens, initial.Tokens) {
		t.Error("GetInitialState() should return the constructor's state")
	}
}

func TestStore_UpdateTokens_StructuralSharing(t *testing.T) {
	s := NewStore(newEmptyState())
	beforeNodes := s.GetState().Nodes

	s.UpdateTokens(func(cur map[string]Token) map[string]Token {
		next := cloneTokens(cur)
		next["tok-1"] = Token{ID: "tok-1"}
		return next
	})

	if !sameNodeMap(s.GetState().Nodes, beforeNodes) {
		t.Error("updating tokens should not change the nodes map identity")
	}
	if _, ok := s.GetState().Tokens["tok-1"]; !ok {
		t.Error("token was not persisted")
	}
}

func TestStore_UpdateNoOp_KeepsIdentity(t *testing.T) {
	s := NewStore(newEmptyState())
	before := s.GetState().Tokens

	s.UpdateTokens(func(cur map[string]Token) map[string]Token { return cur })

	if !sameTokenMap(s.GetState().Tokens, before) {
		t.Error("a no-op update must not mint a new map identity")
	}
}

func TestStore_SetTimeMs(t *testing.T) {
	s := NewStore(newEmptyState())
	s.SetTimeMs(500)
	if s.GetState().TimeMs != 500 {
		t.Errorf("TimeMs = %d, want 500", s.GetState().TimeMs)
	}
}

func TestStore_RestoreTo_EmptyLog(t *testing.T) {
	s := NewStore(newEmptyState())
	s.UpdateTokens(func(cur map[string]Token) map[string]Token {
		next := cloneTokens(cur)
		next["tok-1"] = Token{ID: "tok-1"}
		return next
	})

	got := s.RestoreTo(1000)
	if got != 0 {
		t.Errorf("RestoreTo with no checkpoints should return 0, got %d", got)
	}
	if len(s.GetState().Tokens) != 0 {
		t.Error("RestoreTo with no checkpoints should restore the initial (empty) state")
	}
}

func TestStore_RestoreTo_NegativeTarget(t *testing.T) {
	s := NewStore(newEmptyState())
	s.Checkpoint(0)
	s.UpdateTokens(func(cur map[string]Token) map[string]Token {
		next := cloneTokens(cur)
		next["tok-1"] = Token{ID: "tok-1"}
		return next
	})
	s.Checkpoint(100)

	got := s.RestoreTo(-1)
	if got != 0 {
		t.Errorf("RestoreTo(-1) should return 0, got %d", got)
	}
	if len(s.GetState().Tokens) != 0 {
		t.Error("RestoreTo(-1) should restore the initial state regardless of the checkpoint log")
	}
}

func TestStore_RestoreTo_ExactAndBetween(t *testing.T) {
	s := NewStore(newEmptyState())
	s.Checkpoint(0)

	s.UpdateTokens(func(cur map[string]Token) map[string]Token {
		next := cloneTokens(cur)
		next["tok-1"] = Token{ID: "tok-1", Progress: 0.2}
		return next
	})
	s.Checkpoint(100)

	s.UpdateTokens(func(cur map[string]Token) map[string]Token {
		next := cloneTokens(cur)
		next["tok-1"] = Token{ID: "tok-1", Progress: 0.8}
		return next
	})
	s.Checkpoint(200)

	t.Run("exact match at 100", func(t *testing.T) {
		got := s.RestoreTo(100)
		if got != 100 {
			t.Errorf("RestoreTo(100) = %d, want 100", got)
		}
		if s.GetState().Tokens["tok-1"].Progress != 0.2 {
			t.Errorf("expected progress 0.2 at t=100, got %v", s.GetState().Tokens["tok-1"].Progress)
		}
	})

	t.Run("between checkpoints rounds down", func(t *testing.T) {
		got := s.RestoreTo(150)
		if got != 100 {
			t.Errorf("RestoreTo(150) = %d, want 100 (last checkpoint <= target)", got)
		}
	})

	t.Run("past the last checkpoint clamps to it", func(t *testing.T) {
		got := s.RestoreTo(10_000)
		if got != 200 {
			t.Errorf("RestoreTo(10000) = %d, want 200", got)
		}
		if s.GetState().Tokens["tok-1"].Progress != 0.8 {
			t.Error("expected final progress after seeking past the log")
		}
	})

	t.Run("before the first checkpoint restores initial", func(t *testing.T) {
		got := s.RestoreTo(50)
		if got != 0 {
			t.Errorf("RestoreTo(50) = %d, want 0", got)
		}
		if len(s.GetState().Tokens) != 0 {
			t.Error("RestoreTo before any checkpoint should yield the empty initial state")
		}
	})
}

func TestStore_RestoreTo_DuplicateTimesLastWins(t *testing.T) {
	s := NewStore(newEmptyState())

	s.UpdateTokens(func(cur map[string]Token) map[string]Token {
		next := cloneTokens(cur)
		next["tok-1"] = Token{ID: "tok-1", Progress: 0.1}
		return next
	})
	s.Checkpoint(100)

	s.UpdateTokens(func(cur map[string]Token) map[string]Token {
		next := cloneTokens(cur)
		next["tok-1"] = Token{ID: "tok-1", Progress: 0.9}
		return next
	})
	s.Checkpoint(100)

	got := s.RestoreTo(100)
	if got != 100 {
		t.Fatalf("RestoreTo(100) = %d, want 100", got)
	}
	if s.GetState().Tokens["tok-1"].Progress != 0.9 {
		t.Errorf("expected the later of two same-time checkpoints to win, got progress %v",
			s.GetState().Tokens["tok-1"].Progress)
	}
}

func TestStore_TruncateCheckpointsAfter(t *testing.T) {
	s := NewStore(newEmptyState())
	s.Checkpoint(0)
	s.Checkpoint(100)
	s.Checkpoint(200)

	s.TruncateCheckpointsAfter(100)

	if len(s.checkpoints) != 2 {
		t.Fatalf("expected 2 remaining checkpoints, got %d", len(s.checkpoints))
	}
	if got := s.RestoreTo(10_000); got != 100 {
		t.Errorf("RestoreTo after truncation = %d, want 100 (the 200 entry should be gone)", got)
	}
}

func TestStore_TruncateCheckpointsAfter_AllowsReappendingAtAnEarlierTime(t *testing.T) {
	s := NewStore(newEmptyState())
	s.Checkpoint(0)
	s.Checkpoint(100)
	s.Checkpoint(200)

	s.TruncateCheckpointsAfter(100)
	s.Checkpoint(150) // would be out of order without the truncation above

	if got := s.RestoreTo(150); got != 150 {
		t.Errorf("RestoreTo(150) = %d, want 150", got)
	}
}

func TestStore_ClearCheckpoints(t *testing.T) {
	s := NewStore(newEmptyState())
	s.Checkpoint(0)
	s.Checkpoint(100)

	s.ClearCheckpoints()

	got := s.RestoreTo(100)
	if got != 0 {
		t.Errorf("after ClearCheckpoints, RestoreTo should fall back to the initial state, got %d", got)
	}
}
