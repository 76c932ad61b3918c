package store

import (
	"context"
	"errors"
	"testing"
)

type testState struct {
	Node string `json:"node"`
	Vars map[string]string
}

func TestMemStore_SaveAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[testState]()

	t.Run("unknown conversation", func(t *testing.T) {
		_, _, err := st.LoadLatest(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("latest wins", func(t *testing.T) {
		if err := st.SaveTurn(ctx, "conv-1", 1, "start", testState{Node: "start"}); err != nil {
			t.Fatal(err)
		}
		if err := st.SaveTurn(ctx, "conv-1", 2, "ask", testState{Node: "ask"}); err != nil {
			t.Fatal(err)
		}

		state, turn, err := st.LoadLatest(ctx, "conv-1")
		if err != nil {
			t.Fatal(err)
		}
		if turn != 2 || state.Node != "ask" {
			t.Errorf("got turn %d node %q, want 2/ask", turn, state.Node)
		}
	})

	t.Run("out-of-order saves", func(t *testing.T) {
		if err := st.SaveTurn(ctx, "conv-2", 3, "late", testState{Node: "late"}); err != nil {
			t.Fatal(err)
		}
		if err := st.SaveTurn(ctx, "conv-2", 1, "early", testState{Node: "early"}); err != nil {
			t.Fatal(err)
		}

		_, turn, err := st.LoadLatest(ctx, "conv-2")
		if err != nil {
			t.Fatal(err)
		}
		if turn != 3 {
			t.Errorf("got turn %d, want 3", turn)
		}
	})

	t.Run("saving a turn again replaces it", func(t *testing.T) {
		if err := st.SaveTurn(ctx, "conv-3", 1, "a", testState{Node: "a"}); err != nil {
			t.Fatal(err)
		}
		if err := st.SaveTurn(ctx, "conv-3", 1, "b", testState{Node: "b"}); err != nil {
			t.Fatal(err)
		}

		state, turn, err := st.LoadLatest(ctx, "conv-3")
		if err != nil {
			t.Fatal(err)
		}
		if turn != 1 || state.Node != "b" {
			t.Errorf("got turn %d node %q, want 1/b", turn, state.Node)
		}
	})
}

func TestMemStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[testState]()

	t.Run("unknown label", func(t *testing.T) {
		_, _, err := st.LoadSnapshot(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		want := testState{Node: "parked", Vars: map[string]string{"name": "Ada"}}
		if err := st.SaveSnapshot(ctx, "ticket-9", want, 4); err != nil {
			t.Fatal(err)
		}

		state, turn, err := st.LoadSnapshot(ctx, "ticket-9")
		if err != nil {
			t.Fatal(err)
		}
		if turn != 4 || state.Node != "parked" || state.Vars["name"] != "Ada" {
			t.Errorf("got %+v turn %d", state, turn)
		}
	})

	t.Run("label overwrite", func(t *testing.T) {
		if err := st.SaveSnapshot(ctx, "ticket-9", testState{Node: "moved"}, 7); err != nil {
			t.Fatal(err)
		}

		state, turn, err := st.LoadSnapshot(ctx, "ticket-9")
		if err != nil {
			t.Fatal(err)
		}
		if turn != 7 || state.Node != "moved" {
			t.Errorf("got %+v turn %d, want moved/7", state, turn)
		}
	})
}
