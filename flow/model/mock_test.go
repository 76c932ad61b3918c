package model

import (
	"context"
	"errors"
	"testing"
)

func TestMockChatModel(t *testing.T) {
	ctx := context.Background()

	t.Run("responses in sequence, last repeats", func(t *testing.T) {
		mock := &MockChatModel{Responses: []ChatOut{
			{Text: "first"},
			{Text: "second"},
		}}

		for _, want := range []string{"first", "second", "second"} {
			out, err := mock.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}})
			if err != nil {
				t.Fatal(err)
			}
			if out.Text != want {
				t.Errorf("got %q, want %q", out.Text, want)
			}
		}
	})

	t.Run("records calls", func(t *testing.T) {
		mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
		msgs := []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hello"},
		}

		if _, err := mock.Chat(ctx, msgs); err != nil {
			t.Fatal(err)
		}
		if mock.CallCount() != 1 {
			t.Fatalf("call count = %d", mock.CallCount())
		}
		if mock.Calls[0][1].Content != "hello" {
			t.Errorf("recorded call = %+v", mock.Calls[0])
		}
	})

	t.Run("error injection", func(t *testing.T) {
		wantErr := errors.New("rate limited")
		mock := &MockChatModel{Err: wantErr}

		if _, err := mock.Chat(ctx, nil); !errors.Is(err, wantErr) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
		if _, err := mock.Chat(cancelled, nil); !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v", err)
		}
	})
}
