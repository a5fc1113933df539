package memory

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStoreListsNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, content := range []string{"oldest", "middle", "newest"} {
		err := s.Save(ctx, Memory{
			UserID:    "u1",
			Kind:      "fact",
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := s.ListByUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListByUser() returned %d records, want 3", len(got))
	}
	want := []string{"newest", "middle", "oldest"}
	for i := range want {
		if got[i].Content != want[i] {
			t.Fatalf("record %d = %q, want %q (newest first)", i, got[i].Content, want[i])
		}
	}

	limited, err := s.ListByUser(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(limited) != 2 || limited[0].Content != "newest" {
		t.Fatalf("limited list = %+v, want two newest", limited)
	}
}

func TestInMemoryStoreGeneratesIDAndTimestamp(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.Save(context.Background(), Memory{UserID: "u1", Content: "likes tea"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.ListByUser(context.Background(), "u1", 1)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != 1 || got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("saved memory = %+v, want generated id and timestamp", got)
	}
}

func TestInMemoryStoreUnknownUserIsEmpty(t *testing.T) {
	s := NewInMemoryStore()
	got, err := s.ListByUser(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("ListByUser() = %v, want empty", got)
	}
}
