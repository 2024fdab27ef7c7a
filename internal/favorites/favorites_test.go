// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package favorites

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/store"
	"github.com/tomtom215/reelfeed/internal/validation"
)

type stubMovies struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubMovies) MovieDetails(_ context.Context, movieID int) (models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return models.Movie{}, s.err
	}
	return models.Movie{ID: movieID, Title: "Heat", VoteAverage: 8.3, Liked: true}, nil
}

type topicRecorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *topicRecorder) Publish(_ context.Context, topic string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
}

func newTestService(t *testing.T) (*Service, *stubMovies, *topicRecorder) {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	movies := &stubMovies{}
	pub := &topicRecorder{}
	svc := NewService(st, movies, pub)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return svc, movies, pub
}

func TestAdd_IsIdempotent(t *testing.T) {
	t.Parallel()
	svc, movies, pub := newTestService(t)
	ctx := context.Background()

	fav, created, err := svc.Add(ctx, "alice", 949)
	if err != nil || !created {
		t.Fatalf("Add() = %v, %v; want created", created, err)
	}
	if fav.Movie.Title != "Heat" || fav.Movie.Liked {
		t.Errorf("stored movie = %+v, want title snapshot without liked flag", fav.Movie)
	}

	again, created, err := svc.Add(ctx, "alice", 949)
	if err != nil || created {
		t.Fatalf("second Add() = %v, %v; want existing", created, err)
	}
	if !again.AddedAt.Equal(fav.AddedAt) {
		t.Errorf("AddedAt changed on repeat add")
	}
	if movies.calls != 1 {
		t.Errorf("MovieDetails called %d times, want 1", movies.calls)
	}
	if len(pub.topics) != 1 {
		t.Errorf("published %v, want one favorite.added", pub.topics)
	}
}

func TestListRemoveHas(t *testing.T) {
	t.Parallel()
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	for _, id := range []int{30, 10, 20} {
		if _, _, err := svc.Add(ctx, "alice", id); err != nil {
			t.Fatalf("Add(%d) error = %v", id, err)
		}
	}
	if _, _, err := svc.Add(ctx, "bob", 10); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	list, err := svc.List("alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []int{30, 10, 20}
	if len(list) != len(want) {
		t.Fatalf("List() returned %d, want %d", len(list), len(want))
	}
	for i, f := range list {
		if f.Movie.ID != want[i] {
			t.Errorf("List()[%d] = %d, want %d (insertion order)", i, f.Movie.ID, want[i])
		}
	}

	removed, err := svc.Remove(ctx, "alice", 10)
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v", removed, err)
	}
	removed, err = svc.Remove(ctx, "alice", 10)
	if err != nil || removed {
		t.Errorf("second Remove() = %v, %v; want false, nil", removed, err)
	}

	if has, _ := svc.Has("alice", 10); has {
		t.Error("alice should no longer have 10")
	}
	if has, _ := svc.Has("bob", 10); !has {
		t.Error("bob's favorite must be untouched")
	}
	if n, _ := svc.Count("alice"); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	if got := pub.topics[len(pub.topics)-1]; got != "favorite.removed" {
		t.Errorf("last topic = %q, want favorite.removed", got)
	}
}

func TestAdd_Validation(t *testing.T) {
	t.Parallel()
	svc, movies, _ := newTestService(t)

	tests := []struct {
		name    string
		user    string
		movieID int
	}{
		{"empty user", "", 1},
		{"bad user", "a b", 1},
		{"zero id", "alice", 0},
		{"negative id", "alice", -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Add(context.Background(), tt.user, tt.movieID)
			if !validation.IsValidationError(err) {
				t.Errorf("Add() error = %v, want validation error", err)
			}
		})
	}
	if movies.calls != 0 {
		t.Errorf("provider called %d times for invalid input", movies.calls)
	}
}

func TestAdd_ProviderFailure(t *testing.T) {
	t.Parallel()
	svc, movies, pub := newTestService(t)
	movies.err = errors.New("provider down")

	if _, _, err := svc.Add(context.Background(), "alice", 5); err == nil {
		t.Fatal("Add() should fail when details are unavailable")
	}
	if has, _ := svc.Has("alice", 5); has {
		t.Error("failed add must not store anything")
	}
	if len(pub.topics) != 0 {
		t.Errorf("published %v on failure", pub.topics)
	}
}
