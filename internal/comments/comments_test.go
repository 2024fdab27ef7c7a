// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package comments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/store"
	"github.com/tomtom215/reelfeed/internal/validation"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(st, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc
}

func validRequest() models.CreateCommentRequest {
	return models.CreateCommentRequest{MovieID: 603, UserID: "alice", Text: "  Still holds up.  ", Rating: 9}
}

func TestCreate(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	c, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Text != "Still holds up." {
		t.Errorf("Text = %q, want trimmed", c.Text)
	}
	if len(c.ID) != 36 {
		t.Errorf("ID = %q, want a UUID", c.ID)
	}

	got, err := svc.Get(c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Rating != 9 || got.UserID != "alice" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*models.CreateCommentRequest)
		field  string
	}{
		{"empty text", func(r *models.CreateCommentRequest) { r.Text = "   " }, "text"},
		{"long text", func(r *models.CreateCommentRequest) { r.Text = strings.Repeat("x", 1001) }, "text"},
		{"rating low", func(r *models.CreateCommentRequest) { r.Rating = 0 }, "rating"},
		{"rating high", func(r *models.CreateCommentRequest) { r.Rating = 11 }, "rating"},
		{"no movie", func(r *models.CreateCommentRequest) { r.MovieID = 0 }, "movie_id"},
		{"no user", func(r *models.CreateCommentRequest) { r.UserID = "" }, "user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)

			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
			if verr.Fields[0].Field != tt.field {
				t.Errorf("failed field = %q, want %q", verr.Fields[0].Field, tt.field)
			}
		})
	}
}

func TestListByMovie_NewestFirst(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		c, err := svc.Create(ctx, validRequest())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, c.ID)
	}
	other := validRequest()
	other.MovieID = 604
	if _, err := svc.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := svc.ListByMovie(603)
	if err != nil {
		t.Fatalf("ListByMovie() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListByMovie() returned %d, want 3", len(list))
	}
	for i, c := range list {
		if c.ID != ids[2-i] {
			t.Errorf("list[%d] = %s, want %s", i, c.ID, ids[2-i])
		}
	}

	empty, err := svc.ListByMovie(1)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListByMovie(unknown) = %v, %v", empty, err)
	}
}

func TestDelete_OnlyAuthor(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, c.ID, "mallory"); !errors.Is(err, ErrNotAuthor) {
		t.Errorf("Delete by other user error = %v, want ErrNotAuthor", err)
	}
	if err := svc.Delete(ctx, c.ID, "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
	if list, _ := svc.ListByMovie(603); len(list) != 0 {
		t.Errorf("index entry survived delete: %v", list)
	}
	if err := svc.Delete(ctx, c.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestLike_OncePerUser(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	c, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, user := range []string{"bob", "bob", "carol"} {
		if c, err = svc.Like(c.ID, user); err != nil {
			t.Fatalf("Like(%s) error = %v", user, err)
		}
	}
	if c.Likes != 2 {
		t.Errorf("Likes = %d, want 2", c.Likes)
	}

	stored, _ := svc.Get(c.ID)
	if stored.Likes != 2 || len(stored.LikedBy) != 2 {
		t.Errorf("stored = %+v", stored)
	}

	if _, err := svc.Like("00000000-0000-4000-8000-000000000000", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Like(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestGet_RejectsMalformedID(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	if _, err := svc.Get("not-a-uuid"); !validation.IsValidationError(err) {
		t.Errorf("Get() error = %v, want validation error", err)
	}
}
