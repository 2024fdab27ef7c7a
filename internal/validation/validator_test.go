// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package validation

import (
	"strings"
	"testing"
)

type sample struct {
	User   string `json:"user" validate:"required,user_handle"`
	Key    string `json:"video_key" validate:"omitempty,video_key"`
	Rating int    `json:"rating" validate:"min=1,max=10"`
	Note   string `validate:"max=5"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        sample
		wantField string
		wantMsg   string
	}{
		{"valid", sample{User: "alice", Key: "dQw4w9WgXcQ", Rating: 5}, "", ""},
		{"missing user", sample{Rating: 5}, "user", "user is required"},
		{"bad handle", sample{User: "bad handle", Rating: 5}, "user", "user must be 1 to 64"},
		{"bad key", sample{User: "a", Key: "../etc", Rating: 5}, "video_key", "video_key must be 1 to 64"},
		{"rating", sample{User: "a", Rating: 11}, "rating", "rating must be at most 10"},
		{"go name fallback", sample{User: "a", Rating: 1, Note: "too long"}, "Note", "Note must be at most 5 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := tt.in
			verr := ValidateStruct(&in)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if verr.Fields[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Fields[0].Field, tt.wantField)
			}
			if !strings.HasPrefix(verr.Fields[0].Message, tt.wantMsg) {
				t.Errorf("Message = %q, want prefix %q", verr.Fields[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&sample{User: "a", Rating: 0})
	apiErr := single.ToAPIError()
	if apiErr.Code != CodeValidation || apiErr.Details["field"] != "rating" {
		t.Errorf("single ToAPIError() = %+v", apiErr)
	}

	multi := ValidateStruct(&sample{Rating: 0})
	apiErr = multi.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("multi ToAPIError() details = %+v", apiErr.Details)
	}
	if !strings.Contains(apiErr.Message, "; ") {
		t.Errorf("multi message %q should join errors", apiErr.Message)
	}
}

func TestValidateVar(t *testing.T) {
	t.Parallel()

	if verr := ValidateVar("movie_id", 5, "gt=0"); verr != nil {
		t.Errorf("ValidateVar(5) = %v", verr)
	}
	verr := ValidateVar("movie_id", 0, "gt=0")
	if verr == nil {
		t.Fatal("ValidateVar(0) = nil, want error")
	}
	if verr.Fields[0].Field != "movie_id" || verr.Error() != "movie_id must be greater than 0" {
		t.Errorf("ValidateVar(0) = %+v", verr.Fields[0])
	}
	if !IsValidationError(verr) {
		t.Error("IsValidationError() = false")
	}
}

func TestGetValidator_CustomTags(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("GetValidator() panicked: %v", r)
		}
	}()
	v := GetValidator()
	if v != GetValidator() {
		t.Error("GetValidator() should return a shared instance")
	}

	tests := []struct {
		tag   string
		value string
		ok    bool
	}{
		{"user_handle", "alice.b-2", true},
		{"user_handle", "a*b", false},
		{"user_handle", strings.Repeat("x", 65), false},
		{"video_key", "dQw4w9WgXcQ", true},
		{"video_key", "../etc", false},
	}
	for _, tt := range tests {
		err := v.Var(tt.value, tt.tag)
		if (err == nil) != tt.ok {
			t.Errorf("Var(%q, %s) error = %v, want ok=%v", tt.value, tt.tag, err, tt.ok)
		}
	}
}
