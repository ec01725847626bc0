package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestBannerFor(t *testing.T) {
	tests := map[string]string{
		ActionRegister: "Registration successful!",
		ActionUpdate:   "Registration updated successfully!",
		ActionDelete:   "Registration deleted successfully!",
		ActionView:     "",
	}
	for action, want := range tests {
		if got := BannerFor(action).Success; got != want {
			t.Fatalf("BannerFor(%s) = %q, want %q", action, got, want)
		}
	}
}

func TestBannerFromQuery(t *testing.T) {
	banner := BannerFromQuery("deleted", "")
	if banner.Success != "Registration deleted successfully!" || banner.Error != "" {
		t.Fatalf("unexpected banner %+v", banner)
	}

	banner = BannerFromQuery("bogus", "Registration not found")
	if banner.Success != "" || banner.Error != "Registration not found" {
		t.Fatalf("unexpected banner %+v", banner)
	}

	if !BannerFromQuery("", "").IsEmpty() {
		t.Fatalf("expected empty banner")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ValidationError{Field: "email", Message: "Invalid email format."}, "Invalid email format."},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "Registration not found"},
		{&StoreError{Op: "delete", Message: "Failed to delete registration", Err: errors.New("boom")}, "Failed to delete registration"},
		{errors.New("other"), "Unexpected error"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	if got := ErrorBanner(ErrNotFound); got.Error != "Registration not found" {
		t.Fatalf("unexpected error banner %+v", got)
	}
}
