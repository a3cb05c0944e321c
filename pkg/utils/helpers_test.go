package utils

import (
	"errors"
	"net/http"
	"testing"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "instagram", "instagram"},
		{"at sign and case", "  @NatGeo ", "natgeo"},
		{"profile url", "https://www.instagram.com/Nasa/", "nasa"},
		{"url with query", "https://instagram.com/nike?hl=en", "nike"},
		{"url without scheme", "instagram.com/some.user_1/", "some.user_1"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeHandle(tt.input); got != tt.want {
				t.Errorf("NormalizeHandle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidHandle(t *testing.T) {
	tests := []struct {
		handle string
		want   bool
	}{
		{"instagram", true},
		{"some.user_1", true},
		{"", false},
		{"has space", false},
		{"UPPER", false},
		{"abcdefghijabcdefghijabcdefghijk", false},
	}

	for _, tt := range tests {
		if got := IsValidHandle(tt.handle); got != tt.want {
			t.Errorf("IsValidHandle(%q) = %v, want %v", tt.handle, got, tt.want)
		}
	}
}

func TestCustomErrorCodes(t *testing.T) {
	var err error = NewServiceUnavailableError("all providers failed")

	var ce *CustomError
	if !errors.As(err, &ce) {
		t.Fatal("expected *CustomError")
	}
	if ce.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d, want 503", ce.Code)
	}
	if got := err.Error(); got != "Service temporarily unavailable: all providers failed" {
		t.Errorf("Error() = %q", got)
	}
	if NewProfileInputError("private").Code != http.StatusBadRequest {
		t.Error("profile input errors should map to 400")
	}
}
