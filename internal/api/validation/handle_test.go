package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type handleRequest struct {
	Handle    string   `validate:"required,handle"`
	Providers []string `validate:"omitempty,dive,provider_id"`
}

func TestProfileValidators(t *testing.T) {
	v := validator.New()
	RegisterProfileValidators(v)

	tests := []struct {
		name    string
		req     handleRequest
		wantErr bool
	}{
		{"plain handle", handleRequest{Handle: "instagram"}, false},
		{"at sign", handleRequest{Handle: "@NatGeo"}, false},
		{"profile url", handleRequest{Handle: "https://www.instagram.com/nasa/"}, false},
		{"empty", handleRequest{Handle: ""}, true},
		{"spaces inside", handleRequest{Handle: "two words"}, true},
		{"too long", handleRequest{Handle: "abcdefghijabcdefghijabcdefghijabc"}, true},
		{"provider ids", handleRequest{Handle: "nasa", Providers: []string{"apify-profile", "apify/instagram-scraper"}}, false},
		{"blank provider id", handleRequest{Handle: "nasa", Providers: []string{"apify profile"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
