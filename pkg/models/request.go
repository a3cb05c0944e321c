package models

// AnalyzeRequest is the payload for profile analysis endpoints
type AnalyzeRequest struct {
	Handle    string   `json:"handle" validate:"required,handle"`
	Providers []string `json:"providers,omitempty" validate:"omitempty,dive,provider_id"`
	SkipCache bool     `json:"skip_cache,omitempty"`
}
