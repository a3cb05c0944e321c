package profile

import (
	"testing"

	"socialprobe/internal/testutil"
	"socialprobe/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		bio   string
		posts []models.Post
		want  string
	}{
		{"empty", "", nil, models.DefaultNiche},
		{"bio keyword", "Daily WORKOUT plans", nil, "Fitness"},
		{"hashtag in caption", "", []models.Post{{Caption: "sunday brunch #foodie"}}, "Food"},
		{"table order wins over text order", "travel photographer and fitness coach", nil, "Fitness"},
		{"whole words only", "education and concatenation", nil, models.DefaultNiche},
		{"caption fallback", "just me", []models.Post{{Caption: "new song out now"}, {Caption: "music video"}}, "Music"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, Classify(tt.bio, tt.posts), tt.want, "niche")
		})
	}
}
