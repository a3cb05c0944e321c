package profile

import (
	"encoding/json"
	"testing"

	"socialprobe/internal/testutil"
	"socialprobe/pkg/models"
)

func TestAnalyze_GhostDataExample(t *testing.T) {
	raw := testutil.DecodeJSON(t, `{"username": "instagram", "followersCount": 500000000, "postsCount": 7000, "latestPosts": []}`)

	a := Analyze(raw, nil)

	if a.DataFetchWarning == nil {
		t.Fatal("dataFetchWarning should be set for ghost data")
	}
	testutil.AssertContains(t, *a.DataFetchWarning, "ghost data", "warning")
	testutil.AssertEqual(t, a.AvgLikes.State(), models.MetricUnknown, "avgLikes")
	testutil.AssertEqual(t, a.AvgComments.State(), models.MetricUnknown, "avgComments")
	testutil.AssertEqual(t, a.EngagementRate.State(), models.MetricUnknown, "engagementRate")
	testutil.AssertEqual(t, a.BotScore, 25, "botScore")
	testutil.AssertEqual(t, a.Niche, models.DefaultNiche, "niche")

	out, err := json.Marshal(a)
	testutil.AssertNoError(t, err, "marshal")
	doc := testutil.DecodeJSON(t, string(out))
	for _, field := range []string{"avgLikes", "avgComments", "engagementRate"} {
		v, present := doc[field]
		testutil.AssertTrue(t, present, field+" should be present")
		testutil.AssertTrue(t, v == nil, field+" should be null")
	}
}

func TestAnalyze_HealthyProfile(t *testing.T) {
	raw := testutil.DecodeJSON(t, `{
		"username": "gym.rat",
		"biography": "Strength training every day",
		"profilePicUrl": "https://cdn.example.com/g.jpg",
		"followersCount": 4000,
		"followsCount": 350,
		"postsCount": 40,
		"latestPosts": [
			{"id": "1", "likesCount": 200, "commentsCount": 20, "timestamp": "2026-04-02T00:00:00Z"},
			{"id": "2", "likesCount": 100, "commentsCount": 10, "timestamp": "2026-04-01T00:00:00Z"},
			{"id": "3", "likesCount": 150, "commentsCount": 15, "timestamp": "2026-03-30T00:00:00Z"},
			{"id": "4", "likesCount": 250, "commentsCount": 25, "timestamp": "2026-03-29T00:00:00Z"},
			{"id": "5", "likesCount": 300, "commentsCount": 30, "timestamp": "2026-03-28T00:00:00Z"}
		]
	}`)

	a := Analyze(raw, nil)

	testutil.AssertTrue(t, a.DataFetchWarning == nil, "no warning expected")
	likes, _ := a.AvgLikes.Value()
	comments, _ := a.AvgComments.Value()
	rate, _ := a.EngagementRate.Value()
	testutil.AssertEqual(t, likes, float64(200), "avgLikes")
	testutil.AssertEqual(t, comments, float64(20), "avgComments")
	testutil.AssertEqual(t, rate, 5.5, "engagementRate")
	testutil.AssertEqual(t, a.BotScore, 0, "botScore")
	testutil.AssertEqual(t, a.Niche, "Fitness", "niche")
	testutil.AssertEqual(t, len(a.SuspiciousPatterns), 0, "patterns")
}
