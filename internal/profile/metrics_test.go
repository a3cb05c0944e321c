package profile

import (
	"testing"

	"socialprobe/internal/testutil"
	"socialprobe/pkg/models"
)

func normalizedWith(followers int64, posts ...models.Post) Normalized {
	var n Normalized
	n.Account.Followers = followers
	n.Posts = posts
	return n
}

func TestReconcile_AllZeroPostsAreUnknown(t *testing.T) {
	n := normalizedWith(5000,
		models.Post{ID: "a"},
		models.Post{ID: "b"},
		models.Post{ID: "c"},
	)

	m := Reconcile(n)

	testutil.AssertEqual(t, m.AvgLikes.State(), models.MetricUnknown, "avgLikes")
	testutil.AssertEqual(t, m.AvgComments.State(), models.MetricUnknown, "avgComments")
	testutil.AssertEqual(t, m.EngagementRate.State(), models.MetricUnknown, "engagementRate")
	testutil.AssertEqual(t, m.SampleSize, 0, "sample size")
}

func TestReconcile_MeanOverFirstTwelveQualifying(t *testing.T) {
	posts := make([]models.Post, 0, 14)
	for i := 0; i < 14; i++ {
		p := models.Post{ID: "p", Likes: int64(10 * (i + 1)), Comments: 1}
		if i == 3 {
			p.Likes, p.Comments = 0, 0
		}
		posts = append(posts, p)
	}

	m := Reconcile(normalizedWith(1000, posts...))

	// qualifying: posts 0-2 and 4-12, likes sum 870 over 12 posts
	likes, ok := m.AvgLikes.Value()
	testutil.AssertTrue(t, ok, "avgLikes should be known")
	testutil.AssertEqual(t, likes, float64(73), "avgLikes")

	comments, ok := m.AvgComments.Value()
	testutil.AssertTrue(t, ok, "avgComments should be known")
	testutil.AssertEqual(t, comments, float64(1), "avgComments")

	testutil.AssertEqual(t, m.SampleSize, 12, "sample size")

	rate, ok := m.EngagementRate.Value()
	testutil.AssertTrue(t, ok, "engagementRate should be known")
	testutil.AssertEqual(t, rate, 7.4, "engagementRate")
}

func TestReconcile_ZeroCommentsWithEvidenceIsKnownZero(t *testing.T) {
	m := Reconcile(normalizedWith(100, models.Post{Likes: 4}, models.Post{Likes: 6}))

	testutil.AssertEqual(t, m.AvgComments.State(), models.MetricZero, "avgComments should be a computed zero")
	testutil.AssertEqual(t, m.AvgLikes.State(), models.MetricPositive, "avgLikes")
}

func TestReconcile_ProviderAggregateFallback(t *testing.T) {
	n := normalizedWith(2000, models.Post{ID: "silent"})
	n.ProviderAvgLikes = models.KnownMetric(150)
	n.ProviderAvgComments = models.KnownMetric(10)

	m := Reconcile(n)

	likes, _ := m.AvgLikes.Value()
	testutil.AssertEqual(t, likes, float64(150), "avgLikes from aggregate")
	rate, ok := m.EngagementRate.Value()
	testutil.AssertTrue(t, ok, "engagementRate should be computed from aggregates")
	testutil.AssertEqual(t, rate, float64(8), "engagementRate")
}

func TestReconcile_ProviderRateFallback(t *testing.T) {
	n := normalizedWith(2000)
	n.ProviderEngagementRate = models.KnownMetric(3.25)

	m := Reconcile(n)

	rate, ok := m.EngagementRate.Value()
	testutil.AssertTrue(t, ok, "provider rate should be used")
	testutil.AssertEqual(t, rate, 3.25, "engagementRate")
}

func TestReconcile_ZeroFollowersNeverHasRate(t *testing.T) {
	tests := []struct {
		name string
		n    Normalized
	}{
		{"post evidence", normalizedWith(0, models.Post{Likes: 50, Comments: 5})},
		{"provider rate", func() Normalized {
			n := normalizedWith(0)
			n.ProviderEngagementRate = models.KnownMetric(4)
			return n
		}()},
		{"nothing", normalizedWith(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Reconcile(tt.n)
			testutil.AssertEqual(t, m.EngagementRate.State(), models.MetricUnknown, "engagementRate")
		})
	}
}
