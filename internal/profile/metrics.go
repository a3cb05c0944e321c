package profile

import (
	"math"

	"socialprobe/pkg/models"
)

// Metrics are the engagement statistics derived for one record
type Metrics struct {
	AvgLikes       models.Metric
	AvgComments    models.Metric
	EngagementRate models.Metric

	// SampleSize is the number of posts the averages were computed over,
	// zero when they came from provider aggregates or are unknown
	SampleSize int
}

// Reconcile derives averages and engagement rate. Post samples are preferred
// over provider aggregates; with neither the metrics stay unknown.
func Reconcile(n Normalized) Metrics {
	var m Metrics

	qualifying := make([]models.Post, 0, models.MaxRecentPosts)
	for _, p := range n.Posts {
		if !p.HasEngagement() {
			continue
		}
		qualifying = append(qualifying, p)
		if len(qualifying) == models.MaxRecentPosts {
			break
		}
	}

	if len(qualifying) > 0 {
		var likes, comments int64
		for _, p := range qualifying {
			likes += p.Likes
			comments += p.Comments
		}
		count := float64(len(qualifying))
		m.AvgLikes = models.KnownMetric(math.Round(float64(likes) / count))
		m.AvgComments = models.KnownMetric(math.Round(float64(comments) / count))
		m.SampleSize = len(qualifying)
	} else {
		m.AvgLikes = n.ProviderAvgLikes
		m.AvgComments = n.ProviderAvgComments
	}

	m.EngagementRate = engagementRate(n.Account.Followers, m.AvgLikes, m.AvgComments, n.ProviderEngagementRate)
	return m
}

func engagementRate(followers int64, avgLikes, avgComments, providerRate models.Metric) models.Metric {
	if followers <= 0 {
		return models.UnknownMetric()
	}

	likes, likesKnown := avgLikes.Value()
	comments, commentsKnown := avgComments.Value()
	if likesKnown && commentsKnown {
		return models.KnownMetric(round2((likes + comments) / float64(followers) * 100))
	}

	return providerRate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
