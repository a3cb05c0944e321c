package profile

import (
	"sort"

	"socialprobe/pkg/models"
)

// Normalized is a provider record mapped onto the canonical shape, before
// metrics, diagnostics and scoring are applied
type Normalized struct {
	Account models.AccountData

	// Posts holds every scraped post, newest first. Account.RecentPosts is
	// its first models.MaxRecentPosts entries.
	Posts []models.Post

	// Provider aggregates, known whenever the provider reported a non-negative number
	ProviderAvgLikes       models.Metric
	ProviderAvgComments    models.Metric
	ProviderEngagementRate models.Metric
}

// Normalize maps raw onto the canonical record. Missing or malformed fields
// fall back to zero values; it never fails.
func Normalize(raw map[string]interface{}, overrides FieldMap) Normalized {
	return NewResolver(overrides).Normalize(raw)
}

// Normalize maps raw onto the canonical record using the resolver's field table
func (r *Resolver) Normalize(raw map[string]interface{}) Normalized {
	var n Normalized
	if raw == nil {
		raw = map[string]interface{}{}
	}

	a := &n.Account
	a.Username, _ = r.String(raw, "username")
	a.FullName, _ = r.String(raw, "fullName")
	a.Bio, _ = r.String(raw, "bio")
	a.ExternalURL, _ = r.String(raw, "externalUrl")
	a.ProfilePicURL, _ = r.String(raw, "profilePicUrl")
	a.Verified, _ = r.Bool(raw, "verified")
	a.IsPrivate, _ = r.Bool(raw, "isPrivate")
	a.IsBusiness, _ = r.Bool(raw, "isBusiness")

	a.Followers = r.count(raw, "followers")
	a.Following = r.count(raw, "following")
	a.Posts = r.count(raw, "posts")

	if list, ok := r.List(raw, "recentPosts"); ok {
		n.Posts = r.posts(list)
	}
	a.RecentPosts = n.Posts
	if len(a.RecentPosts) > models.MaxRecentPosts {
		a.RecentPosts = a.RecentPosts[:models.MaxRecentPosts]
	}
	if a.RecentPosts == nil {
		a.RecentPosts = []models.Post{}
	}

	n.ProviderAvgLikes = r.aggregate(raw, "avgLikes")
	n.ProviderAvgComments = r.aggregate(raw, "avgComments")
	n.ProviderEngagementRate = r.aggregate(raw, "engagementRate")

	a.RawData = raw
	return n
}

// count resolves a non-negative count, zero when absent
func (r *Resolver) count(rec map[string]interface{}, field string) int64 {
	v, ok := r.Int(rec, field)
	if !ok || v < 0 {
		return 0
	}
	return v
}

// aggregate resolves a provider-supplied average. A reported zero stays a
// known zero; missing, non-numeric or negative values are unknown.
func (r *Resolver) aggregate(rec map[string]interface{}, field string) models.Metric {
	v, ok := r.Float(rec, field)
	if !ok {
		return models.UnknownMetric()
	}
	return models.KnownMetric(v)
}

func (r *Resolver) posts(list []interface{}) []models.Post {
	posts := make([]models.Post, 0, len(list))
	allTimed := true

	for _, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		// graph-style edges wrap each post in a node
		if node, ok := rec["node"].(map[string]interface{}); ok && len(rec) == 1 {
			rec = node
		}

		var p models.Post
		p.ID, _ = r.String(rec, "post.id")
		p.Type, _ = r.String(rec, "post.type")
		p.Caption, _ = r.String(rec, "post.caption")
		// hidden like counts are reported as negative numbers
		p.Likes = r.count(rec, "post.likes")
		p.Comments = r.count(rec, "post.comments")
		if ts, ok := r.Time(rec, "post.timestamp"); ok {
			p.Timestamp = &ts
		} else {
			allTimed = false
		}
		posts = append(posts, p)
	}

	// without a timestamp on every post the provider's order is kept
	if allTimed {
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].Timestamp.After(*posts[j].Timestamp)
		})
	}
	return posts
}
