package profile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldMap maps a canonical field name to the ordered source field names it
// may appear under. Dotted names address nested maps ("edge_followed_by.count")
// and numeric segments index lists. Post fields use the "post." prefix.
type FieldMap map[string][]string

// defaultFields lists the naming conventions seen across providers. Every list
// starts with the canonical name so canonical records resolve to themselves.
var defaultFields = FieldMap{
	"username":       {"username", "userName", "user_name", "handle", "ownerUsername"},
	"fullName":       {"fullName", "full_name", "name"},
	"bio":            {"bio", "biography", "description"},
	"externalUrl":    {"externalUrl", "external_url", "website", "externalUrlShimmed"},
	"profilePicUrl":  {"profilePicUrl", "profilePicUrlHD", "profile_pic_url_hd", "profile_pic_url", "avatar"},
	"verified":       {"verified", "isVerified", "is_verified"},
	"isPrivate":      {"isPrivate", "private", "is_private"},
	"isBusiness":     {"isBusiness", "isBusinessAccount", "is_business_account", "is_business"},
	"followers":      {"followers", "followersCount", "followers_count", "follower_count", "edge_followed_by.count"},
	"following":      {"following", "followsCount", "followingCount", "following_count", "follows", "edge_follow.count"},
	"posts":          {"posts", "postsCount", "posts_count", "mediaCount", "media_count", "edge_owner_to_timeline_media.count"},
	"recentPosts":    {"recentPosts", "latestPosts", "latest_posts", "posts", "edge_owner_to_timeline_media.edges"},
	"avgLikes":       {"avgLikes", "avg_likes", "averageLikes"},
	"avgComments":    {"avgComments", "avg_comments", "averageComments"},
	"engagementRate": {"engagementRate", "engagement_rate", "avg_engagement"},

	"post.id":        {"id", "shortCode", "shortcode", "pk"},
	"post.type":      {"type", "productType", "media_type", "__typename"},
	"post.likes":     {"likes", "likesCount", "likes_count", "like_count", "edge_liked_by.count", "edge_media_preview_like.count"},
	"post.comments":  {"comments", "commentsCount", "comments_count", "comment_count", "num_comments", "edge_media_to_comment.count"},
	"post.caption":   {"caption", "text", "edge_media_to_caption.edges.0.node.text"},
	"post.timestamp": {"timestamp", "takenAt", "taken_at_timestamp", "taken_at", "date_posted"},
}

// Resolver looks canonical fields up in raw records
type Resolver struct {
	fields FieldMap
}

// NewResolver creates a resolver that tries overrides before the defaults
func NewResolver(overrides FieldMap) *Resolver {
	fields := make(FieldMap, len(defaultFields))
	for name, candidates := range defaultFields {
		fields[name] = mergeCandidates(overrides[name], candidates)
	}
	for name, candidates := range overrides {
		if _, known := fields[name]; !known {
			fields[name] = mergeCandidates(candidates, nil)
		}
	}
	return &Resolver{fields: fields}
}

func mergeCandidates(first, then []string) []string {
	out := make([]string, 0, len(first)+len(then))
	seen := make(map[string]bool, len(first)+len(then))
	for _, list := range [][]string{first, then} {
		for _, name := range list {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Candidates returns the ordered source names for a canonical field
func (r *Resolver) Candidates(field string) []string {
	return r.fields[field]
}

// resolve returns the first candidate value that convert accepts
func resolve[T any](r *Resolver, rec map[string]interface{}, field string, convert func(interface{}) (T, bool)) (T, bool) {
	for _, name := range r.fields[field] {
		raw, ok := lookup(rec, name)
		if !ok || raw == nil {
			continue
		}
		if v, ok := convert(raw); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// String resolves a non-empty string field
func (r *Resolver) String(rec map[string]interface{}, field string) (string, bool) {
	return resolve(r, rec, field, toString)
}

// Int resolves an integer field, accepting numeric strings such as "1,234" or "12.5K"
func (r *Resolver) Int(rec map[string]interface{}, field string) (int64, bool) {
	return resolve(r, rec, field, toInt)
}

// Float resolves a numeric field
func (r *Resolver) Float(rec map[string]interface{}, field string) (float64, bool) {
	return resolve(r, rec, field, toFloat)
}

// Bool resolves a boolean field
func (r *Resolver) Bool(rec map[string]interface{}, field string) (bool, bool) {
	return resolve(r, rec, field, toBool)
}

// List resolves a list field
func (r *Resolver) List(rec map[string]interface{}, field string) ([]interface{}, bool) {
	return resolve(r, rec, field, func(v interface{}) ([]interface{}, bool) {
		list, ok := v.([]interface{})
		return list, ok
	})
}

// Time resolves a timestamp field given as RFC 3339 text or unix seconds/milliseconds
func (r *Resolver) Time(rec map[string]interface{}, field string) (time.Time, bool) {
	return resolve(r, rec, field, toTime)
}

// lookup walks a dotted path through nested maps and lists
func lookup(rec map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := rec[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	var cur interface{} = rec
	for _, segment := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func toString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseHumanNumber(n)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt(v interface{}) (int64, bool) {
	f, ok := toFloat(v)
	if !ok || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(math.Round(f)), true
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	case float64:
		return b != 0, true
	default:
		return false, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func toTime(v interface{}) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}

	f, ok := toFloat(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// parseHumanNumber accepts "1234", "1,234", "12.5K", "1.2M" and "3B"
func parseHumanNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		multiplier = 1e3
	case 'm', 'M':
		multiplier = 1e6
	case 'b', 'B':
		multiplier = 1e9
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f * multiplier, true
}
