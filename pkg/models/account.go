package models

import "time"

// MaxRecentPosts caps the post summaries kept on an AccountData record
const MaxRecentPosts = 12

// DefaultNiche is the catch-all classification
const DefaultNiche = "General"

// Post is one scraped post summary used as engagement evidence
type Post struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Likes     int64      `json:"likes"`
	Comments  int64      `json:"comments"`
	Caption   string     `json:"caption"`
	Timestamp *time.Time `json:"timestamp"`
}

// HasEngagement reports whether the post carries any non-zero engagement signal
func (p Post) HasEngagement() bool {
	return p.Likes > 0 || p.Comments > 0
}

// AccountData is the canonical record produced by one successful pipeline run
type AccountData struct {
	Username         string  `json:"username"`
	FullName         string  `json:"fullName"`
	Bio              string  `json:"bio"`
	ExternalURL      string  `json:"externalUrl"`
	ProfilePicURL    string  `json:"profilePicUrl"`
	ProfilePicBase64 *string `json:"profilePicBase64"`
	Verified         bool    `json:"verified"`
	IsPrivate        bool    `json:"isPrivate"`
	IsBusiness       bool    `json:"isBusiness"`

	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
	Posts     int64 `json:"posts"`

	EngagementRate Metric `json:"engagementRate"`
	AvgLikes       Metric `json:"avgLikes"`
	AvgComments    Metric `json:"avgComments"`

	RecentPosts []Post `json:"recentPosts"`

	BotScore           int      `json:"botScore"`
	SuspiciousPatterns []string `json:"suspiciousPatterns"`
	Niche              string   `json:"niche"`
	DataFetchWarning   *string  `json:"dataFetchWarning"`

	RawData   map[string]interface{} `json:"rawData,omitempty"`
	Provider  string                 `json:"provider"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

// IsUsable reports whether the record clears the minimum bar for accepting a
// provider's output: some followers or some posts.
func (a *AccountData) IsUsable() bool {
	return a.Followers > 0 || a.Posts > 0
}

// HasWarning reports whether diagnostics flagged the record
func (a *AccountData) HasWarning() bool {
	return a.DataFetchWarning != nil
}
