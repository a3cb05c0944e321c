package profile

import (
	"strings"

	"socialprobe/pkg/models"
)

const maxBotScore = 100

// Signals is the heuristic assessment of a record
type Signals struct {
	BotScore int
	Patterns []string
}

type signalRule struct {
	points  int
	pattern string
	match   func(a *models.AccountData) bool
}

// signalRules are additive; a rule that does not match contributes nothing
var signalRules = []signalRule{
	{
		points:  30,
		pattern: "Follows far more accounts than follow back",
		match: func(a *models.AccountData) bool {
			if a.Following < 500 {
				return false
			}
			return a.Followers == 0 || float64(a.Following)/float64(a.Followers) > 3
		},
	},
	{
		points:  20,
		pattern: "Abnormally low engagement rate",
		match: func(a *models.AccountData) bool {
			rate, ok := a.EngagementRate.Value()
			return ok && rate < 1 && a.Followers >= 1000
		},
	},
	{
		points:  15,
		pattern: "Post count inconsistent with audience size",
		match: func(a *models.AccountData) bool {
			return (a.Posts < 3 && a.Followers >= 10000) || (a.Posts > 5000 && a.Followers < 1000)
		},
	},
	{
		points:  15,
		pattern: "No profile picture",
		match: func(a *models.AccountData) bool {
			return strings.TrimSpace(a.ProfilePicURL) == ""
		},
	},
	{
		points:  10,
		pattern: "Empty bio",
		match: func(a *models.AccountData) bool {
			return strings.TrimSpace(a.Bio) == ""
		},
	},
	{
		points:  10,
		pattern: "Private account with unusually large audience",
		match: func(a *models.AccountData) bool {
			return a.IsPrivate && a.Followers >= 50000
		},
	},
}

// Score applies the signal rules to a record. The score is capped at 100.
func Score(a *models.AccountData) Signals {
	s := Signals{Patterns: []string{}}
	for _, rule := range signalRules {
		if !rule.match(a) {
			continue
		}
		s.BotScore += rule.points
		s.Patterns = append(s.Patterns, rule.pattern)
	}
	if s.BotScore > maxBotScore {
		s.BotScore = maxBotScore
	}
	return s
}
