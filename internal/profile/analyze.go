package profile

import "socialprobe/pkg/models"

// Analyze runs normalization, metrics reconciliation, diagnostics and scoring
// over one raw record and returns the assembled canonical record.
func Analyze(raw map[string]interface{}, overrides FieldMap) *models.AccountData {
	n := Normalize(raw, overrides)
	m := Reconcile(n)

	account := n.Account
	account.AvgLikes = m.AvgLikes
	account.AvgComments = m.AvgComments
	account.EngagementRate = m.EngagementRate
	account.DataFetchWarning = Diagnose(account.Posts, len(n.Posts))

	signals := Score(&account)
	account.BotScore = signals.BotScore
	account.SuspiciousPatterns = signals.Patterns
	account.Niche = Classify(account.Bio, account.RecentPosts)

	return &account
}
