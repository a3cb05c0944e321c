package profile

import (
	"strings"
	"unicode"

	"socialprobe/pkg/models"
)

type nicheCategory struct {
	name     string
	keywords []string
}

// niches is checked in order; the first category with a keyword hit wins
var niches = []nicheCategory{
	{"Fitness", []string{"fitness", "gym", "workout", "training", "yoga", "bodybuilding", "crossfit", "fit"}},
	{"Beauty", []string{"makeup", "beauty", "skincare", "cosmetics", "nails", "mua"}},
	{"Fashion", []string{"fashion", "style", "outfit", "ootd", "clothing", "streetwear", "model"}},
	{"Food", []string{"food", "recipe", "recipes", "chef", "cooking", "restaurant", "foodie", "baking", "vegan"}},
	{"Travel", []string{"travel", "wanderlust", "adventure", "explore", "tourism", "backpacking", "traveler"}},
	{"Tech", []string{"tech", "technology", "gadget", "gadgets", "software", "coding", "developer", "ai"}},
	{"Gaming", []string{"gaming", "gamer", "esports", "twitch", "playstation", "xbox", "nintendo"}},
	{"Music", []string{"music", "musician", "singer", "rapper", "producer", "dj", "band", "songwriter"}},
	{"Photography", []string{"photography", "photographer", "photo", "camera", "portrait"}},
	{"Business", []string{"entrepreneur", "business", "marketing", "finance", "investing", "ceo", "founder", "startup"}},
	{"Sports", []string{"football", "soccer", "basketball", "athlete", "sports", "tennis", "running"}},
	{"Pets", []string{"dog", "dogs", "cat", "cats", "pets", "puppy", "petsofinstagram"}},
	{"Art", []string{"art", "artist", "illustration", "painting", "drawing", "design"}},
	{"Parenting", []string{"mom", "dad", "parenting", "family", "kids", "motherhood"}},
}

var nicheIndex = buildNicheIndex()

func buildNicheIndex() map[string]int {
	index := make(map[string]int)
	for i := len(niches) - 1; i >= 0; i-- {
		for _, kw := range niches[i].keywords {
			index[kw] = i
		}
	}
	return index
}

// Classify returns the niche for the bio and post captions, or models.DefaultNiche
func Classify(bio string, posts []models.Post) string {
	best := -1
	consider := func(text string) {
		for _, word := range tokenize(text) {
			if i, ok := nicheIndex[word]; ok && (best < 0 || i < best) {
				best = i
			}
		}
	}

	consider(bio)
	for _, p := range posts {
		consider(p.Caption)
	}

	if best < 0 {
		return models.DefaultNiche
	}
	return niches[best].name
}

// tokenize lower-cases text and splits it into words; hashtags count as words
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
