package provider

import (
	"fmt"
	"sort"
	"strings"

	"socialprobe/internal/config"
)

// Kind selects the remote job API a provider speaks
type Kind string

const (
	KindApify      Kind = "apify"
	KindBrightData Kind = "brightdata"
)

// HandlePlaceholder is replaced by the target handle in input templates
const HandlePlaceholder = "{{handle}}"

// Descriptor is one immutable entry of the provider table
type Descriptor struct {
	ID        string              `json:"id"`
	Kind      Kind                `json:"kind"`
	Actor     string              `json:"actor,omitempty"`
	DatasetID string              `json:"dataset_id,omitempty"`
	BaseURL   string              `json:"base_url"`
	Input     interface{}         `json:"input,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
	Generic   bool                `json:"generic"`

	token string
}

// HasCredentials reports whether a token is configured for the descriptor
func (d Descriptor) HasCredentials() bool {
	return d.token != ""
}

// Target returns the remote resource the descriptor starts jobs on
func (d Descriptor) Target() string {
	if d.Kind == KindBrightData {
		return d.DatasetID
	}
	return d.Actor
}

// BuildInput renders the request body for handle. Descriptors without a
// template get the generic best-effort shape.
func (d Descriptor) BuildInput(handle string) interface{} {
	if d.Input == nil {
		return genericInput(handle)
	}
	return render(d.Input, handle)
}

func genericInput(handle string) map[string]interface{} {
	return map[string]interface{}{
		"usernames":  []interface{}{handle},
		"username":   handle,
		"directUrls": []interface{}{profileURL(handle)},
	}
}

func profileURL(handle string) string {
	return "https://www.instagram.com/" + handle + "/"
}

// render deep-copies a template, substituting the handle into every string
func render(tmpl interface{}, handle string) interface{} {
	switch v := tmpl.(type) {
	case string:
		return strings.ReplaceAll(v, HandlePlaceholder, handle)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = render(item, handle)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = render(item, handle)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = render(item, handle)
		}
		return out
	default:
		return v
	}
}

// builtinDescriptors is the default provider chain, in priority order
var builtinDescriptors = []Descriptor{
	{
		ID:    "apify-profile",
		Kind:  KindApify,
		Actor: "apify~instagram-profile-scraper",
		Input: map[string]interface{}{
			"usernames": []interface{}{HandlePlaceholder},
		},
	},
	{
		ID:    "apify-scraper",
		Kind:  KindApify,
		Actor: "apify~instagram-scraper",
		Input: map[string]interface{}{
			"directUrls":    []interface{}{"https://www.instagram.com/" + HandlePlaceholder + "/"},
			"resultsType":   "details",
			"resultsLimit":  12,
			"addParentData": false,
		},
	},
	{
		ID:        "brightdata-profile",
		Kind:      KindBrightData,
		DatasetID: "gd_l1vikfch901nx3by4",
		Input:     []interface{}{
			map[string]interface{}{"url": "https://www.instagram.com/" + HandlePlaceholder + "/"},
		},
		Fields: map[string][]string{
			"username":       {"account"},
			"fullName":       {"profile_name"},
			"profilePicUrl":  {"profile_image_link"},
			"posts":          {"posts_count"},
			"recentPosts":    {"posts"},
			"isBusiness":     {"is_business_account"},
			"post.id":        {"post_id"},
			"post.type":      {"content_type"},
			"post.caption":   {"description"},
			"post.timestamp": {"datetime"},
		},
	},
}

// Registry resolves provider identifiers to descriptors
type Registry struct {
	descriptors map[string]Descriptor
	order       []string
	defaults    map[Kind]endpoint
}

type endpoint struct {
	baseURL string
	token   string
}

// NewRegistry builds the table from the built-in descriptors and the
// configured entries. Entries replace built-ins field by field.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{
		descriptors: make(map[string]Descriptor, len(builtinDescriptors)+len(cfg.Providers.Entries)),
		order:       append([]string(nil), cfg.Providers.Order...),
		defaults: map[Kind]endpoint{
			KindApify:      {baseURL: cfg.Providers.ApifyBaseURL, token: cfg.Providers.ApifyToken},
			KindBrightData: {baseURL: cfg.Providers.BrightDataURL, token: cfg.Providers.BrightDataAPIKey},
		},
	}

	for _, d := range builtinDescriptors {
		r.descriptors[d.ID] = r.withEndpoint(d, "", "")
	}

	for _, entry := range cfg.Providers.Entries {
		d, exists := r.descriptors[entry.ID]
		if !exists {
			d = Descriptor{ID: entry.ID, Kind: KindApify}
		}
		if entry.Kind != "" {
			d.Kind = Kind(entry.Kind)
		}
		if d.Kind != KindApify && d.Kind != KindBrightData {
			return nil, fmt.Errorf("provider %s: unknown kind %q", entry.ID, d.Kind)
		}
		if entry.Actor != "" {
			d.Actor = entry.Actor
		}
		if entry.DatasetID != "" {
			d.DatasetID = entry.DatasetID
		}
		if entry.Input != nil {
			d.Input = entry.Input
		}
		if len(entry.Fields) > 0 {
			d.Fields = entry.Fields
		}
		r.descriptors[entry.ID] = r.withEndpoint(d, entry.BaseURL, entry.Token)
	}

	for _, id := range r.order {
		d, err := r.Lookup(id)
		if err != nil {
			return nil, err
		}
		if d.Target() == "" {
			return nil, fmt.Errorf("provider %s: no actor or dataset configured", id)
		}
	}

	return r, nil
}

func (r *Registry) withEndpoint(d Descriptor, baseURL, token string) Descriptor {
	def := r.defaults[d.Kind]
	d.BaseURL = strings.TrimRight(firstNonEmpty(baseURL, def.baseURL), "/")
	d.token = firstNonEmpty(token, def.token)
	return d
}

// Lookup returns the descriptor for id. Identifiers missing from the table
// are treated as Apify actor names with the generic input shape.
func (r *Registry) Lookup(id string) (Descriptor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Descriptor{}, fmt.Errorf("empty provider id")
	}
	if d, ok := r.descriptors[id]; ok {
		return d, nil
	}
	return r.withEndpoint(Descriptor{
		ID:      id,
		Kind:    KindApify,
		Actor:   strings.ReplaceAll(id, "/", "~"),
		Generic: true,
	}, "", ""), nil
}

// Chain returns descriptors for ids in order, or the configured order when ids is empty
func (r *Registry) Chain(ids ...string) ([]Descriptor, error) {
	if len(ids) == 0 {
		ids = r.order
	}
	chain := make([]Descriptor, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		d, err := r.Lookup(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, d)
	}
	return chain, nil
}

// Order returns the configured provider priority order
func (r *Registry) Order() []string {
	return append([]string(nil), r.order...)
}

// All returns every known descriptor sorted by id
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
