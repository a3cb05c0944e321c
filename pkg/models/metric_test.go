package models

import (
	"encoding/json"
	"math"
	"testing"
)

func TestMetric_States(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
		want   MetricState
	}{
		{"zero value", Metric{}, MetricUnknown},
		{"unknown", UnknownMetric(), MetricUnknown},
		{"computed zero", KnownMetric(0), MetricZero},
		{"positive", KnownMetric(12.5), MetricPositive},
		{"negative is not a measurement", KnownMetric(-1), MetricUnknown},
		{"nan is not a measurement", KnownMetric(math.NaN()), MetricUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.metric.State(); got != tt.want {
				t.Errorf("State() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMetric_JSON(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
		want   string
	}{
		{"unknown is null", UnknownMetric(), "null"},
		{"zero stays zero", KnownMetric(0), "0"},
		{"positive", KnownMetric(3.14), "3.14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.metric)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("Marshal() = %s, want %s", out, tt.want)
			}

			var back Metric
			if err := json.Unmarshal(out, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if back.State() != tt.metric.State() {
				t.Errorf("state after round trip = %s, want %s", back.State(), tt.metric.State())
			}
		})
	}
}

func TestMetric_UnmarshalRejectsText(t *testing.T) {
	var m Metric
	if err := json.Unmarshal([]byte(`"12"`), &m); err == nil {
		t.Error("Unmarshal() of a string should fail")
	}
}

func TestAccountData_NullableFields(t *testing.T) {
	out, err := json.Marshal(AccountData{Username: "x", RecentPosts: []Post{}, SuspiciousPatterns: []string{}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, field := range []string{"engagementRate", "avgLikes", "avgComments", "dataFetchWarning", "profilePicBase64"} {
		v, ok := doc[field]
		if !ok {
			t.Errorf("%s missing from JSON", field)
			continue
		}
		if v != nil {
			t.Errorf("%s = %v, want null", field, v)
		}
	}
	if _, ok := doc["rawData"]; ok {
		t.Error("rawData should be omitted when empty")
	}
}

func TestAccountData_IsUsable(t *testing.T) {
	tests := []struct {
		followers, posts int64
		want             bool
	}{
		{0, 0, false},
		{1, 0, true},
		{0, 1, true},
	}

	for _, tt := range tests {
		a := AccountData{Followers: tt.followers, Posts: tt.posts}
		if got := a.IsUsable(); got != tt.want {
			t.Errorf("IsUsable() with followers=%d posts=%d = %v, want %v", tt.followers, tt.posts, got, tt.want)
		}
	}
}
