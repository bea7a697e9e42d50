package publish

import (
	"testing"

	"github.com/shaiso/Publika/internal/domain"
)

func TestMergeContent(t *testing.T) {
	post := &domain.Post{
		Content:   "base text",
		MediaURLs: []string{"https://cdn/a.png"},
		Settings:  map[string]any{"visibility": "public", "comments": true},
	}

	tests := []struct {
		name       string
		target     domain.PostTarget
		wantText   string
		wantMedia  []string
		wantVis    any
		wantSecond any // значение settings["comments"]
	}{
		{
			name:       "no overrides",
			target:     domain.PostTarget{},
			wantText:   "base text",
			wantMedia:  []string{"https://cdn/a.png"},
			wantVis:    "public",
			wantSecond: true,
		},
		{
			name: "content and media replaced",
			target: domain.PostTarget{
				ContentOverride: "per-target text",
				MediaOverride:   []string{"https://cdn/b.png"},
			},
			wantText:   "per-target text",
			wantMedia:  []string{"https://cdn/b.png"},
			wantVis:    "public",
			wantSecond: true,
		},
		{
			name: "settings merged by key",
			target: domain.PostTarget{
				SettingsOverride: map[string]any{"visibility": "connections"},
			},
			wantText:   "base text",
			wantMedia:  []string{"https://cdn/a.png"},
			wantVis:    "connections",
			wantSecond: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeContent(post, &tt.target)

			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if len(got.MediaURLs) != len(tt.wantMedia) || got.MediaURLs[0] != tt.wantMedia[0] {
				t.Errorf("MediaURLs = %v, want %v", got.MediaURLs, tt.wantMedia)
			}
			if got.Settings["visibility"] != tt.wantVis {
				t.Errorf("visibility = %v, want %v", got.Settings["visibility"], tt.wantVis)
			}
			if got.Settings["comments"] != tt.wantSecond {
				t.Errorf("comments = %v, want %v", got.Settings["comments"], tt.wantSecond)
			}
		})
	}
}
