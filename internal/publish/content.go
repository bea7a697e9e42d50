package publish

import "github.com/shaiso/Publika/internal/domain"

// MergeContent собирает итоговый контент публикации: поля post,
// перекрытые target-overrides. Текст и медиа заменяются целиком,
// settings накладываются по ключам.
func MergeContent(post *domain.Post, target *domain.PostTarget) Content {
	content := Content{
		Text:      post.Content,
		MediaURLs: post.MediaURLs,
	}

	if target.ContentOverride != "" {
		content.Text = target.ContentOverride
	}
	if len(target.MediaOverride) > 0 {
		content.MediaURLs = target.MediaOverride
	}

	if len(post.Settings) > 0 || len(target.SettingsOverride) > 0 {
		content.Settings = make(map[string]any, len(post.Settings)+len(target.SettingsOverride))
		for k, v := range post.Settings {
			content.Settings[k] = v
		}
		for k, v := range target.SettingsOverride {
			content.Settings[k] = v
		}
	}

	return content
}
