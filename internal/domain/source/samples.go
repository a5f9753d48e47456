package source

import (
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
)

type sample struct {
	id, title, content string
	tags               []string
	metadata           map[string]string
}

// SampleStreams returns the demonstration streams indexed when no streams table exists.
func SampleStreams() []Unit {
	return toUnits(domdoc.TypeStream, "/streams/", []sample{
		{
			"stream_1", "React Best Practices 2024",
			"Learn the latest React patterns, hooks, and performance optimization techniques. " +
				"This comprehensive tutorial covers modern React development.",
			[]string{"react", "javascript", "tutorial", "programming", "web-development"},
			map[string]string{"duration": "3600", "views": "1250", "category": "programming"},
		},
		{
			"stream_2", "AI Development with Python",
			"Explore machine learning and AI development using Python. " +
				"Cover TensorFlow, PyTorch, and modern AI frameworks.",
			[]string{"python", "ai", "machine-learning", "tensorflow", "tutorial"},
			map[string]string{"duration": "2700", "views": "890", "category": "ai"},
		},
		{
			"stream_3", "Gaming Highlights - Esports Championship",
			"Epic gaming moments and highlights from the latest esports championship tournament.",
			[]string{"gaming", "esports", "highlights", "tournament", "entertainment"},
			map[string]string{"duration": "1800", "views": "2100", "category": "gaming"},
		},
		{
			"stream_4", "Music Production Masterclass",
			"Learn professional music production techniques, mixing, and mastering with industry-standard tools.",
			[]string{"music", "production", "audio", "masterclass", "creative"},
			map[string]string{"duration": "4200", "views": "650", "category": "music"},
		},
		{
			"stream_5", "Design System Deep Dive",
			"Building scalable design systems for modern web applications. " +
				"Cover component libraries and design tokens.",
			[]string{"design", "ui", "ux", "design-system", "frontend"},
			map[string]string{"duration": "2400", "views": "780", "category": "design"},
		},
	})
}

// SamplePosts returns the demonstration posts indexed when no posts table exists.
func SamplePosts() []Unit {
	return toUnits(domdoc.TypePost, "/posts/", []sample{
		{
			"post_1", "Getting Started with Live Streaming",
			"A comprehensive guide to starting your live streaming journey. " +
				"Learn about equipment, software, and best practices for engaging your audience.",
			[]string{"streaming", "guide", "tutorial", "beginner"},
			map[string]string{"readTime": "5", "category": "tutorial"},
		},
		{
			"post_2", "Building Community Through Content",
			"Strategies for building and maintaining an engaged community around your content. " +
				"Focus on authentic connections and consistent value.",
			[]string{"community", "content-creation", "engagement", "strategy"},
			map[string]string{"readTime": "8", "category": "strategy"},
		},
		{
			"post_3", "The Future of Web Development",
			"Exploring emerging trends in web development including AI integration, " +
				"serverless architecture, and modern frameworks.",
			[]string{"web-development", "trends", "future", "technology"},
			map[string]string{"readTime": "12", "category": "technology"},
		},
		{
			"post_4", "Audio Production Tips for Creators",
			"Essential audio production techniques for content creators. " +
				"Learn about recording, editing, and mastering your audio content.",
			[]string{"audio", "production", "tips", "content-creation"},
			map[string]string{"readTime": "6", "category": "tutorial"},
		},
	})
}

func toUnits(ct domdoc.ContentType, urlPrefix string, samples []sample) []Unit {
	units := make([]Unit, len(samples))
	for i, s := range samples {
		md := make(map[string]string, len(s.metadata)+1)
		for k, v := range s.metadata {
			md[k] = v
		}
		md["url"] = urlPrefix + s.id
		units[i] = Unit{
			ID:          s.id,
			Title:       s.title,
			Content:     s.content,
			ContentType: ct,
			Tags:        s.tags,
			Metadata:    md,
		}
	}
	return units
}
