package model

import "time"

// SourceKind categorizes a configured feed
type SourceKind string

const (
	SourceKindNews       SourceKind = "news"
	SourceKindPodcast    SourceKind = "podcast"
	SourceKindNewsletter SourceKind = "newsletter"
)

// Source is a named feed of news content
type Source struct {
	Name string     `json:"name" yaml:"name" mapstructure:"name"`
	URL  string     `json:"url" yaml:"url" mapstructure:"url"`
	Kind SourceKind `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
}

// RawArticle is one normalized feed entry. Body may equal Title when the
// feed carries no description.
type RawArticle struct {
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Source        string    `json:"source"`
	URL           string    `json:"url,omitempty"`
	PublishedDate time.Time `json:"published_date"`
}

// DefaultSources returns the feeds the game ships with
func DefaultSources() []Source {
	return []Source{
		{Name: "Lenny's Newsletter", URL: "https://www.lennysnewsletter.com/feed", Kind: SourceKindNewsletter},
		{Name: "Pivot Podcast", URL: "https://feeds.megaphone.fm/pivot", Kind: SourceKindPodcast},
		{Name: "Morning Brew Daily", URL: "https://feeds.simplecast.com/76rUd4I6", Kind: SourceKindPodcast},
		{Name: "BBC World News", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Kind: SourceKindNews},
		{Name: "Up First by NPR", URL: "https://feeds.npr.org/510318/podcast.xml", Kind: SourceKindPodcast},
		{Name: "Reuters", URL: "https://feeds.reuters.com/reuters/topNews", Kind: SourceKindNews},
		{Name: "New York Times", URL: "https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml", Kind: SourceKindNews},
		{Name: "TechCrunch", URL: "https://techcrunch.com/feed/", Kind: SourceKindNews},
	}
}
