package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3128", "internal.example.com")

	tests := []struct {
		url  string
		want string
	}{
		{url: "http://feeds.bbci.co.uk/news/rss.xml", want: "http://proxy.local:3128"},
		{url: "https://api.anthropic.com/v1/messages", want: "http://secure.local:3128"},
		{url: "https://internal.example.com/feed", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			got, err := proxy(req)
			if err != nil {
				t.Fatalf("proxy: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("expected direct connection, got %v", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("proxy = %v, want %s", got, tt.want)
			}
		})
	}
}
