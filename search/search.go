// Package search provides web-search providers used when local retrieval
// comes up short. Three backends are supported: Tavily and Brave (API key
// required) and DuckDuckGo (keyless scrape of the lite HTML page).
package search

import (
	"context"
	"fmt"
	"os"
)

// Result is one web-search hit.
type Result struct {
	Title   string
	URL     string
	Content string
}

// Provider executes web searches.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Provider names accepted by New.
const (
	ProviderTavily     = "tavily"
	ProviderBrave      = "brave"
	ProviderDuckDuckGo = "duckduckgo"
)

// New builds a provider by name, reading API keys from the environment
// (TAVILY_API_KEY, BRAVE_API_KEY). An empty name selects DuckDuckGo, which
// needs no key.
func New(name string) (Provider, error) {
	switch name {
	case ProviderTavily:
		return NewTavily(os.Getenv("TAVILY_API_KEY")), nil
	case ProviderBrave:
		return NewBrave(os.Getenv("BRAVE_API_KEY")), nil
	case ProviderDuckDuckGo, "":
		return NewDuckDuckGo(), nil
	}
	return nil, fmt.Errorf("unknown search provider: %s", name)
}
