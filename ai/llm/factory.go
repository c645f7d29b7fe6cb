package llm

import (
	"sync"

	"github.com/linhvu2695/aiven/internal/profile"
)

// Factory builds clients for resolved bindings.
type Factory interface {
	ClientFor(binding Binding) Client
}

// ClientFactory builds and caches one client per binding, using the
// registry's factory closures and the per-provider credentials from the
// process profile.
type ClientFactory struct {
	registry *Registry
	creds    map[string]profile.ProviderCredential
	timeout  int
	maxTok   int

	mu      sync.Mutex
	clients map[Binding]Client
}

// NewClientFactory creates a client factory.
func NewClientFactory(registry *Registry, p *profile.Profile) *ClientFactory {
	return &ClientFactory{
		registry: registry,
		creds:    p.Providers,
		timeout:  p.LLMTimeout,
		maxTok:   p.LLMMaxTokens,
		clients:  make(map[Binding]Client),
	}
}

// ClientFor returns the cached client for a binding, building it on first use.
func (f *ClientFactory) ClientFor(binding Binding) Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[binding]; ok {
		return c
	}

	cred := f.creds[binding.Provider]
	baseURL := binding.BaseURL
	if cred.BaseURL != "" {
		baseURL = cred.BaseURL
	}

	dial := f.registry.dialFor(binding.Provider)
	if dial == nil {
		dial = func(cfg Config) Client { return NewClient(cfg) }
	}
	c := dial(Config{
		Provider:  binding.Provider,
		Model:     binding.Model,
		APIKey:    cred.APIKey,
		BaseURL:   baseURL,
		MaxTokens: f.maxTok,
		Timeout:   f.timeout,
	})
	f.clients[binding] = c
	return c
}
