package llm

// ModelInfo is one selectable model descriptor exposed to clients.
type ModelInfo struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Binding is the resolved provider/model pair for an agent's configured
// model identifier.
type Binding struct {
	Provider string
	Model    string
	BaseURL  string
}

// provider is one registry entry: a membership set of model ids plus a
// factory closure building a client for a concrete model.
type provider struct {
	key     string
	baseURL string
	models  []ModelInfo
	members map[string]struct{}
	dial    func(cfg Config) Client
}

// Registry resolves model identifiers to provider bindings. Providers are
// checked in a fixed priority order; the first membership match wins and
// unmatched identifiers degrade to the default binding. Bind is total: it
// never fails on an unrecognized model id.
type Registry struct {
	order          []string
	providers      map[string]*provider
	defaultBinding Binding
}

// NewRegistry builds the registry with the built-in provider catalog.
// All providers speak the OpenAI protocol against their compatibility
// endpoints, so a single client implementation serves every entry.
func NewRegistry() *Registry {
	r := &Registry{providers: map[string]*provider{}}

	r.register("openai", "https://api.openai.com/v1", []ModelInfo{
		{Value: "gpt-4o", Label: "GPT-4o"},
		{Value: "gpt-4o-mini", Label: "GPT-4o mini"},
		{Value: "gpt-4.1", Label: "GPT-4.1"},
		{Value: "gpt-4.1-mini", Label: "GPT-4.1 mini"},
		{Value: "o3-mini", Label: "o3-mini"},
	})
	r.register("anthropic", "https://api.anthropic.com/v1", []ModelInfo{
		{Value: "claude-3-7-sonnet-latest", Label: "Claude 3.7 Sonnet"},
		{Value: "claude-3-5-sonnet-latest", Label: "Claude 3.5 Sonnet"},
		{Value: "claude-3-5-haiku-latest", Label: "Claude 3.5 Haiku"},
	})
	r.register("gemini", "https://generativelanguage.googleapis.com/v1beta/openai", []ModelInfo{
		{Value: "gemini-2.0-flash", Label: "Gemini 2.0 Flash"},
		{Value: "gemini-2.0-flash-lite", Label: "Gemini 2.0 Flash Lite"},
		{Value: "gemini-1.5-pro", Label: "Gemini 1.5 Pro"},
	})
	r.register("deepseek", "https://api.deepseek.com", []ModelInfo{
		{Value: "deepseek-chat", Label: "DeepSeek Chat"},
		{Value: "deepseek-reasoner", Label: "DeepSeek Reasoner"},
	})

	r.defaultBinding = Binding{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		BaseURL:  r.providers["openai"].baseURL,
	}
	return r
}

func (r *Registry) register(key, baseURL string, models []ModelInfo) {
	members := make(map[string]struct{}, len(models))
	for _, m := range models {
		members[m.Value] = struct{}{}
	}
	r.order = append(r.order, key)
	r.providers[key] = &provider{
		key:     key,
		baseURL: baseURL,
		models:  models,
		members: members,
		dial:    func(cfg Config) Client { return NewClient(cfg) },
	}
}

// Bind resolves a model identifier to its provider binding, falling back to
// the default binding when no provider claims the id.
func (r *Registry) Bind(modelID string) Binding {
	for _, key := range r.order {
		p := r.providers[key]
		if _, ok := p.members[modelID]; ok {
			return Binding{Provider: key, Model: modelID, BaseURL: p.baseURL}
		}
	}
	return r.defaultBinding
}

// Default returns the fallback binding.
func (r *Registry) Default() Binding {
	return r.defaultBinding
}

// Catalog returns the provider key to model descriptor mapping, for the
// model listing endpoint. Providers keep their registration order within
// each list.
func (r *Registry) Catalog() map[string][]ModelInfo {
	catalog := make(map[string][]ModelInfo, len(r.providers))
	for _, key := range r.order {
		models := make([]ModelInfo, len(r.providers[key].models))
		copy(models, r.providers[key].models)
		catalog[key] = models
	}
	return catalog
}

// dialFor returns the factory closure for a provider key, or nil when the
// key is unknown.
func (r *Registry) dialFor(key string) func(cfg Config) Client {
	if p, ok := r.providers[key]; ok {
		return p.dial
	}
	return nil
}
