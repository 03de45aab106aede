package config

// Provider hands out configuration snapshots. Cache components call
// Snapshot once per operation and use the returned value for the whole
// call, which keeps hot reloads from corrupting in-flight operations.
type Provider interface {
	Snapshot() Settings
}

// ProviderFunc adapts a function to the Provider interface. The function
// must be safe for concurrent use.
type ProviderFunc func() Settings

func (f ProviderFunc) Snapshot() Settings { return f() }

type staticProvider struct {
	settings Settings
}

func (p staticProvider) Snapshot() Settings { return p.settings }

// Static returns a Provider that always serves the given settings,
// normalized once. Useful for tests and processes without live reload.
func Static(s Settings) Provider {
	s.Normalize()
	return staticProvider{settings: s}
}
