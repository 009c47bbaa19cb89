package application

import (
	"sync"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// ClientProvider enables runtime hot-swap of the TGTG API client. It holds a
// mutex-protected reference to the current driven.TGTGClient, allowing a
// completed login to take effect without restarting the watcher.
type ClientProvider struct {
	mu     sync.RWMutex
	client driven.TGTGClient
}

// NewClientProvider creates a new provider with the given initial client.
// client may be nil when no credentials are available at startup.
func NewClientProvider(client driven.TGTGClient) *ClientProvider {
	return &ClientProvider{client: client}
}

// Get returns the current client. Callers must check for nil if the provider
// was created without initial credentials.
func (p *ClientProvider) Get() driven.TGTGClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. The next caller of Get receives the new
// value. A nil client deactivates API access until the next login.
func (p *ClientProvider) Replace(client driven.TGTGClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *ClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
