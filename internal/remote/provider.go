package remote

import (
	"fmt"
	"sync"

	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/secrets"
)

// Provider hands out one Client per account, fetching the account's
// credential from the vault on first use and caching the client after.
type Provider struct {
	baseURL string
	vault   *secrets.Vault

	mu      sync.Mutex
	clients map[int64]*Client
}

// NewProvider creates a provider for the given service URL and vault.
func NewProvider(baseURL string, vault *secrets.Vault) *Provider {
	return &Provider{
		baseURL: baseURL,
		vault:   vault,
		clients: make(map[int64]*Client),
	}
}

// ClientFor returns the client for the given account.
func (p *Provider) ClientFor(account *models.Account) (*Client, error) {
	if account == nil || !account.Persisted() {
		return nil, fmt.Errorf("account not persisted")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[account.ID]; ok {
		return c, nil
	}

	key := account.CredentialKey
	if key == "" {
		key = secrets.AccountKey(account.ID)
	}
	token, err := p.vault.Fetch(key)
	if err != nil {
		return nil, fmt.Errorf("credential for %s: %w", account.Username, err)
	}

	c := New(p.baseURL, token)
	p.clients[account.ID] = c
	return c, nil
}

// ClearCache drops all cached clients, forcing credential re-resolution.
func (p *Provider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[int64]*Client)
}
