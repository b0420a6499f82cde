package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcus/calsync/internal/config"
	"github.com/marcus/calsync/internal/db"
	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/remote"
	"github.com/marcus/calsync/internal/secrets"
	"github.com/marcus/calsync/internal/sync"
)

var version string

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "calsync",
	Short: "Offline-first calendar synchronization CLI",
	Long: `calsync - A bidirectional synchronization engine between a local calendar
store and a remote calendar service.

Local additions, edits and deletions are queued and pushed on the next sync
run; remote changes are pulled into the local store on demand.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "events", Title: "Event Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("setup")
	rootCmd.SetCompletionCommandGroupID("setup")
}

// app bundles the wired collaborators behind the CLI.
type app struct {
	cfg      *config.Config
	store    *db.DB
	vault    *secrets.Vault
	provider *remote.Provider
	center   *sync.Center
	service  *sync.EventService
}

// openApp wires the store, vault, remote provider, center and pull service.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	store, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	dir, err := config.ConfigDir()
	if err != nil {
		store.Close()
		return nil, err
	}
	vault, err := openVault(dir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}

	provider := remote.NewProvider(cfg.ServerURL, vault)
	providerFn := sync.ServiceProviderFunc(func(a *models.Account) (sync.Service, error) {
		return provider.ClientFor(a)
	})

	service := sync.NewEventService(store, providerFn)
	service.PastDays = cfg.PastDays
	service.FutureDays = cfg.FutureDays

	return &app{
		cfg:      cfg,
		store:    store,
		vault:    vault,
		provider: provider,
		center:   sync.NewCenter(store, providerFn),
		service:  service,
	}, nil
}

// openVault prefers a raw key from CALSYNC_VAULT_KEY (hex, 32 bytes); else a
// passphrase from CALSYNC_PASSPHRASE. The vault protects credentials at rest
// only; OS keychain integration lives outside this CLI.
func openVault(dir string) (*secrets.Vault, error) {
	if hexKey := os.Getenv("CALSYNC_VAULT_KEY"); hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("decode CALSYNC_VAULT_KEY: %w", err)
		}
		return secrets.Open(dir, key)
	}
	passphrase := os.Getenv("CALSYNC_PASSPHRASE")
	if passphrase == "" {
		passphrase = "calsync-local"
	}
	return secrets.OpenWithPassphrase(dir, passphrase)
}

func (a *app) Close() {
	a.store.Close()
}
