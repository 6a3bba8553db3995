// Command sessionbridge browses and manages chat sessions on a remote
// conversation store, through the same caching layer the UI uses.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"sessionbridge/cache"
	"sessionbridge/config"
	"sessionbridge/kvstore"
	"sessionbridge/store"
)

var (
	verbose    bool
	configPath string
	backendURL string
)

var rootCmd = &cobra.Command{
	Use:   "sessionbridge",
	Short: "Browse and manage chat sessions on a conversation store",
	Long: `sessionbridge talks to a remote conversation store and presents
conversations as the card lists the chat UI renders.

Reads are cached with a short TTL and survive backend outages by falling
back to a local mirror; list and show never fail outright.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.sessionbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "url", "", "Backend URL (overrides config)")
}

// setup builds the cache stack from config and flags. The returned cleanup
// closes the durable store.
func setup() (*cache.Cache, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	log.Debug("connecting", "backend", cfg.BackendURL)

	kv, err := kvstore.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local store: %w", err)
	}

	client := store.NewClient(cfg.BackendURL)
	c, err := cache.New(client, kv, cfg.TTL())
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}

	return c, func() { _ = kv.Close() }, nil
}
