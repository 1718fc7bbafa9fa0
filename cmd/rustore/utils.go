package main

import (
	"fmt"

	"github.com/giuppep/rustore/internal/blob"
	"github.com/giuppep/rustore/internal/config"
)

// openStore opens the blob engine rooted at the configured store root,
// initializing its on-disk layout (and clearing stale staging files) as
// part of the open, matching the server's own bootstrap path.
func openStore(cfg *config.Config) (*blob.Engine, error) {
	if cfg == nil || cfg.StoreRoot == "" {
		return nil, fmt.Errorf("store root is required")
	}
	return blob.New(cfg.StoreRoot)
}
