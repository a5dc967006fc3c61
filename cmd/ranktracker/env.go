package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jonathan/rank-tracker/internal/compact"
	"github.com/jonathan/rank-tracker/internal/config"
	"github.com/jonathan/rank-tracker/internal/fetch"
	"github.com/jonathan/rank-tracker/internal/ingest"
	"github.com/jonathan/rank-tracker/internal/keys"
	"github.com/jonathan/rank-tracker/internal/ledger"
	"github.com/jonathan/rank-tracker/internal/query"
	"github.com/jonathan/rank-tracker/internal/rawcache"
	"github.com/jonathan/rank-tracker/internal/scrape"
)

// loadConfig reads the config file and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// env holds the stores every command shares. The key translator is opened
// only by commands that compact, since bolt holds an exclusive file lock.
type env struct {
	cfg      *config.Config
	raw      *rawcache.Store
	profiles *rawcache.ProfileStore
	ledger   *ledger.Ledger
	keys     *keys.Translator
}

func openEnv(cfg *config.Config) (*env, error) {
	raw, err := rawcache.NewStore(filepath.Join(cfg.DataDir, rawcache.Dir))
	if err != nil {
		return nil, err
	}
	profiles, err := rawcache.OpenProfileStore(raw.Dir())
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(cfg.DataDir)
	if err != nil {
		_ = profiles.Close()
		return nil, err
	}
	return &env{cfg: cfg, raw: raw, profiles: profiles, ledger: l}, nil
}

func (e *env) Close() error {
	var errs []error
	if e.keys != nil {
		errs = append(errs, e.keys.Close())
	}
	errs = append(errs, e.profiles.Close(), e.ledger.Close())
	return errors.Join(errs...)
}

func (e *env) scraper() *scrape.Scraper {
	client := fetch.NewClient(&fetch.Options{
		Timeout:   e.cfg.FetchTimeout(),
		Delay:     e.cfg.RequestDelay(),
		UserAgent: e.cfg.UserAgent,
	})
	return scrape.New(client, scrape.Options{
		BaseURL:    e.cfg.BaseURL,
		UseBrowser: e.cfg.UseBrowser,
		Verbose:    e.cfg.Verbose,
	})
}

func (e *env) driver(force bool) *ingest.Driver {
	return ingest.New(e.scraper(), e.raw, e.profiles, e.ledger, ingest.Options{
		Force:                  force,
		MaxConsecutiveFailures: e.cfg.MaxConsecutiveFailures,
		Verbose:                e.cfg.Verbose,
	})
}

func (e *env) compactor() (*compact.Compactor, error) {
	if e.keys == nil {
		tr, err := keys.Open(filepath.Join(e.cfg.DataDir, keys.File))
		if err != nil {
			return nil, fmt.Errorf("failed to open player keys: %w", err)
		}
		e.keys = tr
	}
	return compact.New(e.raw, e.profiles, e.keys, e.ledger, compact.Options{
		DataDir:        e.cfg.DataDir,
		MaxGapDays:     e.cfg.MaxGapDays,
		MatchThreshold: e.cfg.MatchThreshold,
		Verbose:        e.cfg.Verbose,
	}), nil
}

func openFacade(cfg *config.Config) (*query.Facade, error) {
	return query.Open(query.Options{
		DataDir:     cfg.DataDir,
		PrefixRatio: cfg.SearchPrefixRatio,
		CacheSize:   cfg.SearchCacheSize,
	})
}
