package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/datastore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultMaxReadAroundLimit = 200
	DefaultNonReadingPrefix   = ";"
)

// ServerConfig holds the per-guild reading options.
type ServerConfig struct {
	NeedJoin           bool   `json:"need_join"`
	OverwriteAloud     bool   `json:"overwrite_aloud"`
	InmMode            bool   `json:"inm_mode"`
	CookieMode         bool   `json:"cookie_mode"`
	AnnounceJoins      bool   `json:"join_say_name"`
	MaxReadAroundLimit int    `json:"max_read_around_limit"`
	NonReadingPrefix   string `json:"non_reading_prefix"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxReadAroundLimit: DefaultMaxReadAroundLimit,
		NonReadingPrefix:   DefaultNonReadingPrefix,
	}
}

type serverEntry struct {
	cfg   ServerConfig
	dirty bool
}

// ServerConfigs keeps one JSON file per guild in dir, named <guildID>.json.
type ServerConfigs struct {
	dir string
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*serverEntry
}

// LoadServerConfigs reads every <guildID>.json in dir. Files whose name is
// not a numeric guild id, or whose content does not parse, are skipped.
func LoadServerConfigs(dir string, log zerolog.Logger) (*ServerConfigs, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create server config directory: %w", err)
	}

	sc := &ServerConfigs{dir: dir, log: log, entries: make(map[string]*serverEntry)}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list server configs: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		guildID := strings.TrimSuffix(f.Name(), ".json")
		if _, err := strconv.ParseUint(guildID, 10, 64); err != nil {
			log.Warn().Str("file", f.Name()).Msg("skipping server config with a non-numeric name")
			continue
		}

		cfg, err := readServerConfig(filepath.Join(dir, f.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name()).Msg("skipping unreadable server config")
			continue
		}
		sc.entries[guildID] = &serverEntry{cfg: cfg}
	}

	return sc, nil
}

func readServerConfig(path string) (ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServerConfig{}, err
	}
	cfg := DefaultServerConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if cfg.MaxReadAroundLimit <= 0 {
		cfg.MaxReadAroundLimit = DefaultMaxReadAroundLimit
	}
	return cfg, nil
}

// Get returns the config of a guild, or the defaults when it has none.
func (sc *ServerConfigs) Get(guildID string) ServerConfig {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if e, ok := sc.entries[guildID]; ok {
		return e.cfg
	}
	return DefaultServerConfig()
}

// Update applies fn to the guild's config and marks it dirty.
func (sc *ServerConfigs) Update(guildID string, fn func(*ServerConfig)) ServerConfig {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	e, ok := sc.entries[guildID]
	if !ok {
		e = &serverEntry{cfg: DefaultServerConfig()}
		sc.entries[guildID] = e
	}
	fn(&e.cfg)
	e.dirty = true
	return e.cfg
}

// GuildIDs lists guilds that have a config, sorted.
func (sc *ServerConfigs) GuildIDs() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out := make([]string, 0, len(sc.entries))
	for id := range sc.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Flush writes every dirty guild config. A failed file stays dirty for the
// next flush.
func (sc *ServerConfigs) Flush() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var errs []error
	for guildID, e := range sc.entries {
		if !e.dirty {
			continue
		}
		data, err := json.MarshalIndent(e.cfg, "", "  ")
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s: %w", guildID, err))
			continue
		}
		if err := datastore.WriteFileAtomic(filepath.Join(sc.dir, guildID+".json"), data); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", guildID, err))
			continue
		}
		e.dirty = false
	}
	return errors.Join(errs...)
}
