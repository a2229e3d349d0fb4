// Package config loads the engine tunables from layered YAML files:
// <dir>/default.yaml, then <dir>/profiles/<name>.yaml on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Paths helper for default/profile files.
type Paths struct {
	BaseDir string // base directory, e.g., ./configs
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "default.yaml")
}

func (p Paths) ProfilePath(profile string) string {
	return filepath.Join(p.BaseDir, "profiles", profile+".yaml")
}

// Loader reads YAML configs and merges default -> profile.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: profile name, "" for default only
}

// NewLoader creates a config loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

// LoadMerged loads default.yaml and merges the profile on top (profile
// optional). The result is not normalized.
func (l *Loader) LoadMerged(profile string) (RawConfig, error) {
	l.mu.RLock()
	if cfg, ok := l.cache[profile]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	merged := defCfg
	if profile != "" {
		profCfg, err := readYAML(l.paths.ProfilePath(profile))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read profile %s: %w", profile, err)
		}
		merged = mergeRaw(defCfg, profCfg)
	}

	l.mu.Lock()
	l.cache[""] = defCfg
	l.cache[profile] = merged
	l.mu.Unlock()

	return merged, nil
}

// Invalidate clears the cache. Call after the watcher reports a change.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads a YAML file into RawConfig. Missing files return zero cfg, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func pick[T any](a, b *T) *T {
	if b != nil {
		return b
	}
	return a
}

// mergeRaw overlays b on a. Set scalars in b win; slices in b replace
// slices in a when non-empty.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// engine
	out.Engine.TierGate = pick(a.Engine.TierGate, b.Engine.TierGate)
	switch {
	case a.Engine.Milestone == nil && b.Engine.Milestone != nil:
		c := *b.Engine.Milestone
		out.Engine.Milestone = &c
	case a.Engine.Milestone != nil && b.Engine.Milestone != nil:
		c := *a.Engine.Milestone
		c.MinTier = pick(c.MinTier, b.Engine.Milestone.MinTier)
		c.MaxTier = pick(c.MaxTier, b.Engine.Milestone.MaxTier)
		c.Step = pick(c.Step, b.Engine.Milestone.Step)
		out.Engine.Milestone = &c
	}
	switch {
	case a.Engine.Diminishing == nil && b.Engine.Diminishing != nil:
		c := *b.Engine.Diminishing
		out.Engine.Diminishing = &c
	case a.Engine.Diminishing != nil && b.Engine.Diminishing != nil:
		c := *a.Engine.Diminishing
		c.Base = pick(c.Base, b.Engine.Diminishing.Base)
		c.Bypass = pick(c.Bypass, b.Engine.Diminishing.Bypass)
		out.Engine.Diminishing = &c
	}
	switch {
	case a.Engine.Rare == nil && b.Engine.Rare != nil:
		c := *b.Engine.Rare
		out.Engine.Rare = &c
	case a.Engine.Rare != nil && b.Engine.Rare != nil:
		c := *a.Engine.Rare
		c.Fact = pick(c.Fact, b.Engine.Rare.Fact)
		c.Delta = pick(c.Delta, b.Engine.Rare.Delta)
		out.Engine.Rare = &c
	}
	if len(b.Engine.Environment) > 0 {
		out.Engine.Environment = b.Engine.Environment
	}

	// probability
	out.Probability.Batch = pick(a.Probability.Batch, b.Probability.Batch)
	out.Probability.Epsilon = pick(a.Probability.Epsilon, b.Probability.Epsilon)
	out.Probability.Stable = pick(a.Probability.Stable, b.Probability.Stable)
	out.Probability.MaxIterations = pick(a.Probability.MaxIterations, b.Probability.MaxIterations)
	out.Probability.Seed = pick(a.Probability.Seed, b.Probability.Seed)

	// draws
	switch {
	case a.Draws == nil && b.Draws != nil:
		c := *b.Draws
		out.Draws = &c
	case a.Draws != nil && b.Draws != nil:
		c := *a.Draws
		c.Base = pick(c.Base, b.Draws.Base)
		if len(b.Draws.PerArea) > 0 {
			c.PerArea = make(map[string]int, len(a.Draws.PerArea)+len(b.Draws.PerArea))
			for k, v := range a.Draws.PerArea {
				c.PerArea[k] = v
			}
			for k, v := range b.Draws.PerArea {
				c.PerArea[k] = v
			}
		}
		if len(b.Draws.Extras) > 0 {
			c.Extras = b.Draws.Extras
		}
		out.Draws = &c
	}

	if len(b.Scalars) > 0 {
		out.Scalars = b.Scalars
	}
	if len(b.Derived) > 0 {
		out.Derived = b.Derived
	}
	out.Extract.MaxBytes = pick(a.Extract.MaxBytes, b.Extract.MaxBytes)

	return out
}
