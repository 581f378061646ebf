package bdd

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config gathers the five construction parameters enumerated in the public
// interface: initial pool capacity, the pool/cache size ratio, whether the
// cache tracks pool resizes, the minimum pool size at which automatic
// collection is considered, and whether GC/resize events are logged.
type Config struct {
	InitialNodes uint32
	CacheRatio   uint32
	DynamicCache bool
	GCMinCutoff  uint32
	PrintDebug   bool
}

// DefaultConfig returns the construction parameters' documented defaults.
func DefaultConfig() Config {
	return Config{
		InitialNodes: 524288,
		CacheRatio:   16,
		DynamicCache: true,
		GCMinCutoff:  1048576,
		PrintDebug:   false,
	}
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Config)

// WithInitialNodes sets the initial pool capacity (rounded up to the next
// power of two, floor 16).
func WithInitialNodes(n uint32) ManagerOption {
	return func(c *Config) { c.InitialNodes = n }
}

// WithCacheRatio sets pool_capacity / cache_size (rounded up to the next
// power of two). Zero is rejected by New with InvalidArgument; the option
// takes an unsigned value, so a negative ratio cannot be passed at all.
func WithCacheRatio(ratio uint32) ManagerOption {
	return func(c *Config) { c.CacheRatio = ratio }
}

// WithDynamicCache controls whether OperationCaches grow on every pool
// resize (true, the default) or stay fixed at the initial ratio.
func WithDynamicCache(dynamic bool) ManagerOption {
	return func(c *Config) { c.DynamicCache = dynamic }
}

// WithGCMinCutoff sets the minimum pool size at which automatic collection
// is triggered; below it, checkForCollection never fires.
func WithGCMinCutoff(cutoff uint32) ManagerOption {
	return func(c *Config) { c.GCMinCutoff = cutoff }
}

// WithPrintDebug enables structured log lines for manager creation, GC, and
// pool resize events.
func WithPrintDebug(enabled bool) ManagerOption {
	return func(c *Config) { c.PrintDebug = enabled }
}

// LoadConfig builds the []ManagerOption for New by reading the five
// construction parameters from the environment (prefix BDD_, e.g.
// BDD_INITIAL_NODES) and, if configPath is non-empty, from a config file at
// that path, via github.com/spf13/viper. This is a convenience entry point
// for command-line and service wiring; programmatic construction never
// needs it.
func LoadConfig(configPath string) ([]ManagerOption, error) {
	v := viper.New()
	v.SetEnvPrefix("BDD")
	v.AutomaticEnv()
	d := DefaultConfig()
	v.SetDefault("initial_nodes", d.InitialNodes)
	v.SetDefault("cache_ratio", d.CacheRatio)
	v.SetDefault("dynamic_cache", d.DynamicCache)
	v.SetDefault("gc_min_cutoff", d.GCMinCutoff)
	v.SetDefault("print_debug", d.PrintDebug)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("bdd: loading config %s: %w", configPath, err)
		}
	}

	return []ManagerOption{
		WithInitialNodes(v.GetUint32("initial_nodes")),
		WithCacheRatio(v.GetUint32("cache_ratio")),
		WithDynamicCache(v.GetBool("dynamic_cache")),
		WithGCMinCutoff(v.GetUint32("gc_min_cutoff")),
		WithPrintDebug(v.GetBool("print_debug")),
	}, nil
}
