// Package config loads the core's configuration surface (§6.3) from a file
// via viper and hot-reloads safe fields on change via fsnotify, while
// rejecting attempts to change anything that is fixed at construction time
// (ring/archive capacities — changing those live would require re-mmapping
// or resizing already-claimed rings).
package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/relaymesh/core/logging"
)

// RingConfig mirrors the ring.capacity / ring.num_consumers surface.
type RingConfig struct {
	Capacity     uint64 `mapstructure:"capacity"`
	NumConsumers int    `mapstructure:"num_consumers"`
}

// ArchiveConfig mirrors the archive.* surface.
type ArchiveConfig struct {
	LogCapacity int `mapstructure:"log_capacity"`
	RingSlots   int `mapstructure:"ring_slots"`
	MsgLimit    int `mapstructure:"msg_limit"`
}

// RUDPConfig mirrors the rudp.* surface.
type RUDPConfig struct {
	Window    uint32 `mapstructure:"window"`
	Batch     int    `mapstructure:"batch"`
	MinWindow uint32 `mapstructure:"min_window"`
	MaxWindow uint32 `mapstructure:"max_window"`
}

// Config is the full configuration surface (§6.3), with logging.Config
// layered on top for the ambient stack.
type Config struct {
	Ring    RingConfig      `mapstructure:"ring"`
	Archive ArchiveConfig   `mapstructure:"archive"`
	RUDP    RUDPConfig      `mapstructure:"rudp"`
	Log     logging.Config  `mapstructure:"log"`
}

// Defaults returns the §6.3 default values.
func Defaults() Config {
	return Config{
		Ring:    RingConfig{Capacity: 65536, NumConsumers: 1},
		Archive: ArchiveConfig{LogCapacity: 0, RingSlots: 65536, MsgLimit: 1024},
		RUDP:    RUDPConfig{Window: 8192, Batch: 64, MinWindow: 4, MaxWindow: 65536},
		Log:     logging.DefaultConfig(),
	}
}

// immutable fields cannot change across a hot reload; a changed value here
// is logged and ignored rather than applied.
type immutableSnapshot struct {
	ringCapacity     uint64
	ringNumConsumers int
	archiveLogCap    int
	archiveRingSlots int
}

func snapshotImmutable(cfg Config) immutableSnapshot {
	return immutableSnapshot{
		ringCapacity:     cfg.Ring.Capacity,
		ringNumConsumers: cfg.Ring.NumConsumers,
		archiveLogCap:    cfg.Archive.LogCapacity,
		archiveRingSlots: cfg.Archive.RingSlots,
	}
}

// Loader owns a viper instance watching one config file, hot-reloading
// mutable fields and rejecting changes to immutable ones.
type Loader struct {
	v      *viper.Viper
	logger *zap.Logger

	mu        sync.RWMutex
	cfg       Config
	immutable immutableSnapshot
}

// LoaderOption configures optional Loader behavior.
type LoaderOption func(*Loader)

// WithLogger attaches a structured logger used to report reload errors and
// rejected immutable-field changes.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// Load reads path (any format viper supports: yaml, json, toml) into a
// Config seeded with Defaults(), and starts watching it for changes.
func Load(path string, opts ...LoaderOption) (*Loader, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := Defaults()
	v.SetDefault("ring.capacity", defaults.Ring.Capacity)
	v.SetDefault("ring.num_consumers", defaults.Ring.NumConsumers)
	v.SetDefault("archive.ring_slots", defaults.Archive.RingSlots)
	v.SetDefault("archive.msg_limit", defaults.Archive.MsgLimit)
	v.SetDefault("rudp.window", defaults.RUDP.Window)
	v.SetDefault("rudp.batch", defaults.RUDP.Batch)
	v.SetDefault("rudp.min_window", defaults.RUDP.MinWindow)
	v.SetDefault("rudp.max_window", defaults.RUDP.MaxWindow)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.encoding", defaults.Log.Encoding)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	l := &Loader{v: v, logger: zap.NewNop(), cfg: cfg, immutable: snapshotImmutable(cfg)}
	for _, opt := range opts {
		opt(l)
	}

	v.OnConfigChange(l.onChange)
	v.WatchConfig()
	return l, nil
}

func (l *Loader) onChange(e fsnotify.Event) {
	l.logger.Info("config file changed, reloading", zap.String("file", e.Name))

	var next Config
	if err := l.v.Unmarshal(&next); err != nil {
		l.logger.Error("config reload failed, keeping previous config", zap.Error(err))
		return
	}

	incoming := snapshotImmutable(next)
	if incoming != l.immutable {
		l.logger.Warn("ignoring change to immutable config field; restart required",
			zap.Uint64("ring_capacity_attempted", next.Ring.Capacity),
			zap.Int("ring_num_consumers_attempted", next.Ring.NumConsumers),
			zap.Int("archive_log_capacity_attempted", next.Archive.LogCapacity),
			zap.Int("archive_ring_slots_attempted", next.Archive.RingSlots),
		)
		// Keep the fields that cannot change live pinned to their original
		// values; everything else in next is still applied below.
		next.Ring.Capacity = l.cfg.Ring.Capacity
		next.Ring.NumConsumers = l.cfg.Ring.NumConsumers
		next.Archive.LogCapacity = l.cfg.Archive.LogCapacity
		next.Archive.RingSlots = l.cfg.Archive.RingSlots
	}

	l.mu.Lock()
	l.cfg = next
	l.mu.Unlock()
}

// Current returns a snapshot of the live configuration.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}
