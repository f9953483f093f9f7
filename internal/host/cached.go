package host

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/pkg/updater"
)

// State is a detached copy of everything an Adapter exposes.
type State struct {
	OnlinePlayers int
	MaxPlayers    int
	Version       string
	Plugins       []string
	Players       []domain.PlayerInfo
	PluginDetails []domain.PluginInfo
}

// Capture reads all values from adapter. A panicking adapter is reported as an error.
func Capture(adapter Adapter) (state State, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrAdapterPanic, recovered)
		}
	}()

	state = State{
		OnlinePlayers: adapter.OnlinePlayers(),
		MaxPlayers:    adapter.MaxPlayers(),
		Version:       adapter.ServerVersion(),
		Plugins:       slices.Clone(adapter.EnabledPlugins()),
		Players:       slices.Clone(Players(adapter)),
	}

	if adapter.Capabilities().PluginDetails {
		if detailer, ok := adapter.(PluginDetailer); ok {
			state.PluginDetails = slices.Clone(detailer.PluginDetails())
		}
	}

	return state, nil
}

// CachedAdapter holds the last values pushed by the host in atomics. The reporter reads it from
// its own goroutine while the host updates it from a thread where its API is safe to call.
type CachedAdapter struct {
	onlinePlayers atomic.Int64
	maxPlayers    atomic.Int64
	version       atomic.Pointer[string]
	plugins       atomic.Pointer[[]string]
	players       atomic.Pointer[[]domain.PlayerInfo]
	pluginDetails atomic.Pointer[[]domain.PluginInfo]
}

func NewCachedAdapter() *CachedAdapter {
	adapter := &CachedAdapter{}
	adapter.maxPlayers.Store(1)
	adapter.SetServerVersion("")

	return adapter
}

func (c *CachedAdapter) SetOnlinePlayers(value int) {
	c.onlinePlayers.Store(int64(max(0, value)))
}

// SetMaxPlayers clamps to at least one slot, hosts may report 0 while booting.
func (c *CachedAdapter) SetMaxPlayers(value int) {
	c.maxPlayers.Store(int64(max(1, value)))
}

func (c *CachedAdapter) SetServerVersion(value string) {
	if value == "" {
		value = domain.UnknownVersion
	}

	c.version.Store(&value)
}

func (c *CachedAdapter) SetEnabledPlugins(plugins []string) {
	plugins = slices.Clone(plugins)
	c.plugins.Store(&plugins)
}

func (c *CachedAdapter) SetPlayers(players []domain.PlayerInfo) {
	players = slices.Clone(players)
	c.players.Store(&players)
}

// SetPluginDetails also replaces the plugin names so both views stay in sync.
func (c *CachedAdapter) SetPluginDetails(details []domain.PluginInfo) {
	details = slices.Clone(details)
	c.pluginDetails.Store(&details)

	names := make([]string, 0, len(details))
	for _, plugin := range details {
		names = append(names, plugin.Name)
	}

	c.SetEnabledPlugins(names)
}

// Store replaces all cached values with state.
func (c *CachedAdapter) Store(state State) {
	c.SetOnlinePlayers(state.OnlinePlayers)
	c.SetMaxPlayers(state.MaxPlayers)
	c.SetServerVersion(state.Version)
	c.SetPlayers(state.Players)

	if len(state.PluginDetails) > 0 {
		c.SetPluginDetails(state.PluginDetails)

		return
	}

	c.SetEnabledPlugins(state.Plugins)
	c.pluginDetails.Store(nil)
}

func (c *CachedAdapter) Capabilities() Capabilities {
	return Capabilities{APIVersion: APIVersion, PlayerList: true, PluginDetails: true}
}

func (c *CachedAdapter) OnlinePlayers() int {
	return int(c.onlinePlayers.Load())
}

func (c *CachedAdapter) MaxPlayers() int {
	return int(c.maxPlayers.Load())
}

func (c *CachedAdapter) ServerVersion() string {
	return *c.version.Load()
}

func (c *CachedAdapter) EnabledPlugins() []string {
	return load(&c.plugins)
}

func (c *CachedAdapter) Players() []domain.PlayerInfo {
	return load(&c.players)
}

func (c *CachedAdapter) PluginDetails() []domain.PluginInfo {
	return load(&c.pluginDetails)
}

func load[T any](ptr *atomic.Pointer[[]T]) []T {
	value := ptr.Load()
	if value == nil {
		return nil
	}

	return *value
}

// NewRefresher periodically captures source into cache. Call Start on the returned updater from
// the goroutine where source is safe to use.
func NewRefresher(source Adapter, cache *CachedAdapter, interval time.Duration) *updater.Updater[State] {
	return updater.New(interval, func() (State, error) {
		return Capture(source)
	}, updater.OnUpdate(cache.Store))
}
