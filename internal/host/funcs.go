package host

import (
	"errors"

	"github.com/hytalede/statistics/internal/domain"
)

var ErrMissingSupplier = errors.New("adapter supplier must not be nil")

type FuncOption func(*FuncAdapter)

func WithVersion(version func() string) FuncOption {
	return func(a *FuncAdapter) {
		a.version = version
	}
}

func WithPlugins(plugins func() []string) FuncOption {
	return func(a *FuncAdapter) {
		a.plugins = plugins
	}
}

// WithPlayers enables the player list capability.
func WithPlayers(players func() []domain.PlayerInfo) FuncOption {
	return func(a *FuncAdapter) {
		a.players = players
	}
}

// WithPluginDetails enables the plugin detail capability.
func WithPluginDetails(details func() []domain.PluginInfo) FuncOption {
	return func(a *FuncAdapter) {
		a.pluginDetails = details
	}
}

// FuncAdapter reads every value through a supplied function, letting a host wire its own API
// without this module depending on it.
type FuncAdapter struct {
	onlinePlayers func() int
	maxPlayers    func() int
	version       func() string
	plugins       func() []string
	players       func() []domain.PlayerInfo
	pluginDetails func() []domain.PluginInfo
}

// NewFuncAdapter requires the player count suppliers, everything else is optional.
func NewFuncAdapter(onlinePlayers func() int, maxPlayers func() int, opts ...FuncOption) (*FuncAdapter, error) {
	if onlinePlayers == nil || maxPlayers == nil {
		return nil, ErrMissingSupplier
	}

	adapter := &FuncAdapter{
		onlinePlayers: onlinePlayers,
		maxPlayers:    maxPlayers,
		version:       func() string { return domain.UnknownVersion },
		plugins:       func() []string { return nil },
	}

	for _, opt := range opts {
		opt(adapter)
	}

	if adapter.version == nil || adapter.plugins == nil {
		return nil, ErrMissingSupplier
	}

	return adapter, nil
}

func (a *FuncAdapter) Capabilities() Capabilities {
	return Capabilities{
		APIVersion:    APIVersion,
		PlayerList:    a.players != nil,
		PluginDetails: a.pluginDetails != nil,
	}
}

func (a *FuncAdapter) OnlinePlayers() int {
	return a.onlinePlayers()
}

func (a *FuncAdapter) MaxPlayers() int {
	return a.maxPlayers()
}

func (a *FuncAdapter) ServerVersion() string {
	return a.version()
}

func (a *FuncAdapter) EnabledPlugins() []string {
	return a.plugins()
}

func (a *FuncAdapter) Players() []domain.PlayerInfo {
	if a.players == nil {
		return nil
	}

	return a.players()
}

func (a *FuncAdapter) PluginDetails() []domain.PluginInfo {
	if a.pluginDetails == nil {
		return nil
	}

	return a.pluginDetails()
}
