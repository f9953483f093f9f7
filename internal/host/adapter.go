// Package host bridges a game server runtime to the reporter. Adapters expose raw host values,
// the Provider turns them into valid snapshots.
package host

import (
	"slices"
	"strings"

	"github.com/hytalede/statistics/internal/domain"
)

// APIVersion is the newest adapter contract understood by Provider.
const APIVersion = 1

// Capabilities is announced by an adapter so optional data is only requested when the host
// actually provides it.
type Capabilities struct {
	APIVersion    int  `json:"api_version"`
	PlayerList    bool `json:"player_list"`
	PluginDetails bool `json:"plugin_details"`
}

// Adapter is the minimal view of a running host. Implementations may be called from the
// reporter goroutine and must not touch thread affine host APIs directly, see CachedAdapter.
type Adapter interface {
	Capabilities() Capabilities
	OnlinePlayers() int
	MaxPlayers() int
	ServerVersion() string
	// EnabledPlugins returns plugin names. Always available.
	EnabledPlugins() []string
}

// PlayerLister is implemented by adapters announcing Capabilities.PlayerList.
type PlayerLister interface {
	Players() []domain.PlayerInfo
}

// PluginDetailer is implemented by adapters announcing Capabilities.PluginDetails.
type PluginDetailer interface {
	PluginDetails() []domain.PluginInfo
}

// Players returns the adapter's player list when supported, otherwise nil.
func Players(adapter Adapter) []domain.PlayerInfo {
	if !adapter.Capabilities().PlayerList {
		return nil
	}

	lister, ok := adapter.(PlayerLister)
	if !ok {
		return nil
	}

	return lister.Players()
}

// DetailedPlugins returns versioned plugins when the adapter supports them and reports any.
// Otherwise the names from EnabledPlugins are used with an unknown version.
func DetailedPlugins(adapter Adapter) []domain.PluginInfo {
	if adapter.Capabilities().PluginDetails {
		if detailer, ok := adapter.(PluginDetailer); ok {
			if details := detailer.PluginDetails(); len(details) > 0 {
				return details
			}
		}
	}

	names := cleanNames(adapter.EnabledPlugins())
	plugins := make([]domain.PluginInfo, 0, len(names))

	for _, name := range names {
		plugins = append(plugins, domain.PluginInfo{Name: name, Version: domain.UnknownVersion})
	}

	return plugins
}

// cleanNames trims names, dropping blanks and duplicates while keeping the first occurrence order.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(out, name) {
			continue
		}

		out = append(out, name)
	}

	return out
}
