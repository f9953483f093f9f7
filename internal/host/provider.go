package host

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/hytalede/statistics/internal/domain"
)

var (
	ErrUnsupportedAdapter = errors.New("unsupported adapter api version")
	ErrAdapterPanic       = errors.New("adapter panicked")
)

// Provider turns adapter values into snapshots that always satisfy the snapshot invariants.
// Inconsistent host values are clamped instead of failing the send.
type Provider struct {
	adapter Adapter
}

func NewProvider(adapter Adapter) (*Provider, error) {
	if adapter == nil {
		return nil, fmt.Errorf("%w: adapter must not be nil", domain.ErrNotInitialized)
	}

	if version := adapter.Capabilities().APIVersion; version < 1 || version > APIVersion {
		return nil, fmt.Errorf("%w: %d (supported: 1-%d)", ErrUnsupportedAdapter, version, APIVersion)
	}

	return &Provider{adapter: adapter}, nil
}

func (p *Provider) Snapshot() domain.Snapshot {
	slots := p.adapter.MaxPlayers()
	if slots <= 0 {
		slots = 1
	}

	players := min(max(0, p.adapter.OnlinePlayers()), slots)

	version := strings.TrimSpace(p.adapter.ServerVersion())
	if version == "" {
		version = domain.UnknownVersion
	}

	return domain.Snapshot{
		Players:    players,
		Slots:      slots,
		Version:    version,
		PlayerList: sanitizePlayers(Players(p.adapter)),
		Plugins:    sanitizePlugins(DetailedPlugins(p.adapter)),
	}
}

// sanitizePlayers drops entries the endpoint would reject and canonicalizes parseable uuids.
func sanitizePlayers(players []domain.PlayerInfo) []domain.PlayerInfo {
	out := make([]domain.PlayerInfo, 0, len(players))

	for _, player := range players {
		player.Name = strings.TrimSpace(player.Name)
		player.UUID = strings.TrimSpace(player.UUID)

		if parsed, errParse := uuid.FromString(player.UUID); errParse == nil {
			player.UUID = parsed.String()
		}

		if errValid := player.Validate(); errValid != nil {
			slog.Debug("Skipping invalid player entry", slog.String("uuid", player.UUID))

			continue
		}

		out = append(out, player)
	}

	return out
}

func sanitizePlugins(plugins []domain.PluginInfo) []domain.PluginInfo {
	out := make([]domain.PluginInfo, 0, len(plugins))
	seen := make(map[string]struct{}, len(plugins))

	for _, plugin := range plugins {
		plugin.Name = strings.TrimSpace(plugin.Name)
		if plugin.Name == "" {
			continue
		}

		if _, found := seen[plugin.Name]; found {
			continue
		}

		seen[plugin.Name] = struct{}{}

		plugin.Version = strings.TrimSpace(plugin.Version)
		if plugin.Version == "" {
			plugin.Version = domain.UnknownVersion
		}

		out = append(out, plugin)
	}

	return out
}
