package domain

import (
	"fmt"
	"strings"
	"time"
)

// UnknownVersion is reported for plugins and servers that do not expose a version.
const UnknownVersion = "unknown"

// PlayerInfo describes a single online player. Only sent when the player list is enabled.
type PlayerInfo struct {
	UUID   string    `json:"uuid"`
	Name   string    `json:"name"`
	Joined time.Time `json:"joined,omitzero"`
}

func (p PlayerInfo) Validate() error {
	if strings.TrimSpace(p.UUID) == "" {
		return fmt.Errorf("%w: player uuid must not be empty", ErrValidation)
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: player name must not be empty (uuid=%s)", ErrValidation, p.UUID)
	}

	return nil
}

// PluginInfo describes an enabled host plugin. Only sent when the plugin list is enabled.
type PluginInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (p PluginInfo) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: plugin name must not be empty", ErrValidation)
	}

	return nil
}

// Snapshot is the point-in-time state of the host process.
type Snapshot struct {
	Players    int
	Slots      int
	Version    string
	PlayerList []PlayerInfo
	Plugins    []PluginInfo
}

func (s Snapshot) Validate() error {
	if s.Players < 0 {
		return fmt.Errorf("%w: players must be >= 0, got %d", ErrValidation, s.Players)
	}

	if s.Slots <= 0 {
		return fmt.Errorf("%w: slots must be > 0, got %d", ErrValidation, s.Slots)
	}

	if s.Players > s.Slots {
		return fmt.Errorf("%w: players (%d) must not exceed slots (%d)", ErrValidation, s.Players, s.Slots)
	}

	return nil
}

// SnapshotSource supplies a fresh Snapshot each time it is called. Implementations must
// be safe to call from the reporter goroutine.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// SnapshotSourceFunc adapts a plain function to a SnapshotSource.
type SnapshotSourceFunc func() Snapshot

func (f SnapshotSourceFunc) Snapshot() Snapshot {
	return f()
}
