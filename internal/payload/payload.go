// Package payload assembles and validates the telemetry document sent to the API.
package payload

import (
	"fmt"
	"strings"
	"time"

	"github.com/hytalede/statistics/internal/config"
	"github.com/hytalede/statistics/internal/domain"
)

// Payload is the JSON document POSTed to the telemetry endpoint. Optional values are pointers or
// slices and are left out of the encoded document entirely when unset.
type Payload struct {
	VanityURL     string              `json:"vanityUrl"`
	Version       string              `json:"version"`
	PlayersOnline *int                `json:"playersOnline,omitempty"`
	MaxPlayers    *int                `json:"maxPlayers,omitempty"`
	UptimePercent *float64            `json:"uptimePercent,omitempty"`
	LatencyMs     *int64              `json:"latencyMs,omitempty"`
	Players       []domain.PlayerInfo `json:"players,omitzero"`
	Plugins       []domain.PluginInfo `json:"plugins,omitzero"`
	VoteTotal     *int                `json:"voteTotal,omitempty"`
	VotesDelta    *int                `json:"votesDelta,omitempty"`
	Rank          *int                `json:"rank,omitempty"`
	CapturedAt    time.Time           `json:"capturedAt,omitzero"`
	Source        string              `json:"source,omitempty"`
}

// Build creates a validated payload for one reporting cycle. Detailed player and plugin lists are
// only attached when enabled in conf. Invalid snapshot values fail the build, nothing is clamped.
func Build(conf config.Config, snapshot domain.Snapshot, latencyMs int64) (Payload, error) {
	if errSnapshot := snapshot.Validate(); errSnapshot != nil {
		return Payload{}, errSnapshot
	}

	payload := Payload{
		VanityURL:     conf.VanityURL(),
		Version:       snapshot.Version,
		PlayersOnline: &snapshot.Players,
		MaxPlayers:    &snapshot.Slots,
		LatencyMs:     &latencyMs,
	}

	if conf.SendPlayerList() {
		payload.Players = copyPlayers(snapshot.PlayerList)
	}

	if conf.SendPluginList() {
		payload.Plugins = copyPlugins(snapshot.Plugins)
	}

	if errValidate := payload.Validate(); errValidate != nil {
		return Payload{}, errValidate
	}

	return payload, nil
}

// copyPlayers always returns a non-nil slice so an enabled but empty list is encoded as [].
func copyPlayers(players []domain.PlayerInfo) []domain.PlayerInfo {
	out := make([]domain.PlayerInfo, 0, len(players))
	for _, player := range players {
		if !player.Joined.IsZero() {
			player.Joined = player.Joined.UTC().Truncate(time.Second)
		}

		out = append(out, player)
	}

	return out
}

func copyPlugins(plugins []domain.PluginInfo) []domain.PluginInfo {
	out := make([]domain.PluginInfo, 0, len(plugins))
	for _, plugin := range plugins {
		if strings.TrimSpace(plugin.Version) == "" {
			plugin.Version = domain.UnknownVersion
		}

		out = append(out, plugin)
	}

	return out
}

// Validate checks every invariant of the wire document. The vanity url is normalized in place
// before it is matched.
func (p *Payload) Validate() error {
	p.VanityURL = domain.NormalizeVanityURL(p.VanityURL)
	if !domain.ValidVanityURL(p.VanityURL) {
		return fmt.Errorf("%w: vanityUrl must match %s", domain.ErrValidation, domain.VanityURLPattern)
	}

	if strings.TrimSpace(p.Version) == "" {
		return fmt.Errorf("%w: version must not be blank", domain.ErrValidation)
	}

	if errNonNegative := nonNegative(
		field{"playersOnline", p.PlayersOnline},
		field{"maxPlayers", p.MaxPlayers},
		field{"voteTotal", p.VoteTotal},
		field{"rank", p.Rank},
	); errNonNegative != nil {
		return errNonNegative
	}

	if p.PlayersOnline != nil && p.MaxPlayers != nil && *p.PlayersOnline > *p.MaxPlayers {
		return fmt.Errorf("%w: playersOnline (%d) must not exceed maxPlayers (%d)",
			domain.ErrValidation, *p.PlayersOnline, *p.MaxPlayers)
	}

	if p.LatencyMs != nil && *p.LatencyMs < 0 {
		return fmt.Errorf("%w: latencyMs must be >= 0", domain.ErrValidation)
	}

	if p.UptimePercent != nil && (*p.UptimePercent < 0 || *p.UptimePercent > 100) {
		return fmt.Errorf("%w: uptimePercent must be between 0 and 100", domain.ErrValidation)
	}

	for _, player := range p.Players {
		if errPlayer := player.Validate(); errPlayer != nil {
			return errPlayer
		}
	}

	for _, plugin := range p.Plugins {
		if errPlugin := plugin.Validate(); errPlugin != nil {
			return errPlugin
		}
	}

	return nil
}

type field struct {
	name  string
	value *int
}

func nonNegative(fields ...field) error {
	for _, f := range fields {
		if f.value != nil && *f.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0", domain.ErrValidation, f.name)
		}
	}

	return nil
}
