package cmd

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/internal/host"
)

const simulatedMaxPlayers = 50

var simulatedPlugins = []string{"ExamplePlugin", "StatisticsPlugin"} //nolint:gochecknoglobals

// simulatedHost stands in for a game server. Each read of the online count rolls a new value.
type simulatedHost struct {
	mu      sync.Mutex
	rng     *rand.Rand
	slots   int
	online  int
	roster  []domain.PlayerInfo
	started time.Time
}

func newSimulatedHost(slots int, seed uint64) (*simulatedHost, error) {
	roster := make([]domain.PlayerInfo, slots)
	started := time.Now().UTC().Truncate(time.Second)

	for idx := range roster {
		playerID, errID := uuid.NewV4()
		if errID != nil {
			return nil, errID
		}

		roster[idx] = domain.PlayerInfo{
			UUID:   playerID.String(),
			Name:   fmt.Sprintf("Player%d", idx+1),
			Joined: started,
		}
	}

	return &simulatedHost{
		rng:     rand.New(rand.NewPCG(seed, seed>>1|1)), //nolint:gosec
		slots:   slots,
		roster:  roster,
		started: started,
	}, nil
}

func (h *simulatedHost) onlinePlayers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.online = h.rng.IntN(h.slots)

	return h.online
}

func (h *simulatedHost) maxPlayers() int {
	return h.slots
}

// players returns the roster for the most recently rolled count.
func (h *simulatedHost) players() []domain.PlayerInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	online := make([]domain.PlayerInfo, h.online)
	copy(online, h.roster[:h.online])

	return online
}

func (h *simulatedHost) plugins() []string {
	return append([]string(nil), simulatedPlugins...)
}

func newSimulatedAdapter(slots int, version string) (*host.FuncAdapter, error) {
	simulated, errHost := newSimulatedHost(slots, uint64(time.Now().UnixNano())) //nolint:gosec
	if errHost != nil {
		return nil, errHost
	}

	return host.NewFuncAdapter(simulated.onlinePlayers, simulated.maxPlayers,
		host.WithVersion(func() string { return version }),
		host.WithPlugins(simulated.plugins),
		host.WithPlayers(simulated.players))
}
