// Package roster reconciles the players reported by a game against the
// players registered for a schedule.
package roster

import (
	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/types"
)

// Reconcile returns the players present in game but not registered, and the
// registered players absent from game. Ids are normalized before comparison
// and blank ids are ignored. Each list is deduplicated by id and keeps the
// order of first appearance.
func Reconcile(game, registered []types.Identity) types.RosterReport {
	gameIDs := idSet(game)
	registeredIDs := idSet(registered)
	return types.RosterReport{
		GamePlayersUnmatched: difference(game, registeredIDs),
		DBPlayersUnmatched:   difference(registered, gameIDs),
	}
}

// FromTelemetry lists the identities reported in a game's player list.
func FromTelemetry(players []model.PlayerTelemetry) []types.Identity {
	out := make([]types.Identity, 0, len(players))
	for _, p := range players {
		out = append(out, types.Identity{Name: p.Name, ID: p.InGameID.String()})
	}
	return out
}

// FromPlayers lists the identities of registered players.
func FromPlayers(players []model.Player) []types.Identity {
	out := make([]types.Identity, 0, len(players))
	for _, p := range players {
		out = append(out, types.Identity{Name: p.Name, ID: p.InGameID})
	}
	return out
}

func idSet(ids []types.Identity) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if n := model.NormalizeID(id.ID); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func difference(from []types.Identity, exclude map[string]struct{}) []types.Identity {
	out := []types.Identity{}
	emitted := make(map[string]struct{})
	for _, id := range from {
		n := model.NormalizeID(id.ID)
		if n == "" {
			continue
		}
		if _, ok := exclude[n]; ok {
			continue
		}
		if _, ok := emitted[n]; ok {
			continue
		}
		emitted[n] = struct{}{}
		out = append(out, types.Identity{Name: id.Name, ID: n})
	}
	return out
}
