package session

import (
	"github.com/cbodonnell/platespotter/pkg/game"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"github.com/cbodonnell/platespotter/pkg/workers"
)

// Reconcile builds a session from stored players. Local ids are assigned
// 1..n in list order and scores are recomputed. A region stored for more
// than one player stays with the first of them, and players past
// types.MaxPlayers are ignored. Every player whose stored state differs
// from the result gets an update task. records must not be empty.
func Reconcile(engine *game.Engine, sessionID types.SessionID, records []models.PlayerRecord) (types.Session, []workers.SyncTask, error) {
	if len(records) > types.MaxPlayers {
		log.Warn("Session %s has %d stored players, keeping the first %d", sessionID, len(records), types.MaxPlayers)
		records = records[:types.MaxPlayers]
	}

	taken := types.NewRegionSet()
	players := make([]types.Player, 0, len(records))
	var tasks []workers.SyncTask
	for i, record := range records {
		claims := types.NewRegionSet()
		for _, region := range record.Claims {
			if claims.Has(region) {
				continue
			}
			if taken.Has(region) {
				log.Warn("Region %s of session %s is stored for several players, keeping it with the first", region, sessionID)
				continue
			}
			claims[region] = struct{}{}
			taken[region] = struct{}{}
		}

		player := engine.Rescore(types.Player{
			LocalID:  types.PlayerID(i + 1),
			Name:     record.Name,
			Claims:   claims,
			RemoteID: record.ID,
		})
		players = append(players, player)

		if player.Score != record.Score || !claims.Equal(types.NewRegionSet(record.Claims...)) {
			tasks = append(tasks, workers.NewSyncTask(workers.SyncUpdate, sessionID, player))
		}
	}

	s, err := types.NewSession(sessionID, players, players[0].LocalID)
	if err != nil {
		return types.Session{}, nil, err
	}
	return s, tasks, nil
}
