package session

import (
	"fmt"
	"testing"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/game"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"github.com/cbodonnell/platespotter/pkg/scoring"
	"github.com/cbodonnell/platespotter/pkg/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *game.Engine {
	return game.NewEngine(scoring.NewCalculator(catalog.Default(), nil))
}

func TestReconcile(t *testing.T) {
	engine := newTestEngine()

	t.Run("assigns local ids in order and keeps remote ids", func(t *testing.T) {
		records := []models.PlayerRecord{
			{ID: "r1", Name: "Ana", Claims: []string{"CA"}, Score: 1},
			{ID: "r2", Name: "Ben", Claims: []string{"ONT"}, Score: 2},
		}
		s, tasks, err := Reconcile(engine, "s1", records)
		require.NoError(t, err)
		assert.Empty(t, tasks)

		assert.Equal(t, types.SessionID("s1"), s.ID)
		assert.False(t, s.IsLocal())
		assert.Equal(t, types.PlayerID(1), s.ActivePlayerID)
		require.Len(t, s.Players, 2)
		assert.Equal(t, types.PlayerID(1), s.Players[0].LocalID)
		assert.Equal(t, types.RemoteID("r1"), s.Players[0].RemoteID)
		assert.Equal(t, types.PlayerID(2), s.Players[1].LocalID)
		assert.Equal(t, "Ben", s.Players[1].Name)
		assert.Equal(t, []string{"CA", "ONT"}, s.GlobalClaimed().Sorted())
	})

	t.Run("recomputes a stale score", func(t *testing.T) {
		records := []models.PlayerRecord{
			{ID: "r1", Name: "Ana", Claims: []string{"CA", "ONT"}, Score: 99},
		}
		s, tasks, err := Reconcile(engine, "s1", records)
		require.NoError(t, err)
		assert.Equal(t, 3, s.Players[0].Score)
		require.Len(t, tasks, 1)
		assert.Equal(t, workers.SyncUpdate, tasks[0].Op)
		assert.Equal(t, types.RemoteID("r1"), tasks[0].RemoteID)
		assert.Equal(t, 3, tasks[0].Score)
	})

	t.Run("a region stored twice stays with the first player", func(t *testing.T) {
		records := []models.PlayerRecord{
			{ID: "r1", Name: "Ana", Claims: []string{"CA"}, Score: 1},
			{ID: "r2", Name: "Ben", Claims: []string{"CA", "NY"}, Score: 2},
		}
		s, tasks, err := Reconcile(engine, "s1", records)
		require.NoError(t, err)

		assert.Equal(t, []string{"CA"}, s.Players[0].Claims.Sorted())
		assert.Equal(t, []string{"NY"}, s.Players[1].Claims.Sorted())
		assert.Equal(t, 1, s.Players[1].Score)

		require.Len(t, tasks, 1)
		assert.Equal(t, types.PlayerID(2), tasks[0].PlayerID)
		assert.Equal(t, []string{"NY"}, tasks[0].Claims)
	})

	t.Run("a region listed twice for one player needs no repair", func(t *testing.T) {
		records := []models.PlayerRecord{
			{ID: "r1", Name: "Ana", Claims: []string{"CA", "CA", "NY"}, Score: 2},
			{ID: "r2", Name: "Ben", Claims: []string{"TX"}, Score: 1},
		}
		s, tasks, err := Reconcile(engine, "s1", records)
		require.NoError(t, err)
		assert.Empty(t, tasks)
		assert.Equal(t, []string{"CA", "NY"}, s.Players[0].Claims.Sorted())
		assert.Equal(t, 2, s.Players[0].Score)
	})

	t.Run("keeps at most six players", func(t *testing.T) {
		records := make([]models.PlayerRecord, 0, types.MaxPlayers+2)
		for i := 0; i < types.MaxPlayers+2; i++ {
			records = append(records, models.PlayerRecord{
				ID:     types.RemoteID(fmt.Sprintf("r%d", i)),
				Name:   fmt.Sprintf("P%d", i),
				Claims: []string{},
			})
		}
		s, _, err := Reconcile(engine, "s1", records)
		require.NoError(t, err)
		assert.Len(t, s.Players, types.MaxPlayers)
		assert.Equal(t, types.RemoteID("r5"), s.Players[types.MaxPlayers-1].RemoteID)
	})
}
