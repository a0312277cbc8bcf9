package game

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(rules scoring.BonusRules) *Engine {
	return NewEngine(scoring.NewCalculator(catalog.Default(), rules))
}

func twoPlayerSession(t *testing.T, e *Engine) types.Session {
	t.Helper()
	s, err := e.AddPlayer(e.NewLocalSession())
	require.NoError(t, err)
	return s
}

func mustPlayer(t *testing.T, s types.Session, id types.PlayerID) types.Player {
	t.Helper()
	p, ok := s.Player(id)
	require.True(t, ok, "player %d not found", id)
	return p
}

func TestEngine_NewLocalSession(t *testing.T) {
	e := newTestEngine(nil)
	s := e.NewLocalSession()

	assert.True(t, s.IsLocal())
	require.Len(t, s.Players, 1)
	assert.Equal(t, types.PlayerID(1), s.Players[0].LocalID)
	assert.Equal(t, "Player 1", s.Players[0].Name)
	assert.Equal(t, 0, s.Players[0].Score)
	assert.Equal(t, types.PlayerID(1), s.ActivePlayerID)
	assert.Equal(t, 0, s.GlobalClaimed().Len())
}

func TestEngine_ToggleClaim(t *testing.T) {
	e := newTestEngine(nil)

	t.Run("claim a state", func(t *testing.T) {
		s, err := e.ToggleClaim(e.NewLocalSession(), 1, "CA")
		require.NoError(t, err)
		p := mustPlayer(t, s, 1)
		assert.Equal(t, []string{"CA"}, p.Claims.Sorted())
		assert.Equal(t, 1, p.Score)
		assert.True(t, s.GlobalClaimed().Has("CA"))
	})

	t.Run("claim a province", func(t *testing.T) {
		s, err := e.ToggleClaim(e.NewLocalSession(), 1, "ONT")
		require.NoError(t, err)
		assert.Equal(t, 2, mustPlayer(t, s, 1).Score)
	})

	t.Run("toggle twice releases", func(t *testing.T) {
		start := e.NewLocalSession()
		s, err := e.ToggleClaim(start, 1, "CA")
		require.NoError(t, err)
		s, err = e.ToggleClaim(s, 1, "CA")
		require.NoError(t, err)
		p := mustPlayer(t, s, 1)
		assert.Equal(t, 0, p.Claims.Len())
		assert.Equal(t, 0, p.Score)
		assert.Equal(t, 0, s.GlobalClaimed().Len())
	})

	t.Run("held by another player", func(t *testing.T) {
		s := twoPlayerSession(t, e)
		s, err := e.ToggleClaim(s, 1, "TX")
		require.NoError(t, err)

		after, err := e.ToggleClaim(s, 2, "TX")
		require.Error(t, err)
		assert.True(t, IsRegionAlreadyClaimed(err))
		var claimErr *ClaimError
		require.ErrorAs(t, err, &claimErr)
		assert.Equal(t, types.PlayerID(1), claimErr.Holder)
		assert.True(t, claimErr.UserFacing())

		assert.Equal(t, s.Players, after.Players)
		assert.Equal(t, 0, mustPlayer(t, after, 2).Claims.Len())
	})

	t.Run("unknown player", func(t *testing.T) {
		s := e.NewLocalSession()
		after, err := e.ToggleClaim(s, 9, "CA")
		assert.True(t, IsPlayerNotFound(err))
		assert.Equal(t, s.Players, after.Players)
	})

	t.Run("input is not modified", func(t *testing.T) {
		s := e.NewLocalSession()
		_, err := e.ToggleClaim(s, 1, "CA")
		require.NoError(t, err)
		assert.Equal(t, 0, s.Players[0].Claims.Len())
		assert.Equal(t, 0, s.GlobalClaimed().Len())
	})
}

func TestEngine_BonusMultiplier(t *testing.T) {
	e := newTestEngine(scoring.BonusRules{"grandma": 2})
	s, err := e.ToggleClaim(e.NewLocalSession(), 1, "ONT")
	require.NoError(t, err)
	assert.Equal(t, 2, mustPlayer(t, s, 1).Score)

	s, err = e.RenamePlayer(s, 1, "Grandma")
	require.NoError(t, err)
	p := mustPlayer(t, s, 1)
	assert.Equal(t, "Grandma", p.Name)
	assert.Equal(t, 4, p.Score)
	assert.Equal(t, []string{"ONT"}, p.Claims.Sorted())
}

func TestEngine_ResetSession(t *testing.T) {
	e := newTestEngine(nil)
	s := twoPlayerSession(t, e)
	s, err := e.SelectPlayer(s, 2)
	require.NoError(t, err)
	for _, step := range []struct {
		player types.PlayerID
		region string
	}{{1, "CA"}, {1, "ONT"}, {2, "TX"}} {
		s, err = e.ToggleClaim(s, step.player, step.region)
		require.NoError(t, err)
	}

	reset := e.ResetSession(s)
	require.Len(t, reset.Players, 2)
	for i, p := range reset.Players {
		assert.Equal(t, s.Players[i].LocalID, p.LocalID)
		assert.Equal(t, s.Players[i].Name, p.Name)
		assert.Equal(t, 0, p.Claims.Len())
		assert.Equal(t, 0, p.Score)
	}
	assert.Equal(t, 0, reset.GlobalClaimed().Len())
	assert.Equal(t, types.PlayerID(2), reset.ActivePlayerID)

	again := e.ResetSession(reset)
	assert.Equal(t, reset.Players, again.Players)
}

// A toggle after a reset behaves like the same toggle on a fresh session.
func TestEngine_ResetThenToggleMatchesFreshSession(t *testing.T) {
	e := newTestEngine(nil)
	played := e.NewLocalSession()
	for _, region := range []string{"CA", "ONT", "NY", "YUK"} {
		var err error
		played, err = e.ToggleClaim(played, 1, region)
		require.NoError(t, err)
	}
	reset := e.ResetSession(played)

	for _, region := range []string{"CA", "TX", "ONT", "ZZ"} {
		t.Run(region, func(t *testing.T) {
			got, err := e.ToggleClaim(reset, 1, region)
			require.NoError(t, err)
			want, err := e.ToggleClaim(e.NewLocalSession(), 1, region)
			require.NoError(t, err)

			gotPlayer, wantPlayer := mustPlayer(t, got, 1), mustPlayer(t, want, 1)
			assert.Equal(t, wantPlayer.Claims.Sorted(), gotPlayer.Claims.Sorted())
			assert.Equal(t, wantPlayer.Score, gotPlayer.Score)
			assert.Equal(t, want.GlobalClaimed().Sorted(), got.GlobalClaimed().Sorted())
			assert.Equal(t, want.ActivePlayerID, got.ActivePlayerID)
		})
	}
}

func TestEngine_AddPlayer(t *testing.T) {
	e := newTestEngine(nil)
	s := e.NewLocalSession()

	for n := 2; n <= types.MaxPlayers; n++ {
		var err error
		s, err = e.AddPlayer(s)
		require.NoError(t, err)
		require.Len(t, s.Players, n)
		last := s.Players[n-1]
		assert.Equal(t, types.PlayerID(n), last.LocalID)
		assert.Equal(t, DefaultPlayerName(n), last.Name)
		assert.Equal(t, 0, last.Score)
	}
	assert.Equal(t, types.PlayerID(1), s.ActivePlayerID)

	after, err := e.AddPlayer(s)
	assert.True(t, IsMaxPlayersReached(err))
	assert.Len(t, after.Players, types.MaxPlayers)
}

func TestEngine_AddPlayerAfterRemovalUsesFreshID(t *testing.T) {
	e := newTestEngine(nil)
	s := twoPlayerSession(t, e)
	s, err := e.AddPlayer(s)
	require.NoError(t, err)
	s, err = e.RemovePlayer(s, 2)
	require.NoError(t, err)

	s, err = e.AddPlayer(s)
	require.NoError(t, err)
	require.Len(t, s.Players, 3)
	assert.Equal(t, types.PlayerID(4), s.Players[2].LocalID)
	assert.Equal(t, "Player 3", s.Players[2].Name)
}

func TestEngine_RemovePlayer(t *testing.T) {
	e := newTestEngine(nil)

	t.Run("releases claims", func(t *testing.T) {
		s := twoPlayerSession(t, e)
		s, err := e.ToggleClaim(s, 2, "ONT")
		require.NoError(t, err)

		s, err = e.RemovePlayer(s, 2)
		require.NoError(t, err)
		require.Len(t, s.Players, 1)
		assert.False(t, s.GlobalClaimed().Has("ONT"))

		s, err = e.ToggleClaim(s, 1, "ONT")
		require.NoError(t, err)
		assert.Equal(t, 2, mustPlayer(t, s, 1).Score)
	})

	t.Run("active falls back to first", func(t *testing.T) {
		s := twoPlayerSession(t, e)
		s, err := e.AddPlayer(s)
		require.NoError(t, err)
		s, err = e.SelectPlayer(s, 3)
		require.NoError(t, err)

		s, err = e.RemovePlayer(s, 3)
		require.NoError(t, err)
		assert.Equal(t, types.PlayerID(1), s.ActivePlayerID)
	})

	t.Run("active is kept when another player is removed", func(t *testing.T) {
		s := twoPlayerSession(t, e)
		s, err := e.SelectPlayer(s, 2)
		require.NoError(t, err)
		s, err = e.RemovePlayer(s, 1)
		require.NoError(t, err)
		assert.Equal(t, types.PlayerID(2), s.ActivePlayerID)
	})

	t.Run("last player", func(t *testing.T) {
		s := e.NewLocalSession()
		after, err := e.RemovePlayer(s, 1)
		assert.True(t, IsCannotRemoveLastPlayer(err))
		assert.Len(t, after.Players, 1)
	})

	t.Run("unknown player", func(t *testing.T) {
		s := twoPlayerSession(t, e)
		_, err := e.RemovePlayer(s, 7)
		assert.True(t, IsPlayerNotFound(err))
	})
}

func TestEngine_RenamePlayer(t *testing.T) {
	e := newTestEngine(nil)
	s, err := e.ToggleClaim(e.NewLocalSession(), 1, "CA")
	require.NoError(t, err)

	s, err = e.RenamePlayer(s, 1, "Dad")
	require.NoError(t, err)
	p := mustPlayer(t, s, 1)
	assert.Equal(t, "Dad", p.Name)
	assert.Equal(t, 1, p.Score)

	_, err = e.RenamePlayer(s, 2, "Mom")
	assert.True(t, IsPlayerNotFound(err))
}

func TestEngine_RenamePlayerValidatesName(t *testing.T) {
	e := newTestEngine(scoring.BonusRules{"mom": 2})
	s, err := e.ToggleClaim(e.NewLocalSession(), 1, "CA")
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "trimmed", input: "  Mom ", want: "Mom"},
		{name: "longest", input: strings.Repeat("é", types.MaxPlayerNameLength), want: strings.Repeat("é", types.MaxPlayerNameLength)},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: " \t ", wantErr: true},
		{name: "too long", input: strings.Repeat("a", types.MaxPlayerNameLength+1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := e.RenamePlayer(s, 1, tt.input)
			if tt.wantErr {
				assert.True(t, IsInvalidPlayerName(err))
				assert.Equal(t, s.Players, next.Players)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustPlayer(t, next, 1).Name)
		})
	}

	// the bonus applies to the trimmed name
	next, err := e.RenamePlayer(s, 1, " mom")
	require.NoError(t, err)
	assert.Equal(t, 2, mustPlayer(t, next, 1).Score)
}

func TestEngine_AttachRemoteID(t *testing.T) {
	e := newTestEngine(nil)
	s, err := e.ToggleClaim(e.NewLocalSession(), 1, "CA")
	require.NoError(t, err)

	s, err = e.AttachRemoteID(s, 1, "abc")
	require.NoError(t, err)
	p := mustPlayer(t, s, 1)
	assert.True(t, p.HasRemote())
	assert.Equal(t, types.RemoteID("abc"), p.RemoteID)
	assert.True(t, p.Claims.Has("CA"))
}

// Applies random operations and checks that every resulting session keeps
// claims exclusive, the global set equal to the union of claims and every
// score equal to a fresh computation.
func TestEngine_RandomOperationsKeepInvariants(t *testing.T) {
	e := newTestEngine(scoring.BonusRules{"lucky": 3})
	regions := catalog.Default().Regions()
	rng := rand.New(rand.NewSource(42))
	names := []string{"lucky", "Player 9", "Mom"}

	s := e.NewLocalSession()
	for i := 0; i < 2000; i++ {
		player := s.Players[rng.Intn(len(s.Players))].LocalID
		var next types.Session
		var err error
		switch rng.Intn(10) {
		case 0:
			next, err = e.AddPlayer(s)
		case 1:
			next, err = e.RemovePlayer(s, player)
		case 2:
			next, err = e.RenamePlayer(s, player, names[rng.Intn(len(names))])
		case 3:
			next, err = e.SelectPlayer(s, player)
		case 4:
			if rng.Intn(10) == 0 {
				next = e.ResetSession(s)
			} else {
				next = s
			}
		default:
			next, err = e.ToggleClaim(s, player, regions[rng.Intn(len(regions))].ID)
		}
		if err != nil {
			assert.Equal(t, s.Players, next.Players, "rejected operation changed the session")
			continue
		}
		s = next

		union := types.NewRegionSet()
		for _, p := range s.Players {
			for region := range p.Claims {
				require.False(t, union.Has(region), "region %s claimed twice", region)
				union[region] = struct{}{}
			}
			assert.Equal(t, e.Calculator().Score(p.Claims, p.Name), p.Score)
		}
		require.True(t, union.Equal(s.GlobalClaimed()))
		require.GreaterOrEqual(t, len(s.Players), 1)
		require.LessOrEqual(t, len(s.Players), types.MaxPlayers)
		_, ok := s.ActivePlayer()
		require.True(t, ok)
	}
}
