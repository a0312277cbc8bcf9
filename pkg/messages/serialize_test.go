package messages

import (
	"testing"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeMessage(t *testing.T) {
	s := types.MustNewSession("remote-1", []types.Player{
		{LocalID: 1, Name: "Player 1", Claims: types.NewRegionSet("CA", "ONT"), Score: 3, RemoteID: "r1"},
		{LocalID: 2, Name: "Player 2"},
	}, 2)
	snapshot := NewSessionSnapshot(s, catalog.Default(), "ready", nil)

	msg, err := NewMessage(MessageTypeSessionSnapshot, snapshot)
	require.NoError(t, err)

	b, err := SerializeMessage(msg)
	require.NoError(t, err)

	got, err := DeserializeMessage(b)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeSessionSnapshot, got.Type)

	var decoded SessionSnapshot
	require.NoError(t, DecodePayload(got, &decoded))
	assert.Equal(t, *snapshot, decoded)
}

func TestDeserializeMessageRejectsGarbage(t *testing.T) {
	_, err := DeserializeMessage([]byte("not zstd"))
	assert.Error(t, err)
}

func TestNewSessionSnapshot(t *testing.T) {
	s := types.MustNewSession("remote-1", []types.Player{
		{LocalID: 1, Name: "Player 1", Claims: types.NewRegionSet("TX"), Score: 1, RemoteID: "r1"},
		{LocalID: 3, Name: "Mom", Claims: types.NewRegionSet("ONT", "CA"), Score: 3},
	}, 3)
	warnings := []Warning{{Kind: "persistence_unavailable", Message: "offline"}}

	snapshot := NewSessionSnapshot(s, catalog.Default(), "ready", warnings)

	assert.Equal(t, "remote-1", snapshot.SessionID)
	assert.False(t, snapshot.Local)
	assert.Equal(t, 3, snapshot.ActivePlayerID)
	assert.Equal(t, []string{"CA", "ONT", "TX"}, snapshot.GlobalClaimed)
	assert.Equal(t, warnings, snapshot.Warnings)

	require.Len(t, snapshot.Players, 2)
	assert.True(t, snapshot.Players[0].Synced)
	assert.False(t, snapshot.Players[1].Synced)
	assert.Equal(t, 2, snapshot.Players[1].ClaimCount)
	assert.Equal(t, []string{"CA", "ONT"}, snapshot.Players[1].Claims)

	require.Len(t, snapshot.Regions, catalog.Default().Len())
	for i, r := range snapshot.Regions[:3] {
		require.NotNil(t, r.ClaimedBy, "region %d should be spotted", i)
	}
	assert.Nil(t, snapshot.Regions[3].ClaimedBy)
	assert.Equal(t, 1, *snapshot.Regions[indexOf(snapshot.Regions, "TX")].ClaimedBy)
	assert.Equal(t, 3, *snapshot.Regions[indexOf(snapshot.Regions, "ONT")].ClaimedBy)
	assert.InDelta(t, 100*3/float64(catalog.Default().Len()), snapshot.Progress, 0.001)
}

func indexOf(regions []RegionView, id string) int {
	for i, r := range regions {
		if r.ID == id {
			return i
		}
	}
	return -1
}
