package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	channelID := uuid.NewString()

	created, err := registry.Register(channelID, "Wira", "Jawa Barat")
	req.NoError(err)
	req.Equal(channelID, created.ChannelID)
	req.Equal("Wira", created.DisplayName)
	req.Equal("Jawa Barat", created.Region)
	req.False(created.JoinedAt.IsZero())

	got, ok := registry.Get(channelID)
	req.True(ok)
	req.Equal(created, got)
	req.Equal(1, registry.Len())
}

func TestRegistryRefusesDuplicateSession(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	channelID := uuid.NewString()

	_, err := registry.Register(channelID, "Wira", "")
	req.NoError(err)

	_, err = registry.Register(channelID, "Penyusup", "")
	req.ErrorIs(err, ErrDuplicateSession)

	// The existing session was not overwritten.
	got, ok := registry.Get(channelID)
	req.True(ok)
	req.Equal("Wira", got.DisplayName)
}

func TestRegistryAllowsDuplicateDisplayNames(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()

	_, err := registry.Register(uuid.NewString(), "Wira", "")
	req.NoError(err)
	_, err = registry.Register(uuid.NewString(), "Wira", "")
	req.NoError(err)

	req.Equal(2, registry.Len())
}

func TestRegistryRename(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	channelID := uuid.NewString()

	_, err := registry.Register(channelID, "Wira", "Bali")
	req.NoError(err)

	renamed, err := registry.Rename(channelID, "NamaBaru")
	req.NoError(err)
	req.Equal("NamaBaru", renamed.DisplayName)
	req.Equal("Bali", renamed.Region)

	got, _ := registry.Get(channelID)
	req.Equal("NamaBaru", got.DisplayName)
}

func TestRegistryRenameWithoutSession(t *testing.T) {
	registry := NewSessionRegistry()

	_, err := registry.Rename(uuid.NewString(), "NamaBaru")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	channelID := uuid.NewString()

	_, err := registry.Register(channelID, "Wira", "")
	req.NoError(err)

	removed, ok := registry.Remove(channelID)
	req.True(ok)
	req.Equal("Wira", removed.DisplayName)
	req.Equal(0, registry.Len())

	_, ok = registry.Remove(channelID)
	req.False(ok)
}

func TestRegistrySnapshotOrderedByJoinTime(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()

	var ids []string
	for i := 0; i < 5; i++ {
		id := uuid.NewString()
		ids = append(ids, id)
		_, err := registry.Register(id, fmt.Sprintf("user-%d", i), "")
		req.NoError(err)
	}

	snapshot := registry.Snapshot()
	req.Len(snapshot, 5)
	for i := 1; i < len(snapshot); i++ {
		req.False(snapshot[i].JoinedAt.Before(snapshot[i-1].JoinedAt))
	}

	seen := make(map[string]bool)
	for _, s := range snapshot {
		seen[s.ChannelID] = true
	}
	for _, id := range ids {
		req.True(seen[id])
	}
}

func TestRegistrySnapshotDoesNotAliasLiveSessions(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	channelID := uuid.NewString()

	_, err := registry.Register(channelID, "Wira", "")
	req.NoError(err)

	snapshot := registry.Snapshot()
	_, err = registry.Rename(channelID, "NamaBaru")
	req.NoError(err)

	req.Equal("Wira", snapshot[0].DisplayName)
}

func TestRegistryConcurrentRegistrations(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := registry.Register(uuid.NewString(), fmt.Sprintf("user-%d", i), "")
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	req.Equal(n, registry.Len())

	snapshot := registry.Snapshot()
	unique := make(map[string]bool, n)
	for _, s := range snapshot {
		unique[s.ChannelID] = true
	}
	req.Len(unique, n)
}
