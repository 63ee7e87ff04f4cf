package registry

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

func TestMemoryMintAndQuery(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()

    require.NoError(t, m.Mint(ctx, "alice", 0, "ipfs://a"))

    owner, err := m.OwnerOf(ctx, 0)
    require.NoError(t, err)
    assert.Equal(t, "alice", string(owner))

    uri, err := m.MetadataOf(ctx, 0)
    require.NoError(t, err)
    assert.Equal(t, "ipfs://a", uri)
    assert.Equal(t, 1, m.BalanceOf("alice"))

    assert.ErrorIs(t, m.Mint(ctx, "bob", 0, "ipfs://b"), ErrTokenExists)
    assert.ErrorIs(t, m.Mint(ctx, "", 1, "ipfs://b"), ErrInvalidReceiver)

    _, err = m.OwnerOf(ctx, 7)
    assert.ErrorIs(t, err, ErrNonexistentToken)
    _, err = m.MetadataOf(ctx, 7)
    assert.ErrorIs(t, err, ErrNonexistentToken)
}

func TestMemoryTransfer(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    require.NoError(t, m.Mint(ctx, "alice", 3, "ipfs://x"))

    assert.ErrorIs(t, m.Transfer(ctx, "bob", "carol", 3), ErrNotOwner)
    assert.ErrorIs(t, m.Transfer(ctx, "alice", "", 3), ErrInvalidReceiver)
    assert.ErrorIs(t, m.Transfer(ctx, "alice", "bob", 9), ErrNonexistentToken)

    require.NoError(t, m.Transfer(ctx, "alice", "bob", 3))
    owner, err := m.OwnerOf(ctx, 3)
    require.NoError(t, err)
    assert.Equal(t, "bob", string(owner))
    assert.Equal(t, 0, m.BalanceOf("alice"))

    uri, err := m.MetadataOf(ctx, 3)
    require.NoError(t, err)
    assert.Equal(t, "ipfs://x", uri)
}

func TestMemoryTokensOf(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    require.NoError(t, m.Mint(ctx, "alice", 2, "u"))
    require.NoError(t, m.Mint(ctx, "bob", 1, "u"))
    require.NoError(t, m.Mint(ctx, "alice", 0, "u"))

    ids, err := m.TokensOf(ctx, "alice")
    require.NoError(t, err)
    assert.Equal(t, []model.TicketID{0, 2}, ids)

    ids, err = m.TokensOf(ctx, "carol")
    require.NoError(t, err)
    assert.Empty(t, ids)
}
