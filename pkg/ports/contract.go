package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// RunSessionStoreContract verifies that a SessionStore implementation adheres
// to the interface contract. Adapters call it from their own tests.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	contactID := "contract-contact-" + time.Now().Format("20060102150405")
	flowID := "contract-flow"

	t.Run("Put and Get", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		session := &domain.Session{
			ContactID:      contactID,
			FlowID:         flowID,
			ChannelType:    "whatsapp",
			LastActivityAt: now,
			ExpiresAt:      now.Add(30 * time.Minute),
			TimeoutValue:   30,
			TimeoutUnit:    domain.TimeoutMinutes,
		}

		require.NoError(t, store.Put(ctx, session))

		loaded, err := store.Get(ctx, contactID, flowID)
		require.NoError(t, err)
		assert.Equal(t, session.ContactID, loaded.ContactID)
		assert.Equal(t, session.FlowID, loaded.FlowID)
		assert.Equal(t, session.ChannelType, loaded.ChannelType)
		assert.True(t, session.ExpiresAt.Equal(loaded.ExpiresAt))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody", flowID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Overwrite Refreshes", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		session := &domain.Session{
			ContactID:    contactID,
			FlowID:       flowID,
			ExpiresAt:    now.Add(time.Hour),
			TimeoutValue: 1,
			TimeoutUnit:  domain.TimeoutHours,
		}
		require.NoError(t, store.Put(ctx, session))

		loaded, err := store.Get(ctx, contactID, flowID)
		require.NoError(t, err)
		assert.True(t, loaded.ExpiresAt.Equal(now.Add(time.Hour)))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, contactID, flowID))

		_, err := store.Get(ctx, contactID, flowID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Idempotent.
		assert.NoError(t, store.Delete(ctx, contactID, flowID))
	})

	t.Run("List", func(t *testing.T) {
		session := &domain.Session{
			ContactID:    contactID,
			FlowID:       flowID,
			ExpiresAt:    time.Now().Add(time.Hour),
			TimeoutValue: 1,
			TimeoutUnit:  domain.TimeoutHours,
		}
		require.NoError(t, store.Put(ctx, session))

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, session.Key())

		require.NoError(t, store.Delete(ctx, contactID, flowID))
	})
}
