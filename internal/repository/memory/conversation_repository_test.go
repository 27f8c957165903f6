package memory

import (
	"context"
	"testing"
	"time"

	"restaurant-booking-be/pkg/booking/session"
	"restaurant-booking-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository(t *testing.T) {
	repo := NewConversationRepository(time.Minute)
	ctx := context.Background()

	_, err := repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)

	st := store.NewConversationState("s-1", "u-1")
	st.Intent = store.IntentGetBooking
	st.FormData["booking_reference"] = "ABC1234"
	st.Version = 1
	require.NoError(t, repo.Save(ctx, st))

	// Mutating after save must not leak into the stored snapshot.
	st.FormData["booking_reference"] = "CHANGED"

	got, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, store.IntentGetBooking, got.Intent)
	assert.Equal(t, "ABC1234", got.FormData["booking_reference"])

	got.FormData["booking_reference"] = "OTHER"
	again, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "ABC1234", again.FormData["booking_reference"])

	require.NoError(t, repo.Delete(ctx, "s-1"))
	_, err = repo.Load(ctx, "s-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestConversationRepository_SaveComparesVersion(t *testing.T) {
	repo := NewConversationRepository(time.Minute)
	ctx := context.Background()

	st := store.NewConversationState("s-1", "u-1")
	assert.ErrorIs(t, repo.Save(ctx, st), session.ErrStaleVersion, "a new session starts at version 1")

	st.Version = 1
	require.NoError(t, repo.Save(ctx, st))

	// Two turns loaded version 1; only the first save lands.
	first, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	second, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)

	first.Version++
	first.FormData["party_size"] = "2"
	require.NoError(t, repo.Save(ctx, first))

	second.Version++
	second.FormData["party_size"] = "9"
	assert.ErrorIs(t, repo.Save(ctx, second), session.ErrStaleVersion)

	got, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "2", got.FormData["party_size"])

	require.NoError(t, repo.Delete(ctx, "s-1"))
	assert.ErrorIs(t, repo.Save(ctx, second), session.ErrStaleVersion, "a deleted session is not resurrected")
}
