package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pixelbranch/image-edit-platform/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	return New(db)
}

func newChat(userID string) *model.Chat {
	now := time.Now()
	return &model.Chat{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     "Untitled",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newStoredEdit(chatID string, position int) *model.Edit {
	return &model.Edit{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ChatID:    chatID,
		Position:  position,
		CreatedAt: time.Now(),
	}
}

func TestChatCreateAndFind(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	chat := newChat("user-1")
	require.NoError(t, st.Chats().Create(ctx, chat))

	got, err := st.Chats().FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)

	_, err = st.Chats().FindByID(ctx, "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestChatPatchMissingRow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Chats().UpdateCursor(ctx, "missing", 1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	err = st.Chats().UpdateTitle(ctx, "missing", "new title")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestChatUpdateTouchesUpdatedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	chat := newChat("user-1")
	chat.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, st.Chats().Create(ctx, chat))

	require.NoError(t, st.Chats().UpdateTitle(ctx, chat.ID, "renamed"))

	got, err := st.Chats().FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.True(t, got.UpdatedAt.After(chat.UpdatedAt))
}

func TestListByUserOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	older := newChat("user-1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newChat("user-1")
	other := newChat("user-2")
	require.NoError(t, st.Chats().Create(ctx, older))
	require.NoError(t, st.Chats().Create(ctx, newer))
	require.NoError(t, st.Chats().Create(ctx, other))

	chats, err := st.Chats().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, newer.ID, chats[0].ID)
	assert.Equal(t, older.ID, chats[1].ID)
}

func TestEditsListByChatOrdersByPosition(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	chat := newChat("user-1")
	require.NoError(t, st.Chats().Create(ctx, chat))

	// Insert out of order; reads come back position-sorted.
	for _, pos := range []int{2, 0, 1} {
		require.NoError(t, st.Edits().Create(ctx, newStoredEdit(chat.ID, pos)))
	}

	edits, err := st.Edits().ListByChat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, edits, 3)
	for i, edit := range edits {
		assert.Equal(t, i, edit.Position)
	}
}

func TestCountByChats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := newChat("user-1")
	b := newChat("user-1")
	require.NoError(t, st.Chats().Create(ctx, a))
	require.NoError(t, st.Chats().Create(ctx, b))
	for i := 0; i < 3; i++ {
		require.NoError(t, st.Edits().Create(ctx, newStoredEdit(a.ID, i)))
	}
	require.NoError(t, st.Edits().Create(ctx, newStoredEdit(b.ID, 0)))

	counts, err := st.Edits().CountByChats(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[a.ID])
	assert.Equal(t, 1, counts[b.ID])
	assert.Zero(t, counts["missing"])

	counts, err = st.Edits().CountByChats(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	chat := newChat("user-1")
	boom := errors.New("boom")

	err := st.Transaction(ctx, func(tx *Store) error {
		if err := tx.Chats().Create(ctx, chat); err != nil {
			return err
		}
		if err := tx.Edits().Create(ctx, newStoredEdit(chat.ID, 0)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing from the failed transaction is visible.
	_, err = st.Chats().FindByID(ctx, chat.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	edits, err := st.Edits().ListByChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestUserUpsertAndSetAPIKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Users().SetAPIKey(ctx, "user-1", []byte("ct"), []byte("n"))
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	now := time.Now()
	user := &model.User{ID: "user-1", Email: "a@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Users().Upsert(ctx, user))
	// Second upsert with the same id updates in place.
	user.Email = "b@example.com"
	require.NoError(t, st.Users().Upsert(ctx, user))

	require.NoError(t, st.Users().SetAPIKey(ctx, "user-1", []byte("ct"), []byte("n")))

	got, err := st.Users().FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", got.Email)
	assert.Equal(t, []byte("ct"), got.EncryptedAPIKey)
	assert.Equal(t, []byte("n"), got.APIKeyNonce)
}
