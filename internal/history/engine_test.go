package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/store"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

const (
	ownerID    = "user-1"
	strangerID = "user-2"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	st := store.New(db)
	return New(st, logger.NewNop()), st
}

func editInput(prompt, in, out string) model.EditInput {
	return model.EditInput{
		UserPrompt:     prompt,
		InputImageID:   in,
		OutputImageID:  out,
		AIResponseText: "done: " + prompt,
	}
}

func TestCreateChatRequiresEdits(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.CreateChat(ctx, ownerID, "", nil, 0)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateChatRejectsBadStartIndex(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	edits := []model.EditInput{editInput("make it blue", "img1", "img2")}

	_, err := engine.CreateChat(ctx, ownerID, "", edits, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = engine.CreateChat(ctx, ownerID, "", edits, -1)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateChatDefaultsTitle(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "  ", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	detail, err := engine.GetDetail(ctx, chatID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultChatTitle, detail.Chat.Title)
}

func TestGetDetailRoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	detail, err := engine.GetDetail(ctx, chatID, ownerID)
	require.NoError(t, err)

	assert.Equal(t, "make it blue", detail.CurrentEdit.UserPrompt)
	assert.Equal(t, "img1", detail.CurrentEdit.InputImageID)
	assert.Equal(t, "img2", detail.CurrentEdit.OutputImageID)
	assert.True(t, detail.IsOnLatest)
	assert.Equal(t, model.Position{Current: 1, Total: 1}, detail.Position)
	assert.Len(t, detail.Edits, 1)
	assert.Equal(t, 0, detail.Chat.CurrentEditIndex)
}

func TestGetDetailNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.GetDetail(ctx, "no-such-chat", ownerID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestGetDetailNotAuthorized(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	_, err = engine.GetDetail(ctx, chatID, strangerID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotAuthorized))
}

func TestAppendMovesCursorToTip(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	_, err = engine.AppendEdit(ctx, chatID, editInput("add a hat", "img2", "img3"))
	require.NoError(t, err)

	detail, err := engine.GetDetail(ctx, chatID, ownerID)
	require.NoError(t, err)
	assert.Len(t, detail.Edits, 2)
	assert.Equal(t, 1, detail.Chat.CurrentEditIndex)
	assert.True(t, detail.IsOnLatest)
	assert.Equal(t, model.Position{Current: 2, Total: 2}, detail.Position)

	// Appending after navigating back still jumps the cursor to the tip.
	_, err = engine.Navigate(ctx, chatID, ownerID, model.DirectionBack)
	require.NoError(t, err)
	_, err = engine.AppendEdit(ctx, chatID, editInput("remove the hat", "img3", "img4"))
	require.NoError(t, err)

	detail, err = engine.GetDetail(ctx, chatID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Chat.CurrentEditIndex)
	assert.True(t, detail.IsOnLatest)
}

func TestAppendToMissingChat(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.AppendEdit(ctx, "no-such-chat", editInput("x", "a", "b"))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestNavigateBounds(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
		editInput("add a hat", "img2", "img3"),
	}, 1)
	require.NoError(t, err)

	// Forward at the tip is a no-op, not an error.
	index, err := engine.Navigate(ctx, chatID, ownerID, model.DirectionForward)
	require.NoError(t, err)
	assert.Nil(t, index)

	index, err = engine.Navigate(ctx, chatID, ownerID, model.DirectionBack)
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, 0, *index)

	// Back at index 0 is a no-op and leaves state unchanged.
	index, err = engine.Navigate(ctx, chatID, ownerID, model.DirectionBack)
	require.NoError(t, err)
	assert.Nil(t, index)

	detail, err := engine.GetDetail(ctx, chatID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 0, detail.Chat.CurrentEditIndex)
	assert.False(t, detail.IsOnLatest)

	index, err = engine.Navigate(ctx, chatID, ownerID, model.DirectionForward)
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, 1, *index)
}

func TestNavigateRejectsUnknownDirection(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	_, err = engine.Navigate(ctx, chatID, ownerID, model.Direction("sideways"))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestNavigateOwnership(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	_, err = engine.Navigate(ctx, chatID, strangerID, model.DirectionBack)
	assert.True(t, apperr.IsKind(err, apperr.KindNotAuthorized))
}

func TestForkCopiesPrefixAndLeavesOriginalUntouched(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "original", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
		editInput("add a hat", "img2", "img3"),
		editInput("add sunglasses", "img3", "img4"),
	}, 0)
	require.NoError(t, err)

	before, err := engine.GetDetail(ctx, chatID, ownerID)
	require.NoError(t, err)

	newChatID, err := engine.ForkFrom(ctx, chatID, ownerID, 1, editInput("make it red", "img3", "img5"))
	require.NoError(t, err)
	require.NotEqual(t, chatID, newChatID)

	// New chat: history = original[0..1] + new edit, cursor on the newest.
	forked, err := engine.GetDetail(ctx, newChatID, ownerID)
	require.NoError(t, err)
	require.Len(t, forked.Edits, 3)
	assert.Equal(t, 2, forked.Chat.CurrentEditIndex)
	assert.True(t, forked.IsOnLatest)
	assert.Equal(t, "make it blue", forked.Edits[0].UserPrompt)
	assert.Equal(t, "add a hat", forked.Edits[1].UserPrompt)
	assert.Equal(t, "make it red", forked.Edits[2].UserPrompt)

	// Copied edits have fresh identities and belong to the new chat.
	for i, edit := range forked.Edits {
		assert.Equal(t, newChatID, edit.ChatID)
		assert.Equal(t, i, edit.Position)
		for _, orig := range before.Edits {
			assert.NotEqual(t, orig.ID, edit.ID)
		}
	}

	// Original chat is byte-identical before and after.
	after, err := engine.GetDetail(ctx, chatID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, before.Chat, after.Chat)
	assert.Equal(t, before.Edits, after.Edits)
}

func TestForkIndexOutOfRange(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	_, err = engine.ForkFrom(ctx, chatID, ownerID, 1, editInput("x", "a", "b"))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = engine.ForkFrom(ctx, chatID, ownerID, -1, editInput("x", "a", "b"))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestForkOwnership(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	_, err = engine.ForkFrom(ctx, chatID, strangerID, 0, editInput("x", "a", "b"))
	assert.True(t, apperr.IsKind(err, apperr.KindNotAuthorized))
}

// Cursor stays inside [0, len) across a random-ish walk of operations.
func TestCursorInvariantAcrossOperations(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("e0", "a", "b"),
	}, 0)
	require.NoError(t, err)

	steps := []func() error{
		func() error { _, err := engine.AppendEdit(ctx, chatID, editInput("e1", "b", "c")); return err },
		func() error { _, err := engine.Navigate(ctx, chatID, ownerID, model.DirectionBack); return err },
		func() error { _, err := engine.Navigate(ctx, chatID, ownerID, model.DirectionBack); return err },
		func() error { _, err := engine.AppendEdit(ctx, chatID, editInput("e2", "c", "d")); return err },
		func() error { _, err := engine.Navigate(ctx, chatID, ownerID, model.DirectionForward); return err },
		func() error { _, err := engine.Navigate(ctx, chatID, ownerID, model.DirectionBack); return err },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)

		detail, err := engine.GetDetail(ctx, chatID, ownerID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, detail.Chat.CurrentEditIndex, 0)
		assert.Less(t, detail.Chat.CurrentEditIndex, len(detail.Edits))
		for j, edit := range detail.Edits {
			assert.Equal(t, j, edit.Position)
		}
	}
}

func TestGetDetailSurfacesCorruptCursor(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	chatID, err := engine.CreateChat(ctx, ownerID, "", []model.EditInput{
		editInput("make it blue", "img1", "img2"),
	}, 0)
	require.NoError(t, err)

	// Force the cursor out of range behind the engine's back.
	require.NoError(t, st.Chats().UpdateCursor(ctx, chatID, 5))

	_, err = engine.GetDetail(ctx, chatID, ownerID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
