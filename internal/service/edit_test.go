package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/internal/history"
	"github.com/pixelbranch/image-edit-platform/internal/image"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/store"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// fakeImageClient records calls and returns canned results.
type fakeImageClient struct {
	calls  int
	lastIn string
	fail   error
}

func (f *fakeImageClient) Edit(_ context.Context, inputImageID, prompt string) (*image.Result, error) {
	f.calls++
	f.lastIn = inputImageID
	if f.fail != nil {
		return nil, f.fail
	}
	return &image.Result{
		OutputImageID: fmt.Sprintf("out-%d", f.calls),
		ResponseText:  "applied: " + prompt,
	}, nil
}

func (f *fakeImageClient) Generate(_ context.Context, prompt string) (*image.Result, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return &image.Result{
		OutputImageID: fmt.Sprintf("gen-%d", f.calls),
		ResponseText:  "generated: " + prompt,
	}, nil
}

func (f *fakeImageClient) Name() string { return "fake" }

// fixedResolver hands every user the same client.
type fixedResolver struct {
	client image.Client
}

func (r fixedResolver) For(context.Context, string) (image.Client, error) {
	return r.client, nil
}

// fakeBlobChecker treats every id as present unless listed as missing.
type fakeBlobChecker struct {
	missing map[string]bool
}

func (f *fakeBlobChecker) Exists(_ context.Context, id string) (bool, error) {
	return !f.missing[id], nil
}

// recordingPublisher collects published events in order.
type recordingPublisher struct {
	events []model.ChatEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event *model.ChatEvent) (uint64, error) {
	p.events = append(p.events, *event)
	return uint64(len(p.events)), nil
}

type editFixture struct {
	svc    *EditService
	engine *history.Engine
	client *fakeImageClient
	blobs  *fakeBlobChecker
	pub    *recordingPublisher
}

func newEditFixture(t *testing.T) *editFixture {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	st := store.New(db)

	log := logger.NewNop()
	engine := history.New(st, log)
	client := &fakeImageClient{}
	blobs := &fakeBlobChecker{missing: map[string]bool{}}
	pub := &recordingPublisher{}

	return &editFixture{
		svc:    NewEditService(engine, fixedResolver{client: client}, blobs, pub, log),
		engine: engine,
		client: client,
		blobs:  blobs,
		pub:    pub,
	}
}

func (f *editFixture) seedChat(t *testing.T, userID string, prompts ...string) string {
	t.Helper()
	inputs := make([]model.EditInput, len(prompts))
	for i, p := range prompts {
		inputs[i] = model.EditInput{
			UserPrompt:    p,
			InputImageID:  fmt.Sprintf("seed-in-%d", i),
			OutputImageID: fmt.Sprintf("seed-out-%d", i),
		}
	}
	chatID, err := f.engine.CreateChat(context.Background(), userID, "", inputs, len(inputs)-1)
	require.NoError(t, err)
	return chatID
}

func TestSubmitEditAppendsWhenOnLatest(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	chatID := f.seedChat(t, "user-1", "first")

	resp, err := f.svc.SubmitEdit(ctx, chatID, "user-1", "add a hat")
	require.NoError(t, err)
	assert.Equal(t, chatID, resp.ChatID)
	assert.False(t, resp.IsNewChat)

	detail, err := f.engine.GetDetail(ctx, chatID, "user-1")
	require.NoError(t, err)
	require.Len(t, detail.Edits, 2)
	assert.True(t, detail.IsOnLatest)
	// New edit's input is the previous edit's output.
	assert.Equal(t, "seed-out-0", detail.CurrentEdit.InputImageID)
	assert.Equal(t, "out-1", detail.CurrentEdit.OutputImageID)
	assert.Equal(t, "seed-out-0", f.client.lastIn)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, model.ChatEventAppended, f.pub.events[0].Type)
}

func TestSubmitEditForksWhenBehindLatest(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	chatID := f.seedChat(t, "user-1", "first", "second")

	// Step back so the cursor is on edit 0.
	_, err := f.engine.Navigate(ctx, chatID, "user-1", model.DirectionBack)
	require.NoError(t, err)

	resp, err := f.svc.SubmitEdit(ctx, chatID, "user-1", "try red instead")
	require.NoError(t, err)
	assert.True(t, resp.IsNewChat)
	assert.NotEqual(t, chatID, resp.ChatID)

	// Original chat unchanged: still 2 edits, cursor still on 0.
	original, err := f.engine.GetDetail(ctx, chatID, "user-1")
	require.NoError(t, err)
	assert.Len(t, original.Edits, 2)
	assert.Equal(t, 0, original.Chat.CurrentEditIndex)

	// Forked chat: edit 0's copy plus the new edit, cursor on the new one.
	forked, err := f.engine.GetDetail(ctx, resp.ChatID, "user-1")
	require.NoError(t, err)
	require.Len(t, forked.Edits, 2)
	assert.Equal(t, "first", forked.Edits[0].UserPrompt)
	assert.Equal(t, "try red instead", forked.Edits[1].UserPrompt)
	assert.True(t, forked.IsOnLatest)

	// The image call used the image at the fork point.
	assert.Equal(t, "seed-out-0", f.client.lastIn)
}

func TestSubmitEditRejectsEmptyPrompt(t *testing.T) {
	f := newEditFixture(t)
	chatID := f.seedChat(t, "user-1", "first")

	_, err := f.svc.SubmitEdit(context.Background(), chatID, "user-1", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Zero(t, f.client.calls)
}

func TestSubmitEditFailureLeavesChatUnchanged(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	chatID := f.seedChat(t, "user-1", "first")
	f.client.fail = apperr.ExternalService("image provider unavailable", nil)

	_, err := f.svc.SubmitEdit(ctx, chatID, "user-1", "add a hat")
	assert.True(t, apperr.IsKind(err, apperr.KindExternalService))

	detail, err := f.engine.GetDetail(ctx, chatID, "user-1")
	require.NoError(t, err)
	assert.Len(t, detail.Edits, 1)
	assert.Empty(t, f.pub.events)
}

func TestForkFromFailureLeavesOriginalUnchanged(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	chatID := f.seedChat(t, "user-1", "first", "second")
	f.client.fail = apperr.ExternalService("image provider unavailable", nil)

	_, err := f.svc.ForkFrom(ctx, chatID, "user-1", 0, "try red")
	assert.True(t, apperr.IsKind(err, apperr.KindExternalService))

	detail, err := f.engine.GetDetail(ctx, chatID, "user-1")
	require.NoError(t, err)
	assert.Len(t, detail.Edits, 2)
	assert.Equal(t, 1, detail.Chat.CurrentEditIndex)
}

func TestForkFromPublishesForkedAndCreated(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	chatID := f.seedChat(t, "user-1", "first", "second")

	newChatID, err := f.svc.ForkFrom(ctx, chatID, "user-1", 0, "try red")
	require.NoError(t, err)

	require.Len(t, f.pub.events, 2)
	assert.Equal(t, model.ChatEventForked, f.pub.events[0].Type)
	assert.Equal(t, chatID, f.pub.events[0].ChatID)
	assert.Equal(t, newChatID, f.pub.events[0].ForkedChatID)
	assert.Equal(t, model.ChatEventCreated, f.pub.events[1].Type)
	assert.Equal(t, newChatID, f.pub.events[1].ChatID)
}

func TestForkFromRejectsBadIndex(t *testing.T) {
	f := newEditFixture(t)
	chatID := f.seedChat(t, "user-1", "first")

	_, err := f.svc.ForkFrom(context.Background(), chatID, "user-1", 3, "x")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Zero(t, f.client.calls)
}

func TestCreateFromUpload(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()

	chatID, err := f.svc.CreateFromUpload(ctx, "user-1", "upload-1", "remove background")
	require.NoError(t, err)

	detail, err := f.engine.GetDetail(ctx, chatID, "user-1")
	require.NoError(t, err)
	require.Len(t, detail.Edits, 1)
	// The upload is the input; the function's result is the output.
	assert.Equal(t, "upload-1", detail.CurrentEdit.InputImageID)
	assert.Equal(t, "out-1", detail.CurrentEdit.OutputImageID)
	assert.Equal(t, model.DefaultChatTitle, detail.Chat.Title)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, model.ChatEventCreated, f.pub.events[0].Type)
}

func TestCreateFromUploadRejectsMissingImage(t *testing.T) {
	f := newEditFixture(t)
	f.blobs.missing["upload-1"] = true

	_, err := f.svc.CreateFromUpload(context.Background(), "user-1", "upload-1", "remove background")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	// No billable call for an id that was never uploaded.
	assert.Zero(t, f.client.calls)
}

func TestCreateFromUploadValidation(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFromUpload(ctx, "user-1", "", "prompt")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.CreateFromUpload(ctx, "user-1", "upload-1", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Zero(t, f.client.calls)
}

func TestCreateFromGeneration(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()

	chatID, err := f.svc.CreateFromGeneration(ctx, "user-1", "a red bicycle")
	require.NoError(t, err)

	detail, err := f.engine.GetDetail(ctx, chatID, "user-1")
	require.NoError(t, err)
	require.Len(t, detail.Edits, 1)
	// A generated image is its own input.
	assert.Equal(t, detail.CurrentEdit.OutputImageID, detail.CurrentEdit.InputImageID)
	assert.Equal(t, "gen-1", detail.CurrentEdit.OutputImageID)
}
