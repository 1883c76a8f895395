package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pixelbranch/image-edit-platform/internal/model"
)

// ChatRepository persists chat records. FindByID returns
// gorm.ErrRecordNotFound for absent rows; callers translate to the typed
// taxonomy at the engine boundary.
type ChatRepository interface {
	Create(ctx context.Context, chat *model.Chat) error
	FindByID(ctx context.Context, id string) (*model.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]model.Chat, error)
	UpdateCursor(ctx context.Context, id string, index int) error
	UpdateTitle(ctx context.Context, id string, title string) error
}

type chatRepository struct {
	db *gorm.DB
}

func (r *chatRepository) Create(ctx context.Context, chat *model.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *chatRepository) FindByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) ListByUser(ctx context.Context, userID string) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) UpdateCursor(ctx context.Context, id string, index int) error {
	return r.patch(ctx, id, map[string]any{"current_edit_index": index})
}

func (r *chatRepository) UpdateTitle(ctx context.Context, id string, title string) error {
	return r.patch(ctx, id, map[string]any{"title": title})
}

func (r *chatRepository) patch(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
