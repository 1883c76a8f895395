package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/pixelbranch/image-edit-platform/internal/model"
)

// EditRepository persists edit records. Edits are insert-only; they are never
// updated or deleted.
type EditRepository interface {
	Create(ctx context.Context, edit *model.Edit) error
	ListByChat(ctx context.Context, chatID string) ([]model.Edit, error)
	CountByChats(ctx context.Context, chatIDs []string) (map[string]int, error)
}

type editRepository struct {
	db *gorm.DB
}

func (r *editRepository) Create(ctx context.Context, edit *model.Edit) error {
	return r.db.WithContext(ctx).Create(edit).Error
}

func (r *editRepository) ListByChat(ctx context.Context, chatID string) ([]model.Edit, error) {
	var edits []model.Edit
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("position ASC").
		Find(&edits).Error
	if err != nil {
		return nil, err
	}
	return edits, nil
}

func (r *editRepository) CountByChats(ctx context.Context, chatIDs []string) (map[string]int, error) {
	if len(chatIDs) == 0 {
		return map[string]int{}, nil
	}

	type row struct {
		ChatID string
		N      int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Edit{}).
		Select("chat_id, COUNT(*) AS n").
		Where("chat_id IN ?", chatIDs).
		Group("chat_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.ChatID] = r.N
	}
	return counts, nil
}
