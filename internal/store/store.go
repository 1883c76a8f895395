package store

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle. Passing a Store
// around (instead of a package-level handle) keeps construction explicit.
type Store struct {
	db    *gorm.DB
	chats ChatRepository
	edits EditRepository
	users UserRepository
}

// New creates a Store over an open database.
func New(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		chats: &chatRepository{db: db},
		edits: &editRepository{db: db},
		users: &userRepository{db: db},
	}
}

// Chats returns the chat repository.
func (s *Store) Chats() ChatRepository { return s.chats }

// Edits returns the edit repository.
func (s *Store) Edits() EditRepository { return s.edits }

// Users returns the user repository.
func (s *Store) Users() UserRepository { return s.users }

// Transaction runs fn with a Store scoped to one database transaction.
// Either every write inside fn becomes visible together or none do; a
// concurrent reader never observes a partially created chat.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
