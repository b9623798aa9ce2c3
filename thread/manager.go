package thread

import (
	"context"
	"time"

	"github.com/jcooky/go-din"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatrelay/chatrelay/entity"
	"github.com/chatrelay/chatrelay/errors"
	"github.com/chatrelay/chatrelay/internal/db"
	"github.com/chatrelay/chatrelay/internal/mylog"
)

type (
	// Key identifies one thread. Every operation is scoped by it; a
	// thread is never visible outside its owning user.
	Key struct {
		ThreadID string
		UserID   string
	}

	Manager interface {
		// GetThreads lists a user's threads, most recently active first.
		GetThreads(ctx context.Context, userID string) ([]entity.Thread, error)
		// GetThread loads one thread with its messages in conversation order.
		GetThread(ctx context.Context, key Key) (*entity.Thread, error)
		// AppendTurn upserts the thread and appends the user/assistant
		// pair atomically. Appends for the same key never interleave.
		AppendTurn(ctx context.Context, key Key, userEmail string, userMsg, assistantMsg entity.Message) (*entity.Thread, error)
		// DeleteThread removes the thread and its messages irreversibly.
		DeleteThread(ctx context.Context, key Key) error
	}

	manager struct {
		logger *mylog.Logger
		db     *gorm.DB
		locks  keyedMutex
	}
)

func (s *manager) GetThreads(ctx context.Context, userID string) ([]entity.Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var threads []entity.Thread
	if err := tx.Where("user_id = ?", userID).Order("updated_at DESC").Find(&threads).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to find threads")
	}

	return threads, nil
}

func (s *manager) GetThread(ctx context.Context, key Key) (*entity.Thread, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var thread entity.Thread
	r := tx.Preload("Messages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).Where("thread_key = ? AND user_id = ?", key.ThreadID, key.UserID).Find(&thread)
	if r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find thread")
	} else if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "thread not found")
	}

	return &thread, nil
}

func (s *manager) AppendTurn(
	ctx context.Context,
	key Key,
	userEmail string,
	userMsg, assistantMsg entity.Message,
) (*entity.Thread, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	_, tx := db.OpenSession(ctx, s.db)

	var thread entity.Thread
	if err := tx.Transaction(func(tx *gorm.DB) error {
		stmt := tx.Where("thread_key = ? AND user_id = ?", key.ThreadID, key.UserID)
		if tx.Dialector.Name() == "postgres" {
			stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		r := stmt.Find(&thread)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find thread")
		}
		if r.RowsAffected == 0 {
			thread = entity.Thread{
				ThreadKey: key.ThreadID,
				UserID:    key.UserID,
				UserEmail: userEmail,
				Title:     entity.DeriveTitle(userMsg.Content),
			}
			if err := tx.Create(&thread).Error; err != nil {
				return errors.Wrapf(err, "failed to create thread")
			}
		}

		userMsg.ThreadID = thread.ID
		if err := tx.Create(&userMsg).Error; err != nil {
			return errors.Wrapf(err, "failed to save user message")
		}

		assistantMsg.ThreadID = thread.ID
		if err := tx.Create(&assistantMsg).Error; err != nil {
			return errors.Wrapf(err, "failed to save assistant message")
		}

		thread.UpdatedAt = time.Now()
		if err := tx.Model(&thread).Update("updated_at", thread.UpdatedAt).Error; err != nil {
			return errors.Wrapf(err, "failed to touch thread")
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return &thread, nil
}

func (s *manager) DeleteThread(ctx context.Context, key Key) error {
	unlock := s.locks.Lock(key)
	defer unlock()

	_, tx := db.OpenSession(ctx, s.db)

	return tx.Transaction(func(tx *gorm.DB) error {
		var thread entity.Thread
		r := tx.Where("thread_key = ? AND user_id = ?", key.ThreadID, key.UserID).Find(&thread)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find thread")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "thread not found")
		}

		// Hard delete so the (thread_key, user_id) pair can be reused.
		if err := tx.Unscoped().Where("thread_id = ?", thread.ID).Delete(&entity.Message{}).Error; err != nil {
			return errors.Wrapf(err, "failed to delete messages")
		}
		if err := tx.Unscoped().Delete(&thread).Error; err != nil {
			return errors.Wrapf(err, "failed to delete thread")
		}

		s.logger.Debug("thread deleted", "thread_key", key.ThreadID, "user_id", key.UserID)
		return nil
	})
}

func init() {
	din.RegisterT(func(c *din.Container) (Manager, error) {
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		return &manager{
			logger: logger,
			db:     din.MustGet[*gorm.DB](c, db.Key),
		}, nil
	})
}
