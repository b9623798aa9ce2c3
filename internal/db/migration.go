package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/chatrelay/chatrelay/entity"
	"github.com/chatrelay/chatrelay/errors"
)

func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	_, tx := OpenSession(ctx, db)

	return errors.WithStack(tx.AutoMigrate(
		&entity.Thread{},
		&entity.Message{},
	))
}

func DropAll(ctx context.Context, db *gorm.DB) error {
	_, tx := OpenSession(ctx, db)
	return errors.WithStack(tx.Migrator().DropTable(
		&entity.Message{},
		&entity.Thread{},
	))
}
