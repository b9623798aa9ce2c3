package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jcooky/go-din"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/internal/mylog"
)

var (
	Key = din.NewRandomName()
)

func OpenDB(databaseUrl string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseUrl, "postgres://") || strings.HasPrefix(databaseUrl, "postgresql://") {
		dialector = postgres.Open(databaseUrl)
	} else {
		dialector = sqlite.Open(databaseUrl)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrapf(err, "failed to close db")
	}

	return nil
}

func init() {
	din.Register(Key, func(c *din.Container) (any, error) {
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		cfg, err := din.GetT[*config.ServerConfig](c)
		if err != nil {
			return nil, err
		}

		databaseUrl := cfg.DatabaseUrl
		if c.Env == din.EnvTest {
			// Fresh throwaway database per test container.
			databaseUrl = filepath.Join(os.TempDir(), fmt.Sprintf("chatrelay-test-%s.db", uuid.NewString()))
		}

		logger.Info("initialize database", "url", databaseUrl)
		db, err := OpenDB(databaseUrl)
		if err != nil {
			return nil, err
		}

		if cfg.DatabaseAutoMigrate || c.Env == din.EnvTest {
			if err := AutoMigrate(c, db); err != nil {
				return nil, errors.Wrapf(err, "failed to migrate database")
			}
		}

		go func() {
			<-c.Done()
			if err := CloseDB(db); err != nil {
				logger.Warn("failed to close database", "err", err)
			}
			if c.Env == din.EnvTest {
				if err := os.Remove(databaseUrl); err != nil && !os.IsNotExist(err) {
					logger.Warn("failed to remove test database", "err", err)
				}
			}
			logger.Info("database closed")
		}()

		return db, nil
	})
}
