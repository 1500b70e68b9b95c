package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/linkmark-app/linkmark-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Username  string `gorm:"unique;not null"`
		Email     string `gorm:"not null"`
		Password  string `gorm:"not null"`
		Token     string `gorm:"not null"`
		Bookmarks []Bookmark
	}

	Link struct {
		GormForkedModel
		URL string `gorm:"unique;not null"`
	}

	Tag struct {
		GormForkedModel
		Name      string     `gorm:"unique;not null"`
		Bookmarks []Bookmark `gorm:"many2many:bookmark_tags;"`
	}

	Bookmark struct {
		GormForkedModel
		Title  string
		UserID uint64 `gorm:"not null;uniqueIndex:uidx_user_link"`
		User   User
		LinkID uint64 `gorm:"not null;uniqueIndex:uidx_user_link"`
		Link   Link
		Tags   []Tag `gorm:"many2many:bookmark_tags;"`
	}

	SharedBookmark struct {
		GormForkedModel
		BookmarkID uint64 `gorm:"not null;uniqueIndex"`
		Bookmark   Bookmark
		Votes      int       `gorm:"not null;default:0"`
		Date       time.Time `gorm:"not null"`
		UsersVoted []User    `gorm:"many2many:shared_bookmark_votes;"`
	}

	Friendship struct {
		GormForkedModel
		FromUserID uint64 `gorm:"not null;uniqueIndex:uidx_from_to"`
		FromUser   User
		ToUserID   uint64 `gorm:"not null;uniqueIndex:uidx_from_to"`
		ToUser     User
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	models := []interface{}{
		&User{},
		&Link{},
		&Tag{},
		&Bookmark{},
		&SharedBookmark{},
		&Friendship{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return errors.Wrapf(err, "migrate %T", model)
		}
	}
	return nil
}
