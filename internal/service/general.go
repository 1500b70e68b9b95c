package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/linkmark-app/linkmark-back/internal/db"
)

var (
	ErrNotFound                  = errors.New("record not found")
	ErrLoginUserNotFound         = errors.New("user not found")
	ErrLoginPasswordDoesNotMatch = errors.New("password does not match")
	ErrUsernameTaken             = errors.New("username is already taken")
	ErrAlreadyFriend             = errors.New("already a friend")
)

type General struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewGeneral(db *gorm.DB, l *zap.SugaredLogger) *General {
	return &General{
		db:     db,
		logger: l,
	}
}

func (s *General) UserByUsername(username string) (*db.User, error) {
	user := db.User{}
	res := s.db.Where("username = ?", username).First(&user)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find user")
	}
	return &user, nil
}

func (s *General) UserByToken(token string) (*db.User, error) {
	user := db.User{}
	res := s.db.Where("token = ?", token).First(&user)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find user by token")
	}
	return &user, nil
}

func (s *General) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), 14)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *General) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
