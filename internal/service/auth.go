package service

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/linkmark-app/linkmark-back/internal/db"
)

func (s *General) Register(username, email, pass string) (*db.User, error) {
	existing := db.User{}
	res := s.db.Where("username = ?", username).First(&existing)
	if res.Error == nil {
		return nil, ErrUsernameTaken
	}
	if res.Error != gorm.ErrRecordNotFound {
		return nil, errors.Wrap(res.Error, "check username")
	}

	hash, err := s.bcryptGen(pass)
	if err != nil {
		return nil, errors.Wrap(err, "bcryptGen")
	}

	user := db.User{
		Username: username,
		Email:    email,
		Password: hash,
		Token:    uuid.New().String(),
	}
	if res := s.db.Create(&user); res.Error != nil {
		return nil, errors.Wrap(res.Error, "create user")
	}
	return &user, nil
}

func (s *General) Login(username, pass string) (string, error) {
	user := db.User{}
	res := s.db.Where("username = ?", username).First(&user)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return "", ErrLoginUserNotFound
		}
		return "", res.Error
	}

	if err := s.bcryptCheck(user.Password, pass); err != nil {
		return "", ErrLoginPasswordDoesNotMatch
	}

	token := uuid.New().String()
	res = s.db.Model(&user).Update("token", token)
	if res.Error != nil {
		return "", errors.Wrap(res.Error, "update token")
	}

	return token, nil
}

// Logout rotates the session token so outstanding sessions stop resolving.
func (s *General) Logout(user *db.User) error {
	res := s.db.Model(user).Update("token", uuid.New().String())
	if res.Error != nil {
		return errors.Wrap(res.Error, "rotate token")
	}
	return nil
}
