package service

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/linkmark-app/linkmark-back/internal/db"
)

// Vote counts at most one vote per user per shared bookmark; a repeat vote is
// a silent no-op.
func (s *General) Vote(user *db.User, sharedID uint64) error {
	shared := db.SharedBookmark{}
	res := s.db.First(&shared, sharedID)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return errors.Wrap(res.Error, "find shared bookmark")
	}

	var voted int64
	res = s.db.Table("shared_bookmark_votes").
		Where("shared_bookmark_id = ? AND user_id = ?", shared.ID, user.ID).
		Count(&voted)
	if res.Error != nil {
		return errors.Wrap(res.Error, "check voter")
	}
	if voted > 0 {
		return nil
	}

	if err := s.db.Model(&shared).Association("UsersVoted").Append(user); err != nil {
		return errors.Wrap(err, "record voter")
	}
	res = s.db.Model(&shared).Update("votes", gorm.Expr("votes + 1"))
	if res.Error != nil {
		return errors.Wrap(res.Error, "increment votes")
	}
	return nil
}

// AddFriend creates the directed edge actor -> target. A duplicate edge,
// including one lost to a race against the unique index, reports
// ErrAlreadyFriend instead of failing the request.
func (s *General) AddFriend(user *db.User, username string) (*db.User, error) {
	friend, err := s.UserByUsername(username)
	if err != nil {
		return nil, err
	}

	res := s.db.Create(&db.Friendship{FromUserID: user.ID, ToUserID: friend.ID})
	if res.Error != nil {
		s.logger.Infow("friendship create rejected", "from", user.Username, "to", friend.Username, "error", res.Error)
		return friend, ErrAlreadyFriend
	}
	return friend, nil
}

func (s *General) IsFriend(user *db.User, other *db.User) (bool, error) {
	if user == nil {
		return false, nil
	}
	var count int64
	res := s.db.Model(&db.Friendship{}).
		Where("from_user_id = ? AND to_user_id = ?", user.ID, other.ID).
		Count(&count)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "count friendships")
	}
	return count > 0, nil
}

// FriendsOf returns a user's friends and the ten most recent bookmarks across
// all of them.
func (s *General) FriendsOf(username string) ([]db.User, []db.Bookmark, error) {
	user, err := s.UserByUsername(username)
	if err != nil {
		return nil, nil, err
	}

	friendships := make([]db.Friendship, 0)
	res := s.db.Preload("ToUser").Where("from_user_id = ?", user.ID).Find(&friendships)
	if res.Error != nil {
		return nil, nil, errors.Wrap(res.Error, "load friendships")
	}

	friends := make([]db.User, len(friendships))
	friendIDs := make([]uint64, len(friendships))
	for i := range friendships {
		friends[i] = friendships[i].ToUser
		friendIDs[i] = friendships[i].ToUserID
	}

	bookmarks := make([]db.Bookmark, 0)
	if len(friendIDs) > 0 {
		res = s.db.
			Preload("Tags").Preload("Link").Preload("User").
			Where("user_id IN ?", friendIDs).
			Order("id DESC").Limit(FeedSize).
			Find(&bookmarks)
		if res.Error != nil {
			return nil, nil, errors.Wrap(res.Error, "load friend bookmarks")
		}
	}
	return friends, bookmarks, nil
}
