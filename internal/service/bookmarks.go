package service

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/linkmark-app/linkmark-back/internal/db"
)

type SaveInput struct {
	URL   string
	Title string
	Tags  string
	Share bool
}

// SaveBookmark is idempotent per (user, url): a resubmission updates the title
// and replaces the tag set instead of creating a second bookmark. The whole
// write runs in one transaction so a failure cannot leave the bookmark with a
// new title but a half-replaced tag set.
func (s *General) SaveBookmark(user *db.User, in SaveInput) (*db.Bookmark, error) {
	bookmark := db.Bookmark{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		link := db.Link{URL: in.URL}
		res := tx.Where(&db.Link{URL: in.URL}).FirstOrCreate(&link)
		if res.Error != nil {
			return errors.Wrap(res.Error, "get or create link")
		}

		created := false
		res = tx.Where("user_id = ? AND link_id = ?", user.ID, link.ID).First(&bookmark)
		if res.Error == gorm.ErrRecordNotFound {
			bookmark = db.Bookmark{UserID: user.ID, LinkID: link.ID}
			if res := tx.Create(&bookmark); res.Error != nil {
				return errors.Wrap(res.Error, "create bookmark")
			}
			created = true
		} else if res.Error != nil {
			return errors.Wrap(res.Error, "find bookmark")
		}

		if res := tx.Model(&bookmark).Update("title", in.Title); res.Error != nil {
			return errors.Wrap(res.Error, "update title")
		}
		bookmark.Title = in.Title

		// Full replace of the tag set, not a merge.
		if !created {
			if err := tx.Model(&bookmark).Association("Tags").Clear(); err != nil {
				return errors.Wrap(err, "clear tags")
			}
		}
		tags := make([]db.Tag, 0)
		seen := map[string]bool{}
		for _, name := range strings.Fields(in.Tags) {
			if seen[name] {
				continue
			}
			seen[name] = true
			tag := db.Tag{Name: name}
			if res := tx.Where(&db.Tag{Name: name}).FirstOrCreate(&tag); res.Error != nil {
				return errors.Wrap(res.Error, "get or create tag")
			}
			tags = append(tags, tag)
		}
		if len(tags) > 0 {
			if err := tx.Model(&bookmark).Association("Tags").Append(&tags); err != nil {
				return errors.Wrap(err, "append tags")
			}
		}
		bookmark.Tags = tags
		bookmark.Link = link
		bookmark.User = *user

		if in.Share {
			return shareBookmark(tx, user, &bookmark)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func shareBookmark(tx *gorm.DB, user *db.User, bookmark *db.Bookmark) error {
	shared := db.SharedBookmark{}
	res := tx.Where("bookmark_id = ?", bookmark.ID).First(&shared)
	if res.Error == gorm.ErrRecordNotFound {
		shared = db.SharedBookmark{BookmarkID: bookmark.ID, Date: time.Now()}
		if res := tx.Create(&shared); res.Error != nil {
			return errors.Wrap(res.Error, "create shared bookmark")
		}
		// Only the very first share records the owner in the voter set. The
		// vote counter stays at zero.
		if err := tx.Model(&shared).Association("UsersVoted").Append(user); err != nil {
			return errors.Wrap(err, "record owner as voter")
		}
	} else if res.Error != nil {
		return errors.Wrap(res.Error, "find shared bookmark")
	}
	return nil
}

// BookmarkByURL returns the acting user's bookmark of the given URL, tags
// preloaded, for prefilling the save form.
func (s *General) BookmarkByURL(user *db.User, url string) (*db.Bookmark, error) {
	link := db.Link{}
	res := s.db.Where("url = ?", url).First(&link)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find link")
	}

	bookmark := db.Bookmark{}
	res = s.db.Preload("Tags").Where("user_id = ? AND link_id = ?", user.ID, link.ID).First(&bookmark)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find bookmark")
	}
	return &bookmark, nil
}
