package service

import (
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/linkmark-app/linkmark-back/internal/db"
)

const (
	ItemsPerPage = 5
	FeedSize     = 10
	MaxWeight    = 5
)

type (
	BookmarkPage struct {
		Bookmarks []db.Bookmark
		Number    int
		Pages     int
	}

	TagWeight struct {
		Name   string
		Count  int
		Weight int
	}
)

func (s *General) LatestShared() ([]db.SharedBookmark, error) {
	shared := make([]db.SharedBookmark, 0)
	res := s.db.
		Preload("Bookmark.Tags").Preload("Bookmark.Link").Preload("Bookmark.User").
		Order("date DESC").Limit(FeedSize).Find(&shared)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load latest shared bookmarks")
	}
	return shared, nil
}

func (s *General) PopularShared() ([]db.SharedBookmark, error) {
	yesterday := time.Now().Add(-24 * time.Hour)
	shared := make([]db.SharedBookmark, 0)
	res := s.db.
		Preload("Bookmark.Tags").Preload("Bookmark.Link").Preload("Bookmark.User").
		Where("date > ?", yesterday).
		Order("votes DESC").Limit(FeedSize).Find(&shared)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load popular shared bookmarks")
	}
	return shared, nil
}

func (s *General) SharedByID(id uint64) (*db.SharedBookmark, error) {
	shared := db.SharedBookmark{}
	res := s.db.
		Preload("Bookmark.Tags").Preload("Bookmark.Link").Preload("Bookmark.User").
		First(&shared, id)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find shared bookmark")
	}
	return &shared, nil
}

// UserBookmarks returns one page of a user's bookmarks, newest first. Pages are
// 1-based; a page past the end clamps to the last page instead of erroring.
func (s *General) UserBookmarks(user *db.User, page int) (*BookmarkPage, error) {
	var total int64
	res := s.db.Model(&db.Bookmark{}).Where("user_id = ?", user.ID).Count(&total)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "count bookmarks")
	}

	pages := int((total + ItemsPerPage - 1) / ItemsPerPage)
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	bookmarks := make([]db.Bookmark, 0)
	res = s.db.
		Preload("Tags").Preload("Link").Preload("User").
		Where("user_id = ?", user.ID).
		Order("id DESC").
		Limit(ItemsPerPage).Offset((page - 1) * ItemsPerPage).
		Find(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load bookmarks page")
	}

	return &BookmarkPage{Bookmarks: bookmarks, Number: page, Pages: pages}, nil
}

func (s *General) TagBookmarks(name string) ([]db.Bookmark, error) {
	tag := db.Tag{}
	res := s.db.Where("name = ?", name).First(&tag)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find tag")
	}

	bookmarks := make([]db.Bookmark, 0)
	res = s.db.
		Preload("Tags").Preload("Link").Preload("User").
		Joins("JOIN bookmark_tags bt ON bt.bookmark_id = bookmarks.id").
		Where("bt.tag_id = ?", tag.ID).
		Order("bookmarks.id DESC").
		Find(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load tag bookmarks")
	}
	return bookmarks, nil
}

// TagCloud weighs every tag by its bookmark count, normalized linearly into
// 0..MaxWeight. Both extremes are tracked independently, so equal counts all
// normalize to weight zero.
func (s *General) TagCloud() ([]TagWeight, error) {
	sql, args, err := squirrel.
		Select("t.name", "COUNT(bt.bookmark_id) AS count").
		From("tags t").
		LeftJoin("bookmark_tags bt ON bt.tag_id = t.id").
		GroupBy("t.id", "t.name").
		OrderBy("t.name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	tags := make([]TagWeight, 0)
	res := s.db.Raw(sql, args...).Scan(&tags)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan tag counts")
	}
	if len(tags) == 0 {
		return tags, nil
	}

	minCount, maxCount := tags[0].Count, tags[0].Count
	for _, t := range tags {
		if t.Count < minCount {
			minCount = t.Count
		}
		if t.Count > maxCount {
			maxCount = t.Count
		}
	}
	countRange := maxCount - minCount
	if countRange == 0 {
		countRange = 1
	}
	for i := range tags {
		tags[i].Weight = MaxWeight * (tags[i].Count - minCount) / countRange
	}
	return tags, nil
}

// escapeLike neutralizes LIKE metacharacters so user input only ever matches
// literally. Patterns built from it must carry ESCAPE '\'.
var escapeLike = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace

// SearchBookmarks matches bookmarks whose title contains every keyword as a
// case-insensitive substring. An empty query returns no results.
func (s *General) SearchBookmarks(query string) ([]db.Bookmark, error) {
	keywords := strings.Fields(query)
	if len(keywords) == 0 {
		return []db.Bookmark{}, nil
	}

	conj := squirrel.And{}
	for _, keyword := range keywords {
		pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"
		conj = append(conj, squirrel.Expr(`LOWER(title) LIKE ? ESCAPE '\'`, pattern))
	}
	sql, args, err := squirrel.
		Select("id").From("bookmarks").
		Where(conj).
		OrderBy("id").
		Limit(FeedSize).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	ids := make([]uint64, 0)
	res := s.db.Raw(sql, args...).Scan(&ids)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan matches")
	}
	if len(ids) == 0 {
		return []db.Bookmark{}, nil
	}

	bookmarks := make([]db.Bookmark, 0)
	res = s.db.
		Preload("Tags").Preload("Link").Preload("User").
		Where("id IN ?", ids).
		Order("id").
		Find(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load matches")
	}
	return bookmarks, nil
}

func (s *General) AutocompleteTags(prefix string) ([]string, error) {
	sql, args, err := squirrel.
		Select("name").From("tags").
		Where(squirrel.Expr(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(strings.ToLower(prefix))+"%")).
		OrderBy("name").
		Limit(FeedSize).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	names := make([]string, 0)
	res := s.db.Raw(sql, args...).Scan(&names)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan tag names")
	}
	return names, nil
}
