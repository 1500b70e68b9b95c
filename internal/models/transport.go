package models

import (
	"strings"
	"time"

	"github.com/linkmark-app/linkmark-back/internal/db"
)

type (
	RegistrationForm struct {
		Username  string `json:"username" form:"username" validate:"required,alphanum"`
		Email     string `json:"email" form:"email" validate:"required,email"`
		Password  string `json:"password" form:"password" validate:"required,min=6"`
		Password2 string `json:"password2" form:"password2" validate:"required,eqfield=Password"`
	}

	LoginForm struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	BookmarkSaveForm struct {
		URL   string `json:"url" form:"url" validate:"required,url"`
		Title string `json:"title" form:"title" validate:"required"`
		Tags  string `json:"tags" form:"tags"`
		Share bool   `json:"share" form:"share"`
	}

	SearchForm struct {
		Query string `json:"query" form:"query"`
	}

	FormResp struct {
		Form   interface{}       `json:"form"`
		Errors map[string]string `json:"errors,omitempty"`
	}

	TokenResp struct {
		Token string `json:"token"`
	}

	MessageResp struct {
		Message string `json:"message"`
	}

	BookmarkResp struct {
		ID    uint64   `json:"id"`
		Title string   `json:"title"`
		URL   string   `json:"url"`
		Owner string   `json:"owner"`
		Tags  []string `json:"tags"`
	}

	SharedBookmarkResp struct {
		ID       uint64       `json:"id"`
		Votes    int          `json:"votes"`
		Date     time.Time    `json:"date"`
		Bookmark BookmarkResp `json:"bookmark"`
	}

	TagWeightResp struct {
		Name   string `json:"name"`
		Count  int    `json:"count"`
		Weight int    `json:"weight"`
	}

	MainPageResp struct {
		SharedBookmarks []SharedBookmarkResp `json:"shared_bookmarks"`
	}

	UserPageResp struct {
		Bookmarks     []BookmarkResp `json:"bookmarks"`
		Username      string         `json:"username"`
		ShowTags      bool           `json:"show_tags"`
		ShowEdit      bool           `json:"show_edit"`
		ShowPaginator bool           `json:"show_paginator"`
		Page          int            `json:"page"`
		Pages         int            `json:"pages"`
		NextPage      int            `json:"next_page"`
		PrevPage      int            `json:"prev_page"`
		IsFriend      bool           `json:"is_friend"`
	}

	TagPageResp struct {
		Bookmarks []BookmarkResp `json:"bookmarks"`
		TagName   string         `json:"tag_name"`
		ShowTags  bool           `json:"show_tags"`
		ShowUser  bool           `json:"show_user"`
	}

	TagCloudResp struct {
		Tags []TagWeightResp `json:"tags"`
	}

	SearchPageResp struct {
		Form        SearchForm     `json:"form"`
		Bookmarks   []BookmarkResp `json:"bookmarks"`
		ShowResults bool           `json:"show_results"`
		ShowTags    bool           `json:"show_tags"`
		ShowUser    bool           `json:"show_user"`
	}

	BookmarkPageResp struct {
		SharedBookmark SharedBookmarkResp `json:"shared_bookmark"`
	}

	FriendsPageResp struct {
		Username  string         `json:"username"`
		Friends   []string       `json:"friends"`
		Bookmarks []BookmarkResp `json:"bookmarks"`
		ShowTags  bool           `json:"show_tags"`
		ShowUser  bool           `json:"show_user"`
	}
)

func NewBookmarkResp(b db.Bookmark) BookmarkResp {
	tags := make([]string, len(b.Tags))
	for i := range b.Tags {
		tags[i] = b.Tags[i].Name
	}
	return BookmarkResp{
		ID:    b.ID,
		Title: b.Title,
		URL:   b.Link.URL,
		Owner: b.User.Username,
		Tags:  tags,
	}
}

func NewBookmarkRespList(bookmarks []db.Bookmark) []BookmarkResp {
	resp := make([]BookmarkResp, len(bookmarks))
	for i := range bookmarks {
		resp[i] = NewBookmarkResp(bookmarks[i])
	}
	return resp
}

func NewSharedBookmarkResp(s db.SharedBookmark) SharedBookmarkResp {
	return SharedBookmarkResp{
		ID:       s.ID,
		Votes:    s.Votes,
		Date:     s.Date,
		Bookmark: NewBookmarkResp(s.Bookmark),
	}
}

func NewSharedBookmarkRespList(shared []db.SharedBookmark) []SharedBookmarkResp {
	resp := make([]SharedBookmarkResp, len(shared))
	for i := range shared {
		resp[i] = NewSharedBookmarkResp(shared[i])
	}
	return resp
}

func TagNames(tags []db.Tag) string {
	names := make([]string, len(tags))
	for i := range tags {
		names[i] = tags[i].Name
	}
	return strings.Join(names, " ")
}
