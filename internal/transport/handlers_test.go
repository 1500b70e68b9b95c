package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/linkmark-app/linkmark-back/internal/db"
	"github.com/linkmark-app/linkmark-back/internal/service"
)

func newTestServer(t *testing.T) (*echo.Echo, *service.General, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	svc := service.NewGeneral(conn, zap.NewNop().Sugar())
	server := &HTTPServer{svc: svc, logger: zap.NewNop().Sugar()}
	return server.BuildRouter(), svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, username, token string) *db.User {
	t.Helper()
	user := db.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		Token:    token,
	}
	require.NoError(t, conn.Create(&user).Error)
	return &user
}

func doRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTagAutocompleteHandler(t *testing.T) {
	e, svc, conn := newTestServer(t)
	alice := seedUser(t, conn, "alice", "token-alice")
	_, err := svc.SaveBookmark(alice, service.SaveInput{URL: "http://a.example.com", Title: "a", Tags: "golang gopher java"})
	require.NoError(t, err)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/ajax/tag/autocomplete/?q=go", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "golang\ngopher", rec.Body.String())

	t.Run("missing q yields empty body", func(t *testing.T) {
		rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/ajax/tag/autocomplete/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "", rec.Body.String())
	})
}

func TestSearchPageResponseShapes(t *testing.T) {
	e, svc, conn := newTestServer(t)
	alice := seedUser(t, conn, "alice", "token-alice")
	_, err := svc.SaveBookmark(alice, service.SaveInput{URL: "http://a.example.com", Title: "Foo Bar"})
	require.NoError(t, err)

	t.Run("full page is an object", func(t *testing.T) {
		rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/search/?query=foo+bar", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		page := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, true, page["show_results"])
		assert.Len(t, page["bookmarks"], 1)
	})

	t.Run("ajax variant is the bare list", func(t *testing.T) {
		rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/search/?query=foo+bar&ajax", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		list := []map[string]interface{}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, "Foo Bar", list[0]["title"])
	})

	t.Run("blank query shows no results", func(t *testing.T) {
		rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/search/?query=+++", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		page := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, false, page["show_results"])
	})
}

func TestVoteHandler(t *testing.T) {
	e, svc, conn := newTestServer(t)
	alice := seedUser(t, conn, "alice", "token-alice")
	seedUser(t, conn, "bob", "token-bob")

	bookmark, err := svc.SaveBookmark(alice, service.SaveInput{URL: "http://example.com", Title: "Example", Share: true})
	require.NoError(t, err)
	shared := db.SharedBookmark{}
	require.NoError(t, conn.Where("bookmark_id = ?", bookmark.ID).First(&shared).Error)

	t.Run("unauthenticated redirects to login", func(t *testing.T) {
		rec := doRequest(e, httptest.NewRequest(http.MethodPost, "/vote/?id="+strconv.FormatUint(shared.ID, 10), nil))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login/", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("vote redirects back to referer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/vote/?id="+strconv.FormatUint(shared.ID, 10), nil)
		req.Header.Set("X-Token", "token-bob")
		req.Header.Set("Referer", "/popular/")
		rec := doRequest(e, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/popular/", rec.Header().Get(echo.HeaderLocation))

		got := db.SharedBookmark{}
		require.NoError(t, conn.First(&got, shared.ID).Error)
		assert.Equal(t, 1, got.Votes)
	})

	t.Run("no referer falls back to home", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/vote/?id="+strconv.FormatUint(shared.ID, 10), nil)
		req.Header.Set("X-Token", "token-bob")
		rec := doRequest(e, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/vote/?id=999", nil)
		req.Header.Set("X-Token", "token-bob")
		rec := doRequest(e, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSaveHandler(t *testing.T) {
	e, _, conn := newTestServer(t)
	seedUser(t, conn, "alice", "token-alice")

	form := url.Values{}
	form.Set("url", "http://example.com")
	form.Set("title", "Example")
	form.Set("tags", "ref demo")
	form.Set("share", "true")

	t.Run("valid post redirects to the user page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/save/", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set("X-Token", "token-alice")
		rec := doRequest(e, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/user/alice/", rec.Header().Get(echo.HeaderLocation))

		var count int64
		require.NoError(t, conn.Model(&db.Bookmark{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("ajax post returns the list fragment", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/save/?ajax", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set("X-Token", "token-alice")
		rec := doRequest(e, req)
		require.Equal(t, http.StatusOK, rec.Code)

		list := []map[string]interface{}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, "Example", list[0]["title"])
	})

	t.Run("invalid ajax post returns failure", func(t *testing.T) {
		bad := url.Values{}
		bad.Set("url", "not a url")
		req := httptest.NewRequest(http.MethodPost, "/save/?ajax", strings.NewReader(bad.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set("X-Token", "token-alice")
		rec := doRequest(e, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "failure", rec.Body.String())
	})

	t.Run("invalid post re-renders the form with errors", func(t *testing.T) {
		bad := url.Values{}
		bad.Set("url", "not a url")
		req := httptest.NewRequest(http.MethodPost, "/save/", strings.NewReader(bad.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set("X-Token", "token-alice")
		rec := doRequest(e, req)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		errs, ok := resp["errors"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, errs, "url")
		assert.Contains(t, errs, "title")
	})

	t.Run("prefill from an existing bookmark", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/save/?url=http%3A%2F%2Fexample.com", nil)
		req.Header.Set("X-Token", "token-alice")
		rec := doRequest(e, req)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := struct {
			Form struct {
				URL   string `json:"url"`
				Title string `json:"title"`
				Tags  string `json:"tags"`
			} `json:"form"`
		}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "http://example.com", resp.Form.URL)
		assert.Equal(t, "Example", resp.Form.Title)
		assert.Equal(t, "demo ref", sortedWords(resp.Form.Tags))
	})
}

func sortedWords(s string) string {
	words := strings.Fields(s)
	for i := 0; i < len(words); i++ {
		for j := i + 1; j < len(words); j++ {
			if words[j] < words[i] {
				words[i], words[j] = words[j], words[i]
			}
		}
	}
	return strings.Join(words, " ")
}

func TestUserPageHandler(t *testing.T) {
	e, svc, conn := newTestServer(t)
	alice := seedUser(t, conn, "alice", "token-alice")
	_, err := svc.SaveBookmark(alice, service.SaveInput{URL: "http://a.example.com", Title: "Example", Tags: "ref"})
	require.NoError(t, err)

	t.Run("unknown user is a 404", func(t *testing.T) {
		rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/user/nobody/", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("own page shows edit controls", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user/alice/", nil)
		req.Header.Set("X-Token", "token-alice")
		rec := doRequest(e, req)
		require.Equal(t, http.StatusOK, rec.Code)

		page := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, true, page["show_edit"])
		assert.Equal(t, "alice", page["username"])
		assert.Len(t, page["bookmarks"], 1)
	})

	t.Run("non-integer page defaults to one", func(t *testing.T) {
		rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/user/alice/?page=abc", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		page := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.EqualValues(t, 1, page["page"])
	})
}

func TestFriendAddHandler(t *testing.T) {
	e, _, conn := newTestServer(t)
	seedUser(t, conn, "alice", "token-alice")
	seedUser(t, conn, "bob", "token-bob")

	add := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/friend/add/?username=bob", nil)
		req.Header.Set("X-Token", "token-alice")
		return doRequest(e, req)
	}

	rec := add()
	assert.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get(echo.HeaderLocation)
	assert.True(t, strings.HasPrefix(location, "/friends/alice/"), location)
	assert.Contains(t, location, url.QueryEscape("was added to your friend list."))

	t.Run("second add is informational, not an error", func(t *testing.T) {
		rec := add()
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderLocation), url.QueryEscape("already a friend"))

		var edges int64
		require.NoError(t, conn.Model(&db.Friendship{}).Count(&edges).Error)
		assert.EqualValues(t, 1, edges)
	})
}
