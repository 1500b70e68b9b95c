package transport

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/linkmark-app/linkmark-back/internal/models"
	"github.com/linkmark-app/linkmark-back/internal/service"
)

func (s *HTTPServer) MainPage(c echo.Context) error {
	shared, err := s.svc.LatestShared()
	if err != nil {
		return err
	}
	resp := models.NewSharedBookmarkRespList(shared)
	return renderList(c, models.MainPageResp{SharedBookmarks: resp}, resp)
}

func (s *HTTPServer) PopularPage(c echo.Context) error {
	shared, err := s.svc.PopularShared()
	if err != nil {
		return err
	}
	resp := models.NewSharedBookmarkRespList(shared)
	return renderList(c, models.MainPageResp{SharedBookmarks: resp}, resp)
}

func (s *HTTPServer) UserPage(c echo.Context) error {
	username := c.Param("username")
	user, err := s.svc.UserByUsername(username)
	if err != nil {
		if err == service.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return err
	}

	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil {
		page = 1
	}
	bp, err := s.svc.UserBookmarks(user, page)
	if err != nil {
		return err
	}

	current := CurrentUser(c)
	isFriend := false
	if current != nil {
		isFriend, err = s.svc.IsFriend(current, user)
		if err != nil {
			return err
		}
	}

	resp := models.NewBookmarkRespList(bp.Bookmarks)
	pageResp := models.UserPageResp{
		Bookmarks:     resp,
		Username:      username,
		ShowTags:      true,
		ShowEdit:      current != nil && current.Username == username,
		ShowPaginator: bp.Pages > 1,
		Page:          bp.Number,
		Pages:         bp.Pages,
		NextPage:      bp.Number + 1,
		PrevPage:      bp.Number - 1,
		IsFriend:      isFriend,
	}
	return renderList(c, pageResp, resp)
}

func (s *HTTPServer) TagPage(c echo.Context) error {
	name := c.Param("name")
	bookmarks, err := s.svc.TagBookmarks(name)
	if err != nil {
		if err == service.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "tag not found")
		}
		return err
	}
	resp := models.NewBookmarkRespList(bookmarks)
	return renderList(c, models.TagPageResp{
		Bookmarks: resp,
		TagName:   name,
		ShowTags:  true,
		ShowUser:  true,
	}, resp)
}

func (s *HTTPServer) TagCloudPage(c echo.Context) error {
	weights, err := s.svc.TagCloud()
	if err != nil {
		return err
	}
	resp := make([]models.TagWeightResp, len(weights))
	for i := range weights {
		resp[i] = models.TagWeightResp{
			Name:   weights[i].Name,
			Count:  weights[i].Count,
			Weight: weights[i].Weight,
		}
	}
	return renderList(c, models.TagCloudResp{Tags: resp}, resp)
}

func (s *HTTPServer) SearchPage(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	form := models.SearchForm{}
	resp := make([]models.BookmarkResp, 0)
	showResults := false

	if query != "" {
		showResults = true
		form.Query = query
		bookmarks, err := s.svc.SearchBookmarks(query)
		if err != nil {
			return err
		}
		resp = models.NewBookmarkRespList(bookmarks)
	}

	return renderList(c, models.SearchPageResp{
		Form:        form,
		Bookmarks:   resp,
		ShowResults: showResults,
		ShowTags:    true,
		ShowUser:    true,
	}, resp)
}

func (s *HTTPServer) BookmarkPage(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "bookmark not found")
	}
	shared, err := s.svc.SharedByID(id)
	if err != nil {
		if err == service.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "bookmark not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, models.BookmarkPageResp{
		SharedBookmark: models.NewSharedBookmarkResp(*shared),
	})
}

func (s *HTTPServer) TagAutocomplete(c echo.Context) error {
	if !hasQuery(c, "q") {
		return c.String(http.StatusOK, "")
	}
	names, err := s.svc.AutocompleteTags(c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, strings.Join(names, "\n"))
}

////////

func (s *HTTPServer) LoginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, models.FormResp{Form: models.LoginForm{}})
}

func (s *HTTPServer) Login(c echo.Context) error {
	form := models.LoginForm{}
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&form); err != nil {
		form.Password = ""
		return c.JSON(http.StatusOK, models.FormResp{Form: form, Errors: fieldErrors(err)})
	}

	token, err := s.svc.Login(form.Username, form.Password)
	if err == service.ErrLoginUserNotFound || err == service.ErrLoginPasswordDoesNotMatch {
		form.Password = ""
		return c.JSON(http.StatusOK, models.FormResp{Form: form, Errors: map[string]string{
			"__all__": "Please enter a correct username and password.",
		}})
	}
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	return c.JSON(http.StatusOK, models.TokenResp{Token: token})
}

func (s *HTTPServer) Logout(c echo.Context) error {
	if user := CurrentUser(c); user != nil {
		if err := s.svc.Logout(user); err != nil {
			return err
		}
	}
	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	return c.Redirect(http.StatusFound, "/")
}

func (s *HTTPServer) RegisterPage(c echo.Context) error {
	return c.JSON(http.StatusOK, models.FormResp{Form: models.RegistrationForm{}})
}

func (s *HTTPServer) Register(c echo.Context) error {
	form := models.RegistrationForm{}
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&form); err != nil {
		form.Password, form.Password2 = "", ""
		return c.JSON(http.StatusOK, models.FormResp{Form: form, Errors: fieldErrors(err)})
	}

	_, err := s.svc.Register(form.Username, form.Email, form.Password)
	if err == service.ErrUsernameTaken {
		form.Password, form.Password2 = "", ""
		return c.JSON(http.StatusOK, models.FormResp{Form: form, Errors: map[string]string{
			"username": "This username is already taken.",
		}})
	}
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/register/success/")
}

func (s *HTTPServer) RegisterSuccess(c echo.Context) error {
	return c.JSON(http.StatusOK, models.MessageResp{Message: "registration successful"})
}

////////

func (s *HTTPServer) SavePage(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusFound, "/login/")
	}

	form := models.BookmarkSaveForm{}
	if hasQuery(c, "url") {
		form.URL = c.QueryParam("url")
		bookmark, err := s.svc.BookmarkByURL(user, form.URL)
		if err == nil {
			form.Title = bookmark.Title
			form.Tags = models.TagNames(bookmark.Tags)
		} else if err != service.ErrNotFound {
			return err
		}
	}
	return c.JSON(http.StatusOK, models.FormResp{Form: form})
}

func (s *HTTPServer) Save(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusFound, "/login/")
	}
	ajax := hasQuery(c, "ajax")

	form := models.BookmarkSaveForm{}
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&form); err != nil {
		if ajax {
			return c.String(http.StatusOK, "failure")
		}
		return c.JSON(http.StatusOK, models.FormResp{Form: form, Errors: fieldErrors(err)})
	}

	bookmark, err := s.svc.SaveBookmark(user, service.SaveInput{
		URL:   form.URL,
		Title: form.Title,
		Tags:  form.Tags,
		Share: form.Share,
	})
	if err != nil {
		return err
	}

	if ajax {
		return c.JSON(http.StatusOK, []models.BookmarkResp{models.NewBookmarkResp(*bookmark)})
	}
	return c.Redirect(http.StatusFound, "/user/"+user.Username+"/")
}

func (s *HTTPServer) Vote(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusFound, "/login/")
	}

	if hasQuery(c, "id") {
		id, err := strconv.ParseUint(c.QueryParam("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "bookmark not found")
		}
		if err := s.svc.Vote(user, id); err != nil {
			if err == service.ErrNotFound {
				return echo.NewHTTPError(http.StatusNotFound, "bookmark not found")
			}
			return err
		}
	}

	referer := c.Request().Referer()
	if referer == "" {
		referer = "/"
	}
	return c.Redirect(http.StatusFound, referer)
}

////////

func (s *HTTPServer) FriendsPage(c echo.Context) error {
	username := c.Param("username")
	friends, bookmarks, err := s.svc.FriendsOf(username)
	if err != nil {
		if err == service.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return err
	}

	names := make([]string, len(friends))
	for i := range friends {
		names[i] = friends[i].Username
	}
	resp := models.NewBookmarkRespList(bookmarks)
	return renderList(c, models.FriendsPageResp{
		Username:  username,
		Friends:   names,
		Bookmarks: resp,
		ShowTags:  true,
		ShowUser:  true,
	}, resp)
}

func (s *HTTPServer) FriendAdd(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusFound, "/login/")
	}
	if !hasQuery(c, "username") {
		return echo.NewHTTPError(http.StatusNotFound, "username is required")
	}

	friend, err := s.svc.AddFriend(user, c.QueryParam("username"))
	message := ""
	switch err {
	case nil:
		message = friend.Username + " was added to your friend list."
	case service.ErrAlreadyFriend:
		message = friend.Username + " is already a friend of yours."
	case service.ErrNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	default:
		return err
	}

	return c.Redirect(http.StatusFound, "/friends/"+user.Username+"/?message="+url.QueryEscape(message))
}
