package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/linkmark-app/linkmark-back/internal/config"
	"github.com/linkmark-app/linkmark-back/internal/db"
	"github.com/linkmark-app/linkmark-back/internal/service"
)

const sessionCookie = "session_token"

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		svc    *service.General
		logger *zap.SugaredLogger
	}
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, svc *service.General, logger *zap.SugaredLogger) *HTTPServer {
	instance := HTTPServer{
		svc:    svc,
		logger: logger,
	}

	e := instance.BuildRouter()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) BuildRouter() *echo.Echo {
	e := echo.New()

	// Browsing
	e.GET("/", s.MainPage)
	e.GET("/popular/", s.PopularPage)
	e.GET("/user/:username/", s.UserPage)
	e.GET("/tag/", s.TagCloudPage)
	e.GET("/tag/:name/", s.TagPage)
	e.GET("/search/", s.SearchPage)
	e.GET("/bookmark/:id/", s.BookmarkPage)

	// Ajax
	e.GET("/ajax/tag/autocomplete/", s.TagAutocomplete)

	// Session management
	e.GET("/login/", s.LoginPage)
	e.POST("/login/", s.Login)
	e.GET("/logout/", s.Logout)
	e.GET("/register/", s.RegisterPage)
	e.POST("/register/", s.Register)
	e.GET("/register/success/", s.RegisterSuccess)

	// Account management
	e.GET("/save/", s.SavePage)
	e.POST("/save/", s.Save)
	e.GET("/vote/", s.Vote)
	e.POST("/vote/", s.Vote)

	// Friends
	e.GET("/friends/:username/", s.FriendsPage)
	e.GET("/friend/add/", s.FriendAdd)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDump(s.dumpBody))

	e.Use(s.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return e
}

// AuthMiddleware resolves the current user from an X-Token header or the
// session cookie. It never rejects: protected handlers redirect to /login/
// themselves when no user resolved.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := ""
		for key, values := range c.Request().Header {
			if strings.ToLower(key) == "x-token" {
				token = values[0]
				break
			}
		}
		if token == "" {
			if cookie, err := c.Cookie(sessionCookie); err == nil {
				token = cookie.Value
			}
		}
		if token != "" {
			user, err := s.svc.UserByToken(token)
			if err == nil {
				c.Set("user", user)
			}
		}
		return next(c)
	}
}

func (s *HTTPServer) dumpBody(c echo.Context, reqBody, resBody []byte) {
	if len(reqBody) == 0 {
		return
	}
	s.logger.Debugw("request body", "path", c.Path(), "body", string(censorBody(reqBody)))
}

// censorBody blanks out password-carrying fields before a request body hits
// the logs. Non-JSON bodies pass through untouched.
func censorBody(body []byte) []byte {
	payload := map[string]interface{}{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return body
	}
	for key := range payload {
		if strings.Contains(strings.ToLower(key), "password") {
			payload[key] = "$censored"
		}
	}
	censored, err := json.Marshal(payload)
	if err != nil {
		return body
	}
	return censored
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func CurrentUser(c echo.Context) *db.User {
	user, _ := c.Get("user").(*db.User)
	return user
}

func hasQuery(c echo.Context, name string) bool {
	_, ok := c.QueryParams()[name]
	return ok
}

// renderList is the single response-shape switch: with the ajax query param
// present only the list fragment is returned, otherwise the full page.
func renderList(c echo.Context, page interface{}, fragment interface{}) error {
	if hasQuery(c, "ajax") {
		return c.JSON(http.StatusOK, fragment)
	}
	return c.JSON(http.StatusOK, page)
}

func fieldErrors(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"__all__": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fieldErrorMessage(fe)
	}
	return out
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "min":
		return "Ensure this value has at least " + fe.Param() + " characters."
	case "eqfield":
		return "The two password fields didn't match."
	case "alphanum":
		return "Only letters and numbers are allowed."
	}
	return "Invalid value."
}
