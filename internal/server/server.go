// Package server serves the annotation form over HTTP.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/render"
)

const paramDraftID = "id"

// New builds the echo server for a. loglevel is one of debug, info, warn,
// error or off.
func New(a *app.App, r *render.Renderer, loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	setLevel(e, loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(middleware.Recover())
	e.Use(logRequests)

	h := &handlers{app: a, render: r}

	e.GET("/", h.newDraft)
	e.POST("/load", h.uploadJSON)
	e.POST("/extract", h.extract)

	e.GET("/drafts/:id", h.showDraft)
	e.POST("/drafts/:id", h.saveDraft)
	e.POST("/drafts/:id/validate", h.validateDraft)
	e.POST("/drafts/:id/publish", h.publishDraft)

	e.GET("/api/schema", h.apiSchema)
	e.GET("/api/drafts/:id", h.apiDraft)
	e.GET("/api/prs", h.apiPulls)

	return e
}

// logRequests writes one structured line per request once the handler
// returns. Handler errors go through the error handler first so the logged
// status is the one sent.
func logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		started := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		entry := log.JSON{
			"method":  c.Request().Method,
			"path":    c.Request().URL.Path,
			"status":  c.Response().Status,
			"elapsed": time.Since(started).String(),
		}
		if id := c.Param(paramDraftID); id != "" {
			entry["draft"] = id
		}
		if err != nil {
			entry["failed"] = true
		}
		c.Logger().Infoj(entry)
		return nil
	}
}

// echoLevels maps the configured log_level names onto gommon levels.
var echoLevels = map[string]log.Lvl{
	"debug":   log.DEBUG,
	"info":    log.INFO,
	"warn":    log.WARN,
	"warning": log.WARN,
	"error":   log.ERROR,
	"off":     log.OFF,
}

// setLevel applies loglevel to the echo logger. An empty or unknown name
// means info, the same default the command-line logger uses.
func setLevel(e *echo.Echo, loglevel string) {
	name := strings.ToLower(strings.TrimSpace(loglevel))
	lvl, ok := echoLevels[name]
	if !ok {
		lvl = log.INFO
	}
	e.Logger.SetLevel(lvl)
	if !ok && name != "" {
		e.Logger.Warnf("unknown log level %q, using info", loglevel)
	}
}

// ListenAndServe runs e on addr until it fails or is shut down.
func ListenAndServe(e *echo.Echo, addr string) error {
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
