package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pbudner/halfhour/coverage"
	"github.com/pbudner/halfhour/stores"
)

type JSON map[string]interface{}

const queryLayout = "2006-01-02"

func RegisterApiHandlers(g *echo.Group, version, gitCommit, site string, catalogue *stores.Catalogue) {
	v1 := g.Group("/v1")
	v1.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, JSON{
			"message": "Hello, world! Welcome to the halfhour API!",
			"version": version,
			"build":   shortCommit(gitCommit),
			"site":    site,
		})
	})

	v1.GET("/files", func(c echo.Context) error {
		files, err := catalogue.Files()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, JSON{
				"error": err.Error(),
			})
		}

		return c.JSON(http.StatusOK, JSON{
			"files": files,
			"count": len(files),
		})
	})

	v1.GET("/files/:name", func(c echo.Context) error {
		file, err := catalogue.GetFile(c.Param("name"))
		if errors.Is(err, stores.ErrFileNotFound) {
			return c.JSON(http.StatusNotFound, JSON{
				"error": err.Error(),
			})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, JSON{
				"error": err.Error(),
			})
		}

		return c.JSON(http.StatusOK, file)
	})

	v1.GET("/runs", func(c echo.Context) error {
		runs, err := catalogue.Runs(site)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, JSON{
				"error": err.Error(),
			})
		}

		return c.JSON(http.StatusOK, JSON{
			"runs":  runs,
			"count": len(runs),
		})
	})

	v1.GET("/coverage", func(c echo.Context) error {
		files, err := catalogue.Files()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, JSON{
				"error": err.Error(),
			})
		}

		intervals := coverage.FromCatalogue(files)
		from, to, err := coverageRange(c, intervals)
		if err != nil {
			return c.JSON(http.StatusBadRequest, JSON{
				"error": err.Error(),
			})
		}

		gaps := coverage.Gaps(intervals, from, to)
		return c.JSON(http.StatusOK, JSON{
			"gaps":    gaps,
			"summary": coverage.Summarize(intervals, gaps, from, to),
		})
	})
}

// coverageRange reads the from and to query parameters as dates. Missing
// bounds default to the earliest start and latest end in the catalogue.
func coverageRange(c echo.Context, intervals []coverage.Interval) (from, to time.Time, err error) {
	from, to = coverage.Bounds(intervals)
	if v := c.QueryParam("from"); v != "" {
		if from, err = time.Parse(queryLayout, v); err != nil {
			return from, to, errors.New("from must be a date like 2010-01-01")
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if to, err = time.Parse(queryLayout, v); err != nil {
			return from, to, errors.New("to must be a date like 2010-12-31")
		}
	}

	if !to.After(from) {
		return from, to, errors.New("to must be after from")
	}

	return from, to, nil
}

func shortCommit(commit string) string {
	if len(commit) > 6 {
		return commit[:6]
	}
	return commit
}
