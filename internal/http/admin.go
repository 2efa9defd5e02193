package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmehdipour/judgment-gateway/internal/repository"
	"github.com/jmehdipour/judgment-gateway/internal/service/export"
)

type Exporter interface {
	Run(ctx context.Context, req export.Request) (export.Result, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, minAgeDays int) (int64, error)
}

type exportReq struct {
	TestMode bool   `json:"testMode"`
	AsOf     string `json:"asOf"`   // RFC 3339 or export file stamp; empty = new export
	SiteID   string `json:"siteId"` // empty = every site
}

type siteResp struct {
	SiteID      string   `json:"siteId"`
	Records     int      `json:"records"`
	Files       []string `json:"files,omitempty"`
	Transferred bool     `json:"transferred"`
	Marked      bool     `json:"marked"`
	Error       string   `json:"error,omitempty"`
	MarkError   string   `json:"markError,omitempty"`
}

func exportHandler(svc Exporter, loc *time.Location) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req exportReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		r := export.Request{TestMode: req.TestMode}
		if req.AsOf != "" {
			t, err := export.ParseAsOf(req.AsOf, loc)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request", "message": err.Error()})
			}
			r.AsOf = &t
		}
		if req.SiteID != "" {
			r.SiteID = &req.SiteID
		}

		res, err := svc.Run(c.Request().Context(), r)

		sites := make([]siteResp, 0, len(res.Sites))
		for _, s := range res.Sites {
			sr := siteResp{
				SiteID:      s.SiteID,
				Records:     s.Records,
				Files:       s.Files,
				Transferred: s.Transferred,
				Marked:      s.Marked,
			}
			if s.Err != nil {
				sr.Error = s.Err.Error()
			}
			if s.MarkErr != nil {
				sr.MarkError = s.MarkErr.Error()
			}
			sites = append(sites, sr)
		}

		body := map[string]any{
			"runId":     res.RunID,
			"watermark": res.Watermark,
			"rerun":     res.Rerun,
			"testMode":  res.TestMode,
			"records":   res.Exported(),
			"sites":     sites,
		}
		if err != nil {
			body["error"] = err.Error()
			return c.JSON(statusFor(err), body)
		}
		return c.JSON(http.StatusOK, body)
	}
}

type retentionReq struct {
	MinAgeDays int `json:"minAgeDays"`
}

func retentionHandler(svc Sweeper, defaultDays int) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req retentionReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.MinAgeDays == 0 {
			req.MinAgeDays = defaultDays
		}
		if req.MinAgeDays < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "minAgeDays must be positive"})
		}

		n, err := svc.Sweep(c.Request().Context(), req.MinAgeDays)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"minAgeDays": req.MinAgeDays, "deleted": n})
	}
}

func listExportsHandler(exportLog repository.ExportLogRepository, loc *time.Location) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.QueryParam("watermark")
		if raw == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "watermark is required"})
		}
		wm, err := export.ParseAsOf(raw, loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request", "message": err.Error()})
		}

		batches, err := exportLog.ListByWatermark(c.Request().Context(), wm)
		if err != nil {
			c.Logger().Errorf("export log query failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"watermark": wm,
			"count":     len(batches),
			"results":   batches,
		})
	}
}
