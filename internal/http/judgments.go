package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jmehdipour/judgment-gateway/internal/http/middleware"
	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/jmehdipour/judgment-gateway/internal/service/ingest"
)

type Ingester interface {
	Process(ctx context.Context, ev model.InboundEvent) (ingest.Outcome, error)
}

func registerJudgmentHandler(svc Ingester) echo.HandlerFunc {
	return func(c echo.Context) error {
		var ev model.InboundEvent
		if err := c.Bind(&ev); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_EVENT", "message": "bad request"})
		}

		// The API key decides who the issuer is.
		issuer, ok := middleware.IssuerFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		if ev.IssuerID == "" {
			ev.IssuerID = issuer
		}
		if ev.IssuerID != issuer {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "ISSUER_MISMATCH", "message": "issuerId does not match api key"})
		}

		out, err := svc.Process(c.Request().Context(), ev)
		if err != nil {
			return writeError(c, err)
		}

		status := http.StatusCreated
		if out == ingest.OutcomeDuplicate {
			status = http.StatusOK
		}
		return c.JSON(status, map[string]any{
			"outcome":    out,
			"issuerId":   ev.IssuerID,
			"judgmentId": ev.JudgmentID,
		})
	}
}
