package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/metrics"
)

// HTTPResolver looks court codes up in the reference-data service.
type HTTPResolver struct {
	baseURL  string
	sitePath string // fmt pattern with one %s for the site id
	client   *http.Client
	br       *Breaker
}

type courtCodeResponse struct {
	CourtCode string `json:"courtCode"`
}

func NewHTTPResolver(baseURL, sitePath string, timeoutMs, failThreshold, openForMs int) *HTTPResolver {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	if sitePath == "" {
		sitePath = "/sites/%s/court-code"
	}

	return &HTTPResolver{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sitePath: sitePath,
		client:   &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:       NewBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

var _ CourtCodeResolver = (*HTTPResolver)(nil)

func (r *HTTPResolver) Resolve(ctx context.Context, siteID string) (string, error) {
	if strings.TrimSpace(siteID) == "" {
		metrics.RefDataLookupsTotal.WithLabelValues("unrecognised").Inc()
		return "", apperr.ErrUnrecognisedSite.Withf("blank site id")
	}

	if !r.br.TryAcquire() {
		metrics.RefDataLookupsTotal.WithLabelValues("breaker_open").Inc()
		return "", ErrUnavailable
	}

	code, found, err := r.get(ctx, siteID)
	if err != nil {
		r.br.OnFailure()
		metrics.RefDataLookupsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	r.br.OnSuccess()

	if !found || strings.TrimSpace(code) == "" {
		metrics.RefDataLookupsTotal.WithLabelValues("unrecognised").Inc()
		return "", apperr.ErrUnrecognisedSite.Withf("site=%s", siteID)
	}

	metrics.RefDataLookupsTotal.WithLabelValues("miss").Inc()

	return strings.TrimSpace(code), nil
}

// get returns found=false for a 404; other non-2xx statuses are errors.
func (r *HTTPResolver) get(ctx context.Context, siteID string) (string, bool, error) {
	u := r.baseURL + fmt.Sprintf(r.sitePath, url.PathEscape(siteID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}

	req.Header.Set("Accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("refdata site=%s: %w", siteID, err)
	}

	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, res.Body)
		return "", false, nil
	}

	if res.StatusCode/100 != 2 {
		return "", false, fmt.Errorf("refdata site=%s status=%d", siteID, res.StatusCode)
	}

	var body courtCodeResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&body); err != nil {
		return "", false, fmt.Errorf("refdata site=%s: decode: %w", siteID, err)
	}

	return body.CourtCode, true, nil
}
