package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/metrics"
	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
	"github.com/jmehdipour/judgment-gateway/internal/rtl"
	"github.com/jmehdipour/judgment-gateway/internal/transfer"
	"github.com/jmehdipour/judgment-gateway/internal/util"
)

const (
	statusExported       = "exported"
	statusTransferFailed = "transfer_failed"
	statusMarkFailed     = "mark_failed"
)

// Request selects what an export run covers.
type Request struct {
	// TestMode renders files into staging only: no upload, no marking.
	TestMode bool
	// AsOf re-runs the batch exported at this watermark instead of
	// exporting pending records.
	AsOf *time.Time
	// SiteID restricts the run to one site.
	SiteID *string
}

type SiteResult struct {
	SiteID      string
	Records     int
	Files       []string
	Transferred bool
	Marked      bool
	Err         error // load, staging or transfer failure
	MarkErr     error // reported-flag update failure; records stay pending
}

type Result struct {
	RunID     string
	Watermark time.Time
	Rerun     bool
	TestMode  bool
	Sites     []SiteResult
}

// Exported counts the records written to files in this run.
func (r Result) Exported() int {
	n := 0
	for _, s := range r.Sites {
		if s.Err == nil {
			n += s.Records
		}
	}
	return n
}

// Service renders pending judgments into per-site export files, ships them
// to the Register and marks what was shipped.
type Service struct {
	store       repository.JudgmentsRepository
	transfer    transfer.FileTransfer
	staging     *Staging
	exportLog   repository.ExportLogRepository // optional
	loc         *time.Location
	concurrency int
	now         func() time.Time
	log         *zap.Logger
}

// New constructs the export service. exportLog may be nil.
func New(
	store repository.JudgmentsRepository,
	ft transfer.FileTransfer,
	staging *Staging,
	exportLog repository.ExportLogRepository,
	loc *time.Location,
	concurrency int,
	log *zap.Logger,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		store:       store,
		transfer:    ft,
		staging:     staging,
		exportLog:   exportLog,
		loc:         loc,
		concurrency: concurrency,
		now:         time.Now,
		log:         logger.OrNop(log),
	}
}

// Watermark normalises an export instant to whole seconds in UTC, the
// precision of file names and of reported_to_rtl.
func Watermark(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Run exports every target site. Sites are independent: a failing site does
// not stop the others. Load, staging and transfer failures are returned
// joined once all sites have run; failures to mark records as reported are
// only logged, leaving those records pending for the next run.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	res := Result{
		RunID:    util.New(),
		Rerun:    req.AsOf != nil,
		TestMode: req.TestMode,
	}
	if res.Rerun {
		res.Watermark = Watermark(*req.AsOf)
	} else {
		res.Watermark = Watermark(s.now())
	}

	log := s.log.With(
		zap.String("run", res.RunID),
		zap.Time("watermark", res.Watermark),
		zap.Bool("rerun", res.Rerun),
		zap.Bool("test_mode", res.TestMode),
	)

	sites, err := s.targetSites(ctx, req, res.Watermark)
	if err != nil {
		return res, fmt.Errorf("list export sites: %w", err)
	}
	if len(sites) == 0 {
		log.Info("nothing to export")
		return res, nil
	}

	res.Sites = make([]SiteResult, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, site := range sites {
		g.Go(func() error {
			res.Sites[i] = s.exportSite(gctx, res, site, log.With(zap.String("site", site)))
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, sr := range res.Sites {
		if sr.Err != nil {
			errs = append(errs, sr.Err)
		}
	}

	log.Info("export run finished", zap.Int("sites", len(sites)), zap.Int("records", res.Exported()), zap.Int("failed_sites", len(errs)))

	return res, errors.Join(errs...)
}

func (s *Service) targetSites(ctx context.Context, req Request, watermark time.Time) ([]string, error) {
	switch {
	case req.SiteID != nil:
		return []string{*req.SiteID}, nil
	case req.AsOf != nil:
		return s.store.SitesReportedAt(ctx, watermark)
	default:
		return s.store.SitesWithUnreported(ctx)
	}
}

// exportSite runs build, stage, transfer and mark strictly in that order.
func (s *Service) exportSite(ctx context.Context, run Result, site string, log *zap.Logger) SiteResult {
	sr := SiteResult{SiteID: site}

	var (
		records []model.Judgment
		err     error
	)
	if run.Rerun {
		records, err = s.store.ListReportedAt(ctx, site, run.Watermark)
	} else {
		records, err = s.store.ListUnreported(ctx, site)
	}
	if err != nil {
		metrics.ExportSiteFailuresTotal.WithLabelValues("load").Inc()
		sr.Err = fmt.Errorf("load records site=%s: %w", site, err)
		log.Error("export load failed", zap.Error(err))
		return sr
	}
	if len(records) == 0 {
		return sr
	}
	sr.Records = len(records)

	local := run.Watermark.In(s.loc)
	files := rtl.Build(records, local)

	for _, f := range []struct {
		ext  string
		data []byte
	}{{rtl.ExtHeader, files.Header}, {rtl.ExtDetail, files.Detail}} {
		p, err := s.staging.Write(run.RunID, rtl.FileName(local, site, f.ext), f.data)
		if err != nil {
			_ = s.staging.Remove(sr.Files...)
			metrics.ExportSiteFailuresTotal.WithLabelValues("stage").Inc()
			sr.Files = nil
			sr.Err = fmt.Errorf("stage site=%s: %w", site, err)
			log.Error("export staging failed", zap.Error(err))
			return sr
		}
		sr.Files = append(sr.Files, p)
	}

	metrics.ExportRecordsTotal.WithLabelValues(site, mode(run)).Add(float64(sr.Records))

	if run.TestMode {
		log.Info("test export staged", zap.Int("records", sr.Records), zap.Strings("files", sr.Files))
		return sr
	}

	if err := s.transfer.Upload(ctx, sr.Files); err != nil {
		metrics.ExportSiteFailuresTotal.WithLabelValues("transfer").Inc()
		sr.Err = &apperr.TransferError{SiteID: site, Files: sr.Files, Err: err}
		log.Error("export transfer failed; staged files kept", zap.Strings("files", sr.Files), zap.Error(err))
		s.audit(ctx, run, sr, statusTransferFailed, err, log)
		return sr
	}
	sr.Transferred = true

	if err := s.staging.Remove(sr.Files...); err != nil {
		log.Warn("could not remove staged files", zap.Error(err))
	}

	if !run.Rerun {
		if err := s.store.MarkReported(ctx, records, run.Watermark); err != nil {
			metrics.ExportSiteFailuresTotal.WithLabelValues("mark").Inc()
			sr.MarkErr = apperr.ErrPersistence.Withf("site=%s", site).Wrap(err)
			log.Error("mark reported failed; records stay pending", zap.Int("records", sr.Records), zap.Error(err))
			s.audit(ctx, run, sr, statusMarkFailed, err, log)
			return sr
		}
		sr.Marked = true
	}

	log.Info("site exported", zap.Int("records", sr.Records))
	s.audit(ctx, run, sr, statusExported, nil, log)

	return sr
}

func mode(run Result) string {
	switch {
	case run.TestMode:
		return "test"
	case run.Rerun:
		return "rerun"
	default:
		return "live"
	}
}

// audit records the batch in the export log; failures are logged only.
func (s *Service) audit(ctx context.Context, run Result, sr SiteResult, status string, cause error, log *zap.Logger) {
	if s.exportLog == nil {
		return
	}

	b := repository.ExportBatch{
		RunID:       run.RunID,
		SiteID:      sr.SiteID,
		Watermark:   run.Watermark,
		Records:     uint32(sr.Records),
		Rerun:       run.Rerun,
		Status:      status,
		CompletedAt: s.now().UTC(),
	}
	if cause != nil {
		b.Error = cause.Error()
	}
	if len(sr.Files) == 2 {
		b.HeaderFile, b.DetailFile = filepath.Base(sr.Files[0]), filepath.Base(sr.Files[1])
	}

	if err := s.exportLog.Append(ctx, b); err != nil {
		log.Warn("export log append failed", zap.Error(err))
	}
}
