package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/model"
)

var (
	// ErrDuplicate is returned when an insert hits the judgment identity key.
	ErrDuplicate = errors.New("duplicate judgment identity")
	// ErrVersionConflict is returned when a record changed since it was read.
	ErrVersionConflict = errors.New("judgment version changed concurrently")
)

// JudgmentsRepository is the persistence contract of the ingest and export
// services. Calls made with the ctx handed to InTx's fn join that
// transaction.
type JudgmentsRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	// FindByKey returns every defendant record of one judgment event, ordered
	// by defendant number.
	FindByKey(ctx context.Context, key model.JudgmentKey) ([]model.Judgment, error)
	InsertAll(ctx context.Context, rows []model.Judgment) error

	SitesWithUnreported(ctx context.Context) ([]string, error)
	// SitesReportedAt lists the sites of the batch exported at watermark at.
	SitesReportedAt(ctx context.Context, at time.Time) ([]string, error)
	ListUnreported(ctx context.Context, siteID string) ([]model.Judgment, error)
	ListReportedAt(ctx context.Context, siteID string, at time.Time) ([]model.Judgment, error)
	// MarkReported sets reported_to_rtl on every record, failing with
	// ErrVersionConflict (and changing nothing) if any version moved.
	MarkReported(ctx context.Context, rows []model.Judgment, at time.Time) error

	// DeleteReportedBefore removes reported records with reported_to_rtl < cutoff.
	DeleteReportedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
