package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ExportBatch is one site's export as recorded in ClickHouse export_log.
type ExportBatch struct {
	RunID       string    `db:"run_id" json:"runId"`
	SiteID      string    `db:"site_id" json:"siteId"`
	Watermark   time.Time `db:"watermark" json:"watermark"`
	Records     uint32    `db:"records" json:"records"`
	Rerun       bool      `db:"rerun" json:"rerun"`
	Status      string    `db:"status" json:"status"` // exported | transfer_failed | mark_failed
	Error       string    `db:"error" json:"error"`
	HeaderFile  string    `db:"header_file" json:"headerFile"`
	DetailFile  string    `db:"detail_file" json:"detailFile"`
	CompletedAt time.Time `db:"completed_at" json:"completedAt"`
}

// ExportLogRepository appends export batches and lists them for operators.
type ExportLogRepository interface {
	Append(ctx context.Context, b ExportBatch) error
	ListByWatermark(ctx context.Context, watermark time.Time) ([]ExportBatch, error)
}

type chExportLogRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHExportLogRepository(ch *sqlx.DB) ExportLogRepository {
	return &chExportLogRepository{ch: ch}
}

func (r *chExportLogRepository) Append(ctx context.Context, b ExportBatch) error {
	_, err := r.ch.NamedExecContext(ctx, `
		INSERT INTO jgw.export_log
		    (run_id, site_id, watermark, records, rerun, status, error, header_file, detail_file, completed_at)
		VALUES
		    (:run_id, :site_id, :watermark, :records, :rerun, :status, :error, :header_file, :detail_file, :completed_at)
	`, b)
	return err
}

func (r *chExportLogRepository) ListByWatermark(ctx context.Context, watermark time.Time) ([]ExportBatch, error) {
	var rows []ExportBatch
	err := r.ch.SelectContext(ctx, &rows, `
		SELECT run_id, site_id, watermark, records, rerun, status, error, header_file, detail_file, completed_at
		FROM jgw.export_log
		WHERE watermark = ?
		ORDER BY site_id, completed_at
	`, watermark.UTC())
	return rows, err
}
