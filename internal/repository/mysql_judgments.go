package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/judgment-gateway/internal/model"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213

	// txAttempts bounds InTx retries after a deadlock or lock wait timeout.
	txAttempts = 2

	markBatchSize   = 500
	deleteBatchSize = 5000
)

const judgmentColumns = `
	id, issuer_id, judgment_id, judgment_core_id, defendant_no, event_timestamp,
	site_id, court_code, case_reference, case_number, total, order_date,
	registration_type, cancellation_date, defendant_name,
	address_line1, address_line2, address_line3, address_line4, address_line5,
	postcode, date_of_birth, reported_to_rtl, version, created_at`

// MySQLJudgmentsRepository is the sqlx-backed JudgmentsRepository.
type MySQLJudgmentsRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewMySQLJudgmentsRepository(db *sqlx.DB) *MySQLJudgmentsRepository {
	return &MySQLJudgmentsRepository{db: db, now: time.Now}
}

var _ JudgmentsRepository = (*MySQLJudgmentsRepository)(nil)

type txKey struct{}

func txFrom(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// ext returns the transaction bound to ctx, or the pool.
func (r *MySQLJudgmentsRepository) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return r.db
}

// InTx runs fn in the transaction already bound to ctx, or starts a new one.
// A new transaction that loses a deadlock or times out on a lock is rolled
// back and run once more, so fn must be safe to replay. Two first
// submissions of one judgment both gap-lock the empty key range in FindByKey
// and the loser deadlocks on insert; its replay then sees the winner's rows.
func (r *MySQLJudgmentsRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		if err = r.runTx(ctx, fn); !isLockConflict(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (r *MySQLJudgmentsRepository) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = t.Rollback() }()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	return t.Commit()
}

func (r *MySQLJudgmentsRepository) FindByKey(ctx context.Context, key model.JudgmentKey) ([]model.Judgment, error) {
	q := `SELECT ` + judgmentColumns + `
		FROM judgments
		WHERE issuer_id = ? AND judgment_core_id = ? AND event_timestamp = ? AND case_reference = ?
		ORDER BY defendant_no`
	if _, ok := txFrom(ctx); ok {
		q += " FOR UPDATE"
	}

	var rows []model.Judgment
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, q,
		key.IssuerID, key.CoreID, key.EventTimestamp.UTC(), key.CaseReference,
	); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertAll writes all rows with one multi-row statement. Rows without a
// creation time are stamped with the current time.
func (r *MySQLJudgmentsRepository) InsertAll(ctx context.Context, rows []model.Judgment) error {
	if len(rows) == 0 {
		return nil
	}

	now := r.now().UTC()
	stamped := make([]model.Judgment, len(rows))
	for i, row := range rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		stamped[i] = row
	}
	const q = `
		INSERT INTO judgments
		    (id, issuer_id, judgment_id, judgment_core_id, defendant_no, event_timestamp,
		     site_id, court_code, case_reference, case_number, total, order_date,
		     registration_type, cancellation_date, defendant_name,
		     address_line1, address_line2, address_line3, address_line4, address_line5,
		     postcode, date_of_birth, reported_to_rtl, version, created_at)
		VALUES
		    (:id, :issuer_id, :judgment_id, :judgment_core_id, :defendant_no, :event_timestamp,
		     :site_id, :court_code, :case_reference, :case_number, :total, :order_date,
		     :registration_type, :cancellation_date, :defendant_name,
		     :address_line1, :address_line2, :address_line3, :address_line4, :address_line5,
		     :postcode, :date_of_birth, :reported_to_rtl, :version, :created_at)
	`
	_, err := sqlx.NamedExecContext(ctx, r.ext(ctx), q, stamped)
	if isDuplicate(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (r *MySQLJudgmentsRepository) SitesWithUnreported(ctx context.Context) ([]string, error) {
	var sites []string
	err := sqlx.SelectContext(ctx, r.ext(ctx), &sites, `
		SELECT DISTINCT site_id
		  FROM judgments
		 WHERE reported_to_rtl IS NULL
		 ORDER BY site_id
	`)
	return sites, err
}

func (r *MySQLJudgmentsRepository) SitesReportedAt(ctx context.Context, at time.Time) ([]string, error) {
	var sites []string
	err := sqlx.SelectContext(ctx, r.ext(ctx), &sites, `
		SELECT DISTINCT site_id
		  FROM judgments
		 WHERE reported_to_rtl = ?
		 ORDER BY site_id
	`, at.UTC())
	return sites, err
}

func (r *MySQLJudgmentsRepository) ListUnreported(ctx context.Context, siteID string) ([]model.Judgment, error) {
	var rows []model.Judgment
	err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, `SELECT `+judgmentColumns+`
		FROM judgments
		WHERE site_id = ? AND reported_to_rtl IS NULL
		ORDER BY event_timestamp, judgment_id, case_reference`, siteID)
	return rows, err
}

func (r *MySQLJudgmentsRepository) ListReportedAt(ctx context.Context, siteID string, at time.Time) ([]model.Judgment, error) {
	var rows []model.Judgment
	err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, `SELECT `+judgmentColumns+`
		FROM judgments
		WHERE site_id = ? AND reported_to_rtl = ?
		ORDER BY event_timestamp, judgment_id, case_reference`, siteID, at.UTC())
	return rows, err
}

// MarkReported bumps version with a compare-and-swap per row, in chunks,
// inside a single transaction.
func (r *MySQLJudgmentsRepository) MarkReported(ctx context.Context, rows []model.Judgment, at time.Time) error {
	if len(rows) == 0 {
		return nil
	}
	return r.InTx(ctx, func(ctx context.Context) error {
		for start := 0; start < len(rows); start += markBatchSize {
			end := min(start+markBatchSize, len(rows))
			if err := r.markChunk(ctx, rows[start:end], at); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *MySQLJudgmentsRepository) markChunk(ctx context.Context, rows []model.Judgment, at time.Time) error {
	var sb strings.Builder
	args := make([]any, 0, 1+len(rows)*2)
	args = append(args, at.UTC())

	sb.WriteString(`UPDATE judgments SET reported_to_rtl = ?, version = version + 1 WHERE (id, version) IN (`)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?)")
		args = append(args, row.ID, row.Version)
	}
	sb.WriteString(")")

	res, err := r.ext(ctx).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("%w: updated %d of %d", ErrVersionConflict, n, len(rows))
	}
	return nil
}

// DeleteReportedBefore deletes in bounded batches to keep lock times short.
func (r *MySQLJudgmentsRepository) DeleteReportedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		res, err := r.db.ExecContext(ctx, `
			DELETE FROM judgments
			 WHERE reported_to_rtl IS NOT NULL AND reported_to_rtl < ?
			 LIMIT ?
		`, cutoff.UTC(), deleteBatchSize)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
		if n < deleteBatchSize {
			return total, nil
		}
	}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout)
}
