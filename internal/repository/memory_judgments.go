package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/model"
)

// InMemoryJudgmentsRepository is a process-local JudgmentsRepository used by
// tests and by dry runs. Transactions hold the store lock for their duration
// and restore a snapshot when fn fails.
type InMemoryJudgmentsRepository struct {
	mu   sync.Mutex
	rows map[string]model.Judgment // by id
	now  func() time.Time
}

func NewInMemoryJudgmentsRepository() *InMemoryJudgmentsRepository {
	return &InMemoryJudgmentsRepository{
		rows: make(map[string]model.Judgment),
		now:  time.Now,
	}
}

var _ JudgmentsRepository = (*InMemoryJudgmentsRepository)(nil)

type memTxKey struct{}

func (r *InMemoryJudgmentsRepository) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) == r {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *InMemoryJudgmentsRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) == r {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]model.Judgment, len(r.rows))
	for k, v := range r.rows {
		snapshot[k] = v
	}
	if err := fn(context.WithValue(ctx, memTxKey{}, r)); err != nil {
		r.rows = snapshot
		return err
	}
	return nil
}

func (r *InMemoryJudgmentsRepository) FindByKey(ctx context.Context, key model.JudgmentKey) ([]model.Judgment, error) {
	defer r.lock(ctx)()

	var out []model.Judgment
	for _, j := range r.rows {
		if j.IssuerID == key.IssuerID &&
			j.JudgmentCoreID == key.CoreID &&
			j.EventTimestamp.Equal(key.EventTimestamp) &&
			j.CaseReference == key.CaseReference {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].DefendantNo < out[b].DefendantNo })
	return out, nil
}

func (r *InMemoryJudgmentsRepository) InsertAll(ctx context.Context, rows []model.Judgment) error {
	defer r.lock(ctx)()

	for i, row := range rows {
		for _, existing := range r.rows {
			if sameIdentity(existing, row) {
				return fmt.Errorf("%w: %s", ErrDuplicate, row.JudgmentID)
			}
		}
		for _, pending := range rows[:i] {
			if sameIdentity(pending, row) {
				return fmt.Errorf("%w: %s", ErrDuplicate, row.JudgmentID)
			}
		}
	}
	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = r.now()
		}
		r.rows[row.ID] = row
	}
	return nil
}

func sameIdentity(a, b model.Judgment) bool {
	return a.IssuerID == b.IssuerID &&
		a.JudgmentID == b.JudgmentID &&
		a.EventTimestamp.Equal(b.EventTimestamp) &&
		a.CaseReference == b.CaseReference
}

func (r *InMemoryJudgmentsRepository) SitesWithUnreported(ctx context.Context) ([]string, error) {
	return r.sites(ctx, func(j model.Judgment) bool { return j.ReportedToRTL == nil }), nil
}

func (r *InMemoryJudgmentsRepository) SitesReportedAt(ctx context.Context, at time.Time) ([]string, error) {
	return r.sites(ctx, func(j model.Judgment) bool {
		return j.ReportedToRTL != nil && j.ReportedToRTL.Equal(at)
	}), nil
}

func (r *InMemoryJudgmentsRepository) sites(ctx context.Context, keep func(model.Judgment) bool) []string {
	defer r.lock(ctx)()

	seen := make(map[string]struct{})
	for _, j := range r.rows {
		if keep(j) {
			seen[j.SiteID] = struct{}{}
		}
	}
	sites := make([]string, 0, len(seen))
	for s := range seen {
		sites = append(sites, s)
	}
	sort.Strings(sites)
	return sites
}

func (r *InMemoryJudgmentsRepository) ListUnreported(ctx context.Context, siteID string) ([]model.Judgment, error) {
	return r.list(ctx, func(j model.Judgment) bool {
		return j.SiteID == siteID && j.ReportedToRTL == nil
	}), nil
}

func (r *InMemoryJudgmentsRepository) ListReportedAt(ctx context.Context, siteID string, at time.Time) ([]model.Judgment, error) {
	return r.list(ctx, func(j model.Judgment) bool {
		return j.SiteID == siteID && j.ReportedToRTL != nil && j.ReportedToRTL.Equal(at)
	}), nil
}

func (r *InMemoryJudgmentsRepository) list(ctx context.Context, keep func(model.Judgment) bool) []model.Judgment {
	defer r.lock(ctx)()

	var out []model.Judgment
	for _, j := range r.rows {
		if keep(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].EventTimestamp.Equal(out[b].EventTimestamp) {
			return out[a].EventTimestamp.Before(out[b].EventTimestamp)
		}
		if out[a].JudgmentID != out[b].JudgmentID {
			return out[a].JudgmentID < out[b].JudgmentID
		}
		return out[a].CaseReference < out[b].CaseReference
	})
	return out
}

func (r *InMemoryJudgmentsRepository) MarkReported(ctx context.Context, rows []model.Judgment, at time.Time) error {
	defer r.lock(ctx)()

	for _, row := range rows {
		cur, ok := r.rows[row.ID]
		if !ok || cur.Version != row.Version {
			return fmt.Errorf("%w: %s", ErrVersionConflict, row.JudgmentID)
		}
	}
	for _, row := range rows {
		cur := r.rows[row.ID]
		ts := at
		cur.ReportedToRTL = &ts
		cur.Version++
		r.rows[row.ID] = cur
	}
	return nil
}

func (r *InMemoryJudgmentsRepository) DeleteReportedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	defer r.lock(ctx)()

	var n int64
	for id, j := range r.rows {
		if j.ReportedToRTL != nil && j.ReportedToRTL.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

// All returns every stored row, for assertions.
func (r *InMemoryJudgmentsRepository) All() []model.Judgment {
	return r.list(context.Background(), func(model.Judgment) bool { return true })
}

// Put stores a row as-is, bypassing identity checks. Test seeding only.
func (r *InMemoryJudgmentsRepository) Put(rows ...model.Judgment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.rows[row.ID] = row
	}
}
