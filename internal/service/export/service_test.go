package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
	"github.com/jmehdipour/judgment-gateway/internal/transfer/mocks"
)

// =============================================================================
// Export Service Test Suite
// =============================================================================

type ExportServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	transfer  *mocks.MockFileTransfer
	store     *repository.InMemoryJudgmentsRepository
	exportLog *repository.InMemoryExportLogRepository
	fs        afero.Fs
	service   *Service
	ctx       context.Context
	now       time.Time
}

func TestExportServiceSuite(t *testing.T) {
	suite.Run(t, new(ExportServiceSuite))
}

func (s *ExportServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.transfer = mocks.NewMockFileTransfer(s.ctrl)
	s.store = repository.NewInMemoryJudgmentsRepository()
	s.exportLog = repository.NewInMemoryExportLogRepository()
	s.fs = afero.NewMemMapFs()
	s.now = time.Date(2024, 3, 5, 14, 30, 15, 500_000_000, time.UTC)
	s.service = s.newService(s.store)
	s.ctx = context.Background()
}

func (s *ExportServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ExportServiceSuite) newService(store repository.JudgmentsRepository) *Service {
	london, err := time.LoadLocation("Europe/London")
	s.Require().NoError(err)

	svc := New(store, s.transfer, NewStaging(s.fs, "/staging"), s.exportLog, london, 2, nil)
	svc.now = func() time.Time { return s.now }
	return svc
}

func (s *ExportServiceSuite) judgment(id, site string, reported *time.Time) model.Judgment {
	line := "1 High St"
	return model.Judgment{
		ID:               id,
		IssuerID:         "civil-service",
		JudgmentID:       model.DefendantJudgmentID("J"+id, 1),
		JudgmentCoreID:   "J" + id,
		DefendantNo:      1,
		EventTimestamp:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		SiteID:           site,
		CourtCode:        "123",
		CaseReference:    "CR" + id,
		CaseNumber:       "0AB12345",
		Total:            decimal.RequireFromString("11.00"),
		OrderDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RegistrationType: model.RegistrationRegistered,
		DefendantName:    "A B",
		AddressLine1:     &line,
		ReportedToRTL:    reported,
	}
}

func (s *ExportServiceSuite) byID() map[string]model.Judgment {
	out := map[string]model.Judgment{}
	for _, j := range s.store.All() {
		out[j.ID] = j
	}
	return out
}

// stagedFiles lists every file left under the staging directory.
func (s *ExportServiceSuite) stagedFiles() []string {
	var files []string
	_ = afero.Walk(s.fs, "/staging", func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, filepath.Base(p))
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// expectUpload records file names and contents of every upload.
func (s *ExportServiceSuite) expectUpload(times int, uploaded map[string]string, fail map[string]error) {
	s.transfer.EXPECT().Upload(gomock.Any(), gomock.Len(2)).Times(times).DoAndReturn(
		func(_ context.Context, files []string) error {
			for _, f := range files {
				b, err := afero.ReadFile(s.fs, f)
				s.Require().NoError(err)
				if err, ok := fail[filepath.Base(f)]; ok {
					return err
				}
				if uploaded != nil {
					uploaded[filepath.Base(f)] = string(b)
				}
			}
			return nil
		},
	)
}

// =============================================================================
// Live export
// =============================================================================

func (s *ExportServiceSuite) TestRun_ExportsAndMarksEverySite() {
	s.store.Put(s.judgment("a", "S1", nil), s.judgment("b", "S2", nil))
	uploaded := map[string]string{}
	s.expectUpload(2, uploaded, nil)

	res, err := s.service.Run(s.ctx, Request{})
	s.Require().NoError(err)

	wm := time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)
	s.Equal(wm, res.Watermark)
	s.Equal(2, res.Exported())

	s.Len(uploaded, 4)
	s.Equal("1         05032024\n", uploaded["judgment-2024-03-05-14-30-15-S1.hdr"])
	s.Contains(uploaded, "judgment-2024-03-05-14-30-15-S2.det")
	s.Contains(uploaded["judgment-2024-03-05-14-30-15-S1.det"], "1230AB1234500000011.0001012024R        A B")

	for _, j := range s.store.All() {
		s.Require().NotNil(j.ReportedToRTL)
		s.True(wm.Equal(*j.ReportedToRTL), "same instant for every site")
	}
	s.Empty(s.stagedFiles(), "uploaded files are removed from staging")

	batches, err := s.exportLog.ListByWatermark(s.ctx, wm)
	s.Require().NoError(err)
	s.Require().Len(batches, 2)
	s.Equal(statusExported, batches[0].Status)
	s.Equal("judgment-2024-03-05-14-30-15-S1.hdr", batches[0].HeaderFile)

	s.Run("immediate second run finds nothing", func() {
		s.now = s.now.Add(time.Minute)
		res, err := s.service.Run(s.ctx, Request{})
		s.Require().NoError(err)
		s.Empty(res.Sites)
		s.Empty(s.stagedFiles())
	})
}

func (s *ExportServiceSuite) TestRun_SiteFilter() {
	s.store.Put(s.judgment("a", "S1", nil), s.judgment("b", "S2", nil))
	uploaded := map[string]string{}
	s.expectUpload(1, uploaded, nil)

	site := "S2"
	_, err := s.service.Run(s.ctx, Request{SiteID: &site})
	s.Require().NoError(err)

	s.Contains(uploaded, "judgment-2024-03-05-14-30-15-S2.hdr")
	rows := s.byID()
	s.Nil(rows["a"].ReportedToRTL)
	s.NotNil(rows["b"].ReportedToRTL)
}

func (s *ExportServiceSuite) TestRun_TestModeOnlyStages() {
	s.store.Put(s.judgment("a", "S1", nil), s.judgment("b", "S2", nil))

	res, err := s.service.Run(s.ctx, Request{TestMode: true})
	s.Require().NoError(err)
	s.Len(res.Sites, 2)

	s.Equal([]string{
		"judgment-2024-03-05-14-30-15-S1.det",
		"judgment-2024-03-05-14-30-15-S1.hdr",
		"judgment-2024-03-05-14-30-15-S2.det",
		"judgment-2024-03-05-14-30-15-S2.hdr",
	}, s.stagedFiles())
	for _, j := range s.store.All() {
		s.Nil(j.ReportedToRTL)
	}

	batches, err := s.exportLog.ListByWatermark(s.ctx, res.Watermark)
	s.Require().NoError(err)
	s.Empty(batches, "test runs are not audited")
}

// =============================================================================
// Re-run
// =============================================================================

func (s *ExportServiceSuite) TestRun_RerunResendsExactCohort() {
	t1 := time.Date(2024, 2, 1, 2, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 2, 2, 2, 0, 0, 0, time.UTC)
	s.store.Put(
		s.judgment("a", "S1", &t1),
		s.judgment("b", "S1", &t2),
		s.judgment("c", "S1", nil),
	)
	before := s.byID()

	uploaded := map[string]string{}
	s.expectUpload(1, uploaded, nil)

	res, err := s.service.Run(s.ctx, Request{AsOf: &t1})
	s.Require().NoError(err)
	s.True(res.Rerun)
	s.Require().Len(res.Sites, 1)
	s.Equal(1, res.Sites[0].Records)
	s.False(res.Sites[0].Marked)

	s.Equal("1         01022024\n", uploaded["judgment-2024-02-01-02-00-00-S1.hdr"])
	s.Equal(before, s.byID(), "re-runs never touch flags or versions")
}

// =============================================================================
// Failures
// =============================================================================

func (s *ExportServiceSuite) TestRun_TransferFailureIsolatedToSite() {
	s.store.Put(s.judgment("a", "S1", nil), s.judgment("b", "S2", nil))
	s.expectUpload(2, nil, map[string]error{
		"judgment-2024-03-05-14-30-15-S1.hdr": errors.New("connection reset"),
	})

	res, err := s.service.Run(s.ctx, Request{})
	s.Require().Error(err)
	s.ErrorIs(err, apperr.ErrTransfer)
	s.Equal(apperr.KindTransfer, apperr.KindOf(err))

	var te *apperr.TransferError
	s.Require().ErrorAs(err, &te)
	s.Equal("S1", te.SiteID)

	rows := s.byID()
	s.Nil(rows["a"].ReportedToRTL, "failed site stays pending")
	s.NotNil(rows["b"].ReportedToRTL)

	s.Equal([]string{
		"judgment-2024-03-05-14-30-15-S1.det",
		"judgment-2024-03-05-14-30-15-S1.hdr",
	}, s.stagedFiles(), "failed site keeps its artifacts")

	for _, sr := range res.Sites {
		s.Equal(sr.SiteID == "S2", sr.Transferred)
	}
}

// failingMarkStore rejects every MarkReported call.
type failingMarkStore struct {
	*repository.InMemoryJudgmentsRepository
}

func (failingMarkStore) MarkReported(context.Context, []model.Judgment, time.Time) error {
	return repository.ErrVersionConflict
}

func (s *ExportServiceSuite) TestRun_MarkFailureIsLoggedNotReturned() {
	s.store.Put(s.judgment("a", "S1", nil))
	s.expectUpload(2, nil, nil)

	svc := s.newService(failingMarkStore{s.store})
	res, err := svc.Run(s.ctx, Request{})
	s.Require().NoError(err)
	s.Require().Len(res.Sites, 1)
	s.ErrorIs(res.Sites[0].MarkErr, apperr.ErrPersistence)
	s.True(res.Sites[0].Transferred)
	s.Nil(s.byID()["a"].ReportedToRTL)

	batches, err := s.exportLog.ListByWatermark(s.ctx, res.Watermark)
	s.Require().NoError(err)
	s.Require().Len(batches, 1)
	s.Equal(statusMarkFailed, batches[0].Status)

	s.Run("next run exports the records again", func() {
		s.now = s.now.Add(time.Hour)
		res, err := s.service.Run(s.ctx, Request{})
		s.Require().NoError(err)
		s.Require().Len(res.Sites, 1)
		s.True(res.Sites[0].Marked)
	})
}

func (s *ExportServiceSuite) TestRun_NothingToExport() {
	res, err := s.service.Run(s.ctx, Request{})
	s.Require().NoError(err)
	s.Empty(res.Sites)
}
