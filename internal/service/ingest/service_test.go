package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/jmehdipour/judgment-gateway/internal/normalize"
	"github.com/jmehdipour/judgment-gateway/internal/refdata/mocks"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
)

// =============================================================================
// Ingest Service Test Suite
// =============================================================================

type IngestServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	resolver *mocks.MockCourtCodeResolver
	store    *repository.InMemoryJudgmentsRepository
	service  *Service
	ctx      context.Context
}

func TestIngestServiceSuite(t *testing.T) {
	suite.Run(t, new(IngestServiceSuite))
}

func (s *IngestServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockCourtCodeResolver(s.ctrl)
	s.store = repository.NewInMemoryJudgmentsRepository()
	s.service = s.newService(s.store)
	s.ctx = context.Background()
}

func (s *IngestServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *IngestServiceSuite) newService(store repository.JudgmentsRepository) *Service {
	n, err := normalize.New(nil)
	s.Require().NoError(err)
	return New(NewValidator([]string{"civil-service"}), s.resolver, NewTransformer(n), store, nil)
}

func (s *IngestServiceSuite) expectResolve(times int) {
	s.resolver.EXPECT().Resolve(gomock.Any(), "420219").Return("123", nil).Times(times)
}

// =============================================================================
// Happy path and idempotency
// =============================================================================

func (s *IngestServiceSuite) TestProcess_Created() {
	s.expectResolve(1)

	out, err := s.service.Process(s.ctx, withSecondDefendant(sampleEvent()))
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, out)

	rows := s.store.All()
	s.Require().Len(rows, 2)
	for _, r := range rows {
		s.Equal("123", r.CourtCode)
		s.Nil(r.ReportedToRTL)
	}
}

func (s *IngestServiceSuite) TestProcess_IdenticalResubmissionIsNoop() {
	s.expectResolve(2)

	_, err := s.service.Process(s.ctx, sampleEvent())
	s.Require().NoError(err)
	before := s.store.All()

	out, err := s.service.Process(s.ctx, sampleEvent())
	s.Require().NoError(err)
	s.Equal(OutcomeDuplicate, out)
	s.Equal(before, s.store.All())
}

func (s *IngestServiceSuite) TestProcess_ComparesBySuffixNotPosition() {
	s.expectResolve(2)

	_, err := s.service.Process(s.ctx, withSecondDefendant(sampleEvent()))
	s.Require().NoError(err)

	// Stored order is not defendant order.
	rows := s.store.All()
	rows[0].DefendantNo, rows[1].DefendantNo = rows[1].DefendantNo, rows[0].DefendantNo
	s.store.Put(rows...)

	out, err := s.service.Process(s.ctx, withSecondDefendant(sampleEvent()))
	s.Require().NoError(err)
	s.Equal(OutcomeDuplicate, out)
}

// =============================================================================
// Rejections
// =============================================================================

func (s *IngestServiceSuite) TestProcess_Conflicts() {
	s.expectResolve(1)
	_, err := s.service.Process(s.ctx, withSecondDefendant(sampleEvent()))
	s.Require().NoError(err)
	stored := s.store.All()

	s.Run("changed defendant name", func() {
		s.expectResolve(1)
		ev := withSecondDefendant(sampleEvent())
		ev.Defendant1.Name = "A Changed"

		_, err := s.service.Process(s.ctx, ev)
		s.ErrorIs(err, apperr.ErrUpdateConflict)
		s.Equal(apperr.KindConflict, apperr.KindOf(err))
		s.Equal(stored, s.store.All())
	})

	s.Run("fewer defendants than stored", func() {
		s.expectResolve(1)

		_, err := s.service.Process(s.ctx, sampleEvent())
		s.ErrorIs(err, apperr.ErrDefendantCountMismatch)
		s.Equal(stored, s.store.All())
	})
}

func (s *IngestServiceSuite) TestProcess_ValidationStopsBeforeLookup() {
	s.Run("unknown issuer", func() {
		ev := sampleEvent()
		ev.IssuerID = "rogue"

		_, err := s.service.Process(s.ctx, ev)
		s.ErrorIs(err, apperr.ErrUnrecognisedIssuer)
	})

	s.Run("cancellation without date", func() {
		ev := sampleEvent()
		ev.RegistrationType = model.RegistrationCancelled

		_, err := s.service.Process(s.ctx, ev)
		s.ErrorIs(err, apperr.ErrMissingCancellationDate)
	})

	s.Run("malformed event", func() {
		ev := sampleEvent()
		ev.CaseReference = ""

		_, err := s.service.Process(s.ctx, ev)
		s.ErrorIs(err, apperr.ErrInvalidEvent)
	})

	s.Empty(s.store.All())
}

func (s *IngestServiceSuite) TestProcess_ResolverErrors() {
	s.Run("unrecognised site propagates unchanged", func() {
		s.resolver.EXPECT().Resolve(gomock.Any(), "420219").Return("", apperr.ErrUnrecognisedSite)

		_, err := s.service.Process(s.ctx, sampleEvent())
		s.ErrorIs(err, apperr.ErrUnrecognisedSite)
		s.Equal(apperr.KindResolution, apperr.KindOf(err))
	})

	s.Run("transient failure is internal", func() {
		s.resolver.EXPECT().Resolve(gomock.Any(), "420219").Return("", errors.New("timeout"))

		_, err := s.service.Process(s.ctx, sampleEvent())
		s.Error(err)
		s.Equal(apperr.KindInternal, apperr.KindOf(err))
	})

	s.Empty(s.store.All())
}

// racingStore hides existing rows from FindByKey, as if a concurrent
// transaction inserted them after this one looked.
type racingStore struct {
	*repository.InMemoryJudgmentsRepository
}

func (racingStore) FindByKey(context.Context, model.JudgmentKey) ([]model.Judgment, error) {
	return nil, nil
}

func (s *IngestServiceSuite) TestProcess_ConstraintViolationIsConflict() {
	s.expectResolve(2)
	_, err := s.service.Process(s.ctx, sampleEvent())
	s.Require().NoError(err)

	racing := s.newService(racingStore{s.store})
	_, err = racing.Process(s.ctx, sampleEvent())
	s.ErrorIs(err, apperr.ErrUpdateConflict)
	s.Len(s.store.All(), 1)
}
