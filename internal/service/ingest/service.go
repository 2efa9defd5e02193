package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/metrics"
	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/jmehdipour/judgment-gateway/internal/refdata"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
)

// Service validates, resolves, expands and stores inbound judgment events.
type Service struct {
	validator   *Validator
	resolver    refdata.CourtCodeResolver
	transformer *Transformer
	store       repository.JudgmentsRepository
	log         *zap.Logger
}

// New constructs the ingest service.
func New(
	validator *Validator,
	resolver refdata.CourtCodeResolver,
	transformer *Transformer,
	store repository.JudgmentsRepository,
	log *zap.Logger,
) *Service {
	return &Service{
		validator:   validator,
		resolver:    resolver,
		transformer: transformer,
		store:       store,
		log:         logger.OrNop(log),
	}
}

// Process registers ev. Re-delivery of an identical event is a no-op that
// reports OutcomeDuplicate; any divergence from what is stored is rejected
// and nothing is written.
func (s *Service) Process(ctx context.Context, ev model.InboundEvent) (Outcome, error) {
	out, err := s.process(ctx, ev)

	switch {
	case err == nil:
		metrics.IngestEventsTotal.WithLabelValues(string(out)).Inc()
		s.log.Info("judgment event processed",
			zap.String("outcome", string(out)),
			zap.String("issuer", ev.IssuerID),
			zap.String("judgment", ev.JudgmentID),
			zap.String("site", ev.SiteID),
		)
	case apperr.KindOf(err) == apperr.KindInternal:
		metrics.IngestEventsTotal.WithLabelValues("error").Inc()
		s.log.Error("judgment event failed",
			zap.String("issuer", ev.IssuerID),
			zap.String("judgment", ev.JudgmentID),
			zap.Error(err),
		)
	default:
		metrics.IngestEventsTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		s.log.Warn("judgment event rejected",
			zap.String("code", apperr.CodeOf(err)),
			zap.String("issuer", ev.IssuerID),
			zap.String("judgment", ev.JudgmentID),
			zap.Error(err),
		)
	}

	return out, err
}

func (s *Service) process(ctx context.Context, ev model.InboundEvent) (Outcome, error) {
	if err := ev.CheckShape(); err != nil {
		return "", apperr.ErrInvalidEvent.Wrap(err)
	}
	if err := s.validator.ValidateIssuer(ev.IssuerID); err != nil {
		return "", err
	}
	if err := s.validator.ValidateCancellationDate(ev.RegistrationType, ev.CancellationDate.TimePtr()); err != nil {
		return "", err
	}

	courtCode, err := s.resolver.Resolve(ctx, ev.SiteID)
	if err != nil {
		if errors.Is(err, apperr.ErrUnrecognisedSite) {
			return "", err
		}
		return "", fmt.Errorf("resolve court code site=%s: %w", ev.SiteID, err)
	}

	records := s.transformer.Expand(ev, courtCode)
	key := records[0].Key()

	var out Outcome
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindByKey(ctx, key)
		if err != nil {
			return fmt.Errorf("find judgment %s: %w", key, err)
		}

		if len(existing) == 0 {
			if err := s.store.InsertAll(ctx, records); err != nil {
				return err
			}
			out = OutcomeCreated
			return nil
		}

		if err := compare(existing, records); err != nil {
			return err
		}
		out = OutcomeDuplicate
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent insert of the same identity.
		return "", apperr.ErrUpdateConflict.Withf("judgment=%s", key).Wrap(err)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

// compare matches stored and incoming records by defendant suffix.
func compare(existing, incoming []model.Judgment) error {
	if len(existing) != len(incoming) {
		return apperr.ErrDefendantCountMismatch.Withf("stored=%d incoming=%d", len(existing), len(incoming))
	}

	bySuffix := make(map[string]model.Judgment, len(existing))
	for _, e := range existing {
		bySuffix[e.Suffix()] = e
	}

	for _, in := range incoming {
		stored, ok := bySuffix[in.Suffix()]
		if !ok || !stored.SameContent(in) {
			return apperr.ErrUpdateConflict.Withf("judgment=%s", in.JudgmentID)
		}
	}
	return nil
}
