package refdata

//go:generate mockgen -source=resolver.go -destination=mocks/mocks.go -package=mocks CourtCodeResolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/refdata/mocks"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
	failGet bool
	failSet bool
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return "", false, errors.New("cache down")
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("cache down")
	}
	c.entries[key] = value
	return nil
}

// =============================================================================
// Caching Resolver Test Suite
// =============================================================================

type CachingResolverSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	next     *mocks.MockCourtCodeResolver
	cache    *mapCache
	resolver *CachingResolver
	ctx      context.Context
}

func TestCachingResolverSuite(t *testing.T) {
	suite.Run(t, new(CachingResolverSuite))
}

func (s *CachingResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.next = mocks.NewMockCourtCodeResolver(s.ctrl)
	s.cache = &mapCache{entries: map[string]string{}}
	s.resolver = NewCachingResolver(s.next, s.cache, time.Hour, nil)
	s.ctx = context.Background()
}

func (s *CachingResolverSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CachingResolverSuite) TestResolve() {
	s.Run("miss then hit calls upstream once", func() {
		s.next.EXPECT().Resolve(gomock.Any(), "S1").Return("123", nil).Times(1)

		for i := 0; i < 3; i++ {
			code, err := s.resolver.Resolve(s.ctx, "S1")
			s.Require().NoError(err)
			s.Equal("123", code)
		}
	})

	s.Run("unrecognised sites are not cached", func() {
		s.next.EXPECT().Resolve(gomock.Any(), "S2").Return("", apperr.ErrUnrecognisedSite).Times(2)

		for i := 0; i < 2; i++ {
			_, err := s.resolver.Resolve(s.ctx, "S2")
			s.ErrorIs(err, apperr.ErrUnrecognisedSite)
		}
		s.NotContains(s.cache.entries, cacheKeyPrefix+"S2")
	})

	s.Run("cache outage falls through to upstream", func() {
		s.cache.failGet, s.cache.failSet = true, true
		s.next.EXPECT().Resolve(gomock.Any(), "S3").Return("456", nil)

		code, err := s.resolver.Resolve(s.ctx, "S3")
		s.Require().NoError(err)
		s.Equal("456", code)
	})
}
