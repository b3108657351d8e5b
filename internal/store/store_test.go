package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"segsieve/internal/metrics"
)

type StoreTestSuite struct {
	suite.Suite
	path  string
	store *Store
	ctx   context.Context
}

func (s *StoreTestSuite) SetupTest() {
	log, _ := test.NewNullLogger()

	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "runs.db")

	st, err := Open(s.path, log)
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreTestSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreTestSuite) TestRecordAndRecent() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	reports := []metrics.Report{
		{Strategy: "pool", N: 100, Workers: 4, BuildSeconds: 0.001, SieveSeconds: 0.002, TotalSeconds: 0.003, MemoryMB: 7.5, Primes: 25, CPU: "Test CPU"},
		{Strategy: "cluster", N: 1000, Workers: 2, TotalSeconds: 0.01, Primes: 168},
		{Strategy: "serial", N: 30, Workers: 1, TotalSeconds: 0.0001, Primes: 10},
	}
	for i, r := range reports {
		id, err := s.store.Record(s.ctx, r)
		s.Require().NoError(err)
		s.Equal(int64(i+1), id)
	}

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, count)

	runs, err := s.store.Recent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.Equal(reports[2], runs[0].Report)
	s.Equal(reports[1], runs[1].Report)
	s.True(base.Add(3*time.Second).Equal(runs[0].RecordedAt), "recorded at %v", runs[0].RecordedAt)

	all, err := s.store.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(reports[0], all[2].Report)
}

func (s *StoreTestSuite) TestEmpty() {
	runs, err := s.store.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(runs)
}

func (s *StoreTestSuite) TestReopenKeepsHistory() {
	_, err := s.store.Record(s.ctx, metrics.Report{Strategy: "pool", N: 10, Workers: 1, Primes: 4})
	s.Require().NoError(err)
	s.Require().NoError(s.store.Close())

	log, _ := test.NewNullLogger()
	reopened, err := Open(s.path, log)
	s.Require().NoError(err)
	s.store = reopened

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
