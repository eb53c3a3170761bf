package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"

	"github.com/stretchr/testify/suite"
)

// RepositoryContractSuite checks the behavior every AccessRepository must
// share. Embed it and set NewRepo before running.
type RepositoryContractSuite struct {
	suite.Suite
	NewRepo func() repository.AccessRepository
	repo    repository.AccessRepository
	ctx     context.Context
}

func (s *RepositoryContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.NewRepo()
}

func (s *RepositoryContractSuite) mustCreate(code *model.AccessCode) *model.AccessCode {
	s.Require().NoError(s.repo.CreateAccessCode(s.ctx, code))
	s.Require().NotEmpty(code.ID)
	return code
}

func (s *RepositoryContractSuite) TestCreateAndFindAccessCode() {
	created := s.mustCreate(NewCode("ALPHA"))

	found, err := s.repo.FindAccessCodeByCode(s.ctx, "ALPHA")
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.True(found.IsActive)
	s.Nil(found.ActivatedAt)
	s.True(found.CreatedAt.Equal(BaseTime))
}

func (s *RepositoryContractSuite) TestFindAccessCode_CaseSensitive() {
	s.mustCreate(NewCode("Alpha"))

	_, err := s.repo.FindAccessCodeByCode(s.ctx, "alpha")
	s.ErrorIs(err, repository.ErrAccessCodeNotFound)
}

func (s *RepositoryContractSuite) TestCreateAccessCode_Duplicate() {
	s.mustCreate(NewCode("DUP"))
	err := s.repo.CreateAccessCode(s.ctx, NewCode("DUP"))
	s.ErrorIs(err, repository.ErrDuplicateCode)
}

func (s *RepositoryContractSuite) TestCreateAccessCode_KeepsDisabledFlag() {
	s.mustCreate(DisabledCode("OFF"))

	found, err := s.repo.FindAccessCodeByCode(s.ctx, "OFF")
	s.Require().NoError(err)
	s.False(found.IsActive)
}

func (s *RepositoryContractSuite) TestListAccessCodes_NewestFirst() {
	for i, code := range []string{"FIRST", "SECOND", "THIRD"} {
		c := NewCode(code)
		c.CreatedAt = BaseTime.Add(time.Duration(i) * time.Minute)
		s.mustCreate(c)
	}

	codes, err := s.repo.ListAccessCodes(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(codes, 3)
	s.Equal("THIRD", codes[0].Code)
	s.Equal("SECOND", codes[1].Code)
	s.Equal("FIRST", codes[2].Code)
}

func (s *RepositoryContractSuite) TestSessionLifecycle() {
	code := s.mustCreate(NewCode("SESS"))

	_, err := s.repo.FindSessionByToken(s.ctx, "tok-1")
	s.ErrorIs(err, repository.ErrSessionNotFound)

	session := model.NewSession("tok-1", code.ID, BaseTime)
	s.Require().NoError(s.repo.InsertSessionIfAbsent(s.ctx, session))

	err = s.repo.InsertSessionIfAbsent(s.ctx, model.NewSession("tok-1", code.ID, BaseTime.Add(time.Hour)))
	s.ErrorIs(err, repository.ErrSessionExists)

	later := BaseTime.Add(2 * time.Hour)
	s.Require().NoError(s.repo.TouchLastAccess(s.ctx, "tok-1", later))

	found, err := s.repo.FindSessionByToken(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal(code.ID, found.AccessCodeID)
	s.True(found.FirstAccessAt.Equal(BaseTime), "first access must not change")
	s.True(found.LastAccessAt.Equal(later))

	s.ErrorIs(s.repo.TouchLastAccess(s.ctx, "missing", later), repository.ErrSessionNotFound)
}

func (s *RepositoryContractSuite) TestSetActivatedAtIfNull_OnlyOnce() {
	code := s.mustCreate(NewCode("ACT"))

	first := BaseTime.Add(time.Minute)
	wrote, err := s.repo.SetActivatedAtIfNull(s.ctx, code.ID, first)
	s.Require().NoError(err)
	s.True(wrote)

	wrote, err = s.repo.SetActivatedAtIfNull(s.ctx, code.ID, first.Add(time.Hour))
	s.Require().NoError(err)
	s.False(wrote)

	found, err := s.repo.FindAccessCodeByCode(s.ctx, "ACT")
	s.Require().NoError(err)
	s.Require().NotNil(found.ActivatedAt)
	s.True(found.ActivatedAt.Equal(first))
}

func (s *RepositoryContractSuite) TestSetActivatedAtIfNull_Concurrent() {
	code := s.mustCreate(NewCode("RACE"))

	const writers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		errs  []error
		start = make(chan struct{})
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			wrote, err := s.repo.SetActivatedAtIfNull(s.ctx, code.ID, BaseTime.Add(time.Duration(i)*time.Second))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if wrote {
				wins++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	s.Empty(errs)
	s.Equal(1, wins)
}

func (s *RepositoryContractSuite) TestInsertSessionIfAbsent_ConcurrentSameToken() {
	code := s.mustCreate(NewCode("BIND"))

	const writers = 16
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   []time.Time
		losses int
		errs   []error
		start  = make(chan struct{})
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			at := BaseTime.Add(time.Duration(i) * time.Second)
			err := s.repo.InsertSessionIfAbsent(s.ctx, model.NewSession("tok-race", code.ID, at))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, at)
			case errors.Is(err, repository.ErrSessionExists):
				losses++
			default:
				errs = append(errs, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	s.Empty(errs)
	s.Require().Len(wins, 1)
	s.Equal(writers-1, losses)

	found, err := s.repo.FindSessionByToken(s.ctx, "tok-race")
	s.Require().NoError(err)
	s.True(found.FirstAccessAt.Equal(wins[0]), "the stored window must be the winner's")
}

func (s *RepositoryContractSuite) TestResetAccessCode() {
	code := NewCode("RESET")
	code.IsActive = false
	at := BaseTime.Add(time.Hour)
	code.ActivatedAt = &at
	s.mustCreate(code)

	reset, err := s.repo.ResetAccessCode(s.ctx, "RESET")
	s.Require().NoError(err)
	s.True(reset.IsActive)
	s.Nil(reset.ActivatedAt)

	// Reset is unconditional
	again, err := s.repo.ResetAccessCode(s.ctx, "RESET")
	s.Require().NoError(err)
	s.True(again.IsActive)
	s.Nil(again.ActivatedAt)

	_, err = s.repo.ResetAccessCode(s.ctx, "NOPE")
	s.ErrorIs(err, repository.ErrAccessCodeNotFound)
}

func (s *RepositoryContractSuite) TestSetAccessCodeActive() {
	code := NewCode("TOGGLE")
	at := BaseTime.Add(time.Hour)
	code.ActivatedAt = &at
	s.mustCreate(code)

	disabled, err := s.repo.SetAccessCodeActive(s.ctx, "TOGGLE", false)
	s.Require().NoError(err)
	s.False(disabled.IsActive)
	s.Require().NotNil(disabled.ActivatedAt, "disabling keeps the activation")

	enabled, err := s.repo.SetAccessCodeActive(s.ctx, "TOGGLE", true)
	s.Require().NoError(err)
	s.True(enabled.IsActive)

	_, err = s.repo.SetAccessCodeActive(s.ctx, "NOPE", true)
	s.ErrorIs(err, repository.ErrAccessCodeNotFound)
}

func (s *RepositoryContractSuite) TestPing() {
	s.NoError(s.repo.Ping(s.ctx))
}
