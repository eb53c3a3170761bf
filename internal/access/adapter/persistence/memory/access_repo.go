package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"

	"github.com/google/uuid"
)

// AccessRepository is a process-local AccessRepository for development runs
// and tests. A single mutex makes every operation atomic.
type AccessRepository struct {
	mu       sync.Mutex
	codes    map[string]*model.AccessCode // by code
	byID     map[string]string            // id -> code
	sessions map[string]*model.Session    // by token
	seq      int64
	order    map[string]int64 // code -> insertion sequence, breaks created_at ties

	activationWrites int
}

// NewAccessRepository returns an empty repository
func NewAccessRepository() *AccessRepository {
	return &AccessRepository{
		codes:    make(map[string]*model.AccessCode),
		byID:     make(map[string]string),
		sessions: make(map[string]*model.Session),
		order:    make(map[string]int64),
	}
}

func cloneCode(c *model.AccessCode) *model.AccessCode {
	out := *c
	if c.ActivatedAt != nil {
		at := *c.ActivatedAt
		out.ActivatedAt = &at
	}
	return &out
}

func cloneSession(s *model.Session) *model.Session {
	out := *s
	return &out
}

func (r *AccessRepository) FindAccessCodeByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[code]
	if !ok {
		return nil, repository.ErrAccessCodeNotFound
	}
	return cloneCode(c), nil
}

func (r *AccessRepository) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *AccessRepository) InsertSessionIfAbsent(ctx context.Context, session *model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.SessionToken]; exists {
		return repository.ErrSessionExists
	}
	r.sessions[session.SessionToken] = cloneSession(session)
	return nil
}

func (r *AccessRepository) SetActivatedAtIfNull(ctx context.Context, accessCodeID string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byID[accessCodeID]
	if !ok {
		return false, repository.ErrAccessCodeNotFound
	}
	c := r.codes[code]
	if c.ActivatedAt != nil {
		return false, nil
	}
	at = at.UTC()
	c.ActivatedAt = &at
	r.activationWrites++
	return true, nil
}

func (r *AccessRepository) TouchLastAccess(ctx context.Context, token string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.LastAccessAt = at.UTC()
	return nil
}

func (r *AccessRepository) ListAccessCodes(ctx context.Context) ([]*model.AccessCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.AccessCode, 0, len(r.codes))
	for _, c := range r.codes {
		out = append(out, cloneCode(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.order[out[i].Code] > r.order[out[j].Code]
	})
	return out, nil
}

func (r *AccessRepository) CreateAccessCode(ctx context.Context, code *model.AccessCode) error {
	if code == nil {
		return errors.New("access code cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[code.Code]; exists {
		return repository.ErrDuplicateCode
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	r.seq++
	r.order[code.Code] = r.seq
	r.codes[code.Code] = cloneCode(code)
	r.byID[code.ID] = code.Code
	return nil
}

func (r *AccessRepository) ResetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	return r.update(ctx, code, func(c *model.AccessCode) {
		c.IsActive = true
		c.ActivatedAt = nil
	})
}

func (r *AccessRepository) SetAccessCodeActive(ctx context.Context, code string, active bool) (*model.AccessCode, error) {
	return r.update(ctx, code, func(c *model.AccessCode) {
		c.IsActive = active
	})
}

func (r *AccessRepository) update(ctx context.Context, code string, fn func(*model.AccessCode)) (*model.AccessCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[code]
	if !ok {
		return nil, repository.ErrAccessCodeNotFound
	}
	fn(c)
	return cloneCode(c), nil
}

// ActivationWriteCount returns how many activations were recorded
func (r *AccessRepository) ActivationWriteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activationWrites
}

// SessionCount returns the number of stored sessions
func (r *AccessRepository) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *AccessRepository) Ping(ctx context.Context) error  { return ctx.Err() }
func (r *AccessRepository) Close(ctx context.Context) error { return nil }

var _ repository.AccessRepository = (*AccessRepository)(nil)
