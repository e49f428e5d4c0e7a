package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// In-memory user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	nextID      int
	touched     map[string]time.Time
	loginTouchs int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User), touched: make(map[string]time.Time)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Permissions = append([]domain.Permission(nil), u.Permissions...)
	return &clone
}

func (r *stubUserRepo) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		r.nextID++
		u.ID = "u" + strconv.Itoa(r.nextID)
	}
	r.users[u.ID] = cloneUser(u)
	return u
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username ||
			(user.NationalID != "" && u.NationalID == user.NationalID) {
			r.mu.Unlock()
			return nil, domain.ErrUserExists
		}
	}
	r.mu.Unlock()
	created := r.put(cloneUser(user))
	return cloneUser(created), nil
}

func (r *stubUserRepo) FindByLogin(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == identifier || u.Username == identifier {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := cloneUser(u)
	clone.PasswordHash = ""
	return clone, nil
}

func (r *stubUserRepo) FindCredentials(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[id] = at
	return nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loginTouchs++
	if u, ok := r.users[id]; ok {
		u.LastLogin = at
	}
	return nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) SetStatus(_ context.Context, id string, status domain.AccountStatus) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.IsActive, u.IsSuspended, u.IsVerified = status.IsActive, status.IsSuspended, status.IsVerified
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetPermissions(_ context.Context, id string, perms []domain.Permission) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Permissions = perms
	return cloneUser(u), nil
}

type recordingActivity struct {
	mu  sync.Mutex
	ids []string
}

func (a *recordingActivity) Record(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = append(a.ids, userID)
}

// ---------------------------------------------------------------------------
// In-memory sequence store (atomic under its mutex, like the Mongo $inc)
// ---------------------------------------------------------------------------

type stubSequence struct {
	mu       sync.Mutex
	counters map[string]int64
	seeds    int
	nextErr  error
	seedErr  error
}

func newStubSequence() *stubSequence {
	return &stubSequence{counters: make(map[string]int64)}
}

func (s *stubSequence) Seed(_ context.Context, key string, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seedErr != nil {
		return s.seedErr
	}
	s.seeds++
	if s.counters[key] < floor {
		s.counters[key] = floor
	}
	return nil
}

func (s *stubSequence) Next(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextErr != nil {
		return 0, s.nextErr
	}
	s.counters[key]++
	return s.counters[key], nil
}

// ---------------------------------------------------------------------------
// In-memory record repository
// ---------------------------------------------------------------------------

type stubLatest struct {
	number string
	err    error
}

func (l stubLatest) LatestNumber(context.Context) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if l.number == "" {
		return "", domain.ErrRecordNotFound
	}
	return l.number, nil
}

type stubRecordRepo[R domain.NumberedRecord] struct {
	mu        sync.Mutex
	byID      map[string]R
	order     []string
	numbers   map[string]bool
	nextID    int
	createErr error
	// extraNumbers are treated as already taken (rows written behind the
	// counter's back) and reported by LatestNumber.
	extraNumbers []string
}

func newStubRecordRepo[R domain.NumberedRecord]() *stubRecordRepo[R] {
	return &stubRecordRepo[R]{byID: make(map[string]R), numbers: make(map[string]bool)}
}

func (r *stubRecordRepo[R]) Create(_ context.Context, rec R) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	meta := rec.Meta()
	if r.numbers[meta.Number] {
		return domain.ErrDuplicateNumber
	}
	for _, n := range r.extraNumbers {
		if n == meta.Number {
			return domain.ErrDuplicateNumber
		}
	}
	r.nextID++
	meta.ID = "r" + strconv.Itoa(r.nextID)
	r.numbers[meta.Number] = true
	r.byID[meta.ID] = rec
	r.order = append(r.order, meta.ID)
	return nil
}

func (r *stubRecordRepo[R]) FindByID(_ context.Context, id string) (R, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		var zero R
		return zero, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (r *stubRecordRepo[R]) LatestNumber(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.extraNumbers); n > 0 {
		return r.extraNumbers[n-1], nil
	}
	if len(r.order) == 0 {
		return "", domain.ErrRecordNotFound
	}
	return r.byID[r.order[len(r.order)-1]].Meta().Number, nil
}

func (r *stubRecordRepo[R]) List(_ context.Context, f ports.RecordFilter) ([]R, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []R
	for _, id := range r.order {
		rec := r.byID[id]
		if f.OwnerID != "" && rec.OwnerRef() != f.OwnerID {
			continue
		}
		if f.Status != "" && rec.Meta().Status != f.Status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Meta().CreatedAt.After(matched[j].Meta().CreatedAt)
	})
	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip > len(matched) {
		return nil, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r *stubRecordRepo[R]) UpdateStatus(_ context.Context, id string, change ports.StatusChange) (R, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero R
	rec, ok := r.byID[id]
	if !ok {
		return zero, domain.ErrRecordNotFound
	}
	meta := rec.Meta()
	if meta.Status != change.From {
		return zero, &domain.Error{Kind: domain.ErrConflict, Reason: domain.ReasonStaleStatus, Message: "status changed concurrently"}
	}
	meta.Status = change.To
	meta.StatusHistory = append(meta.StatusHistory, domain.StatusHistoryEntry{
		Status: change.To, ChangedBy: change.ChangedBy, Notes: change.Notes, Timestamp: time.Now().UTC(),
	})
	return rec, nil
}
