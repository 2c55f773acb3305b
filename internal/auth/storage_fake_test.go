package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"fastdo_auth/internal/models"
	"fastdo_auth/internal/storage"
)

// memStore хранит данные в памяти. Транзакции выполняются по одной над копией
// данных, копия становится основной только при успешном завершении fn.
type memStore struct {
	memRepo
	mu sync.Mutex
}

type memData struct {
	users     map[int64]models.User
	roles     map[string]models.Role
	userRoles map[int64][]int64
	tokens    map[int64]models.RefreshToken

	nextUserID  int64
	nextTokenID int64
}

type failures struct {
	assignRole  error
	saveRefresh error
	updateUser  error
}

type memRepo struct {
	d    *memData
	fail *failures
	lock *sync.Mutex
}

func newMemStore() *memStore {
	s := &memStore{}
	s.d = &memData{
		users: map[int64]models.User{},
		roles: map[string]models.Role{
			"user":  {ID: 1, Code: "user", Name: "User"},
			"admin": {ID: 2, Code: "admin", Name: "Administrator"},
		},
		userRoles: map[int64][]int64{},
		tokens:    map[int64]models.RefreshToken{},
	}
	s.fail = &failures{}
	s.lock = &s.mu

	return s
}

func (s *memStore) WithTx(ctx context.Context, fn storage.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()

	if err := fn(ctx, &memRepo{d: snapshot, fail: s.fail}); err != nil {
		return err
	}

	*s.d = *snapshot

	return nil
}

// tokenRows возвращает копию строк refresh токенов пользователя.
func (s *memStore) tokenRows(userID int64) []models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []models.RefreshToken
	for _, rt := range s.d.tokens {
		if rt.UserID == userID {
			rows = append(rows, rt)
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	return rows
}

func (s *memStore) user(id int64) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.d.users[id]
}

func (s *memStore) putUser(u models.User, roleCodes ...string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.d.nextUserID++
	u.ID = s.d.nextUserID
	s.d.users[u.ID] = u

	for _, code := range roleCodes {
		s.d.userRoles[u.ID] = append(s.d.userRoles[u.ID], s.d.roles[code].ID)
	}

	return u
}

func (s *memStore) dropRole(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.d.roles, code)
}

func (s *memStore) expireTokens(userID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rt := range s.d.tokens {
		if rt.UserID == userID {
			rt.ExpiresAt = at
			s.d.tokens[id] = rt
		}
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:       make(map[int64]models.User, len(d.users)),
		roles:       make(map[string]models.Role, len(d.roles)),
		userRoles:   make(map[int64][]int64, len(d.userRoles)),
		tokens:      make(map[int64]models.RefreshToken, len(d.tokens)),
		nextUserID:  d.nextUserID,
		nextTokenID: d.nextTokenID,
	}

	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.roles {
		c.roles[k] = v
	}
	for k, v := range d.userRoles {
		c.userRoles[k] = append([]int64(nil), v...)
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}

	return c
}

func (r *memRepo) guard() func() {
	if r.lock == nil {
		return func() {}
	}

	r.lock.Lock()
	return r.lock.Unlock
}

func (r *memRepo) SaveUser(_ context.Context, u models.User) (int64, error) {
	defer r.guard()()

	for _, existing := range r.d.users {
		if existing.Email == u.Email {
			return 0, storage.ErrUserExists
		}
	}

	r.d.nextUserID++
	u.ID = r.d.nextUserID
	r.d.users[u.ID] = u

	return u.ID, nil
}

func (r *memRepo) UpdateUser(_ context.Context, u models.User) error {
	defer r.guard()()

	if r.fail.updateUser != nil {
		return r.fail.updateUser
	}

	if _, ok := r.d.users[u.ID]; !ok {
		return storage.ErrUserNotFound
	}

	for id, existing := range r.d.users {
		if id != u.ID && existing.Email == u.Email {
			return storage.ErrUserExists
		}
	}

	r.d.users[u.ID] = u

	return nil
}

func (r *memRepo) UserByID(_ context.Context, id int64) (models.User, error) {
	defer r.guard()()

	u, ok := r.d.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (r *memRepo) UserByEmail(_ context.Context, email string) (models.User, error) {
	defer r.guard()()

	for _, u := range r.d.users {
		if u.Email == email {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (r *memRepo) RoleByCode(_ context.Context, code string) (models.Role, error) {
	defer r.guard()()

	role, ok := r.d.roles[code]
	if !ok {
		return models.Role{}, storage.ErrRoleNotFound
	}

	return role, nil
}

func (r *memRepo) UserRoles(_ context.Context, userID int64) ([]string, error) {
	defer r.guard()()

	codes := make([]string, 0, 1)
	for _, roleID := range r.d.userRoles[userID] {
		for _, role := range r.d.roles {
			if role.ID == roleID {
				codes = append(codes, role.Code)
			}
		}
	}

	sort.Strings(codes)

	return codes, nil
}

func (r *memRepo) AssignRole(_ context.Context, userID, roleID int64) error {
	defer r.guard()()

	if r.fail.assignRole != nil {
		return r.fail.assignRole
	}

	r.d.userRoles[userID] = append(r.d.userRoles[userID], roleID)

	return nil
}

func (r *memRepo) SaveRefreshToken(_ context.Context, rt models.RefreshToken) (int64, error) {
	defer r.guard()()

	if r.fail.saveRefresh != nil {
		return 0, r.fail.saveRefresh
	}

	r.d.nextTokenID++
	rt.ID = r.d.nextTokenID
	rt.CreatedAt = time.Now()
	r.d.tokens[rt.ID] = rt

	return rt.ID, nil
}

func (r *memRepo) RefreshTokens(_ context.Context, userID int64) ([]models.RefreshToken, error) {
	defer r.guard()()

	var rows []models.RefreshToken
	for _, rt := range r.d.tokens {
		if rt.UserID == userID {
			rows = append(rows, rt)
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	return rows, nil
}

func (r *memRepo) DeleteRefreshToken(_ context.Context, id int64) error {
	defer r.guard()()

	if _, ok := r.d.tokens[id]; !ok {
		return storage.ErrRefreshTokenNotFound
	}

	delete(r.d.tokens, id)

	return nil
}

func (r *memRepo) DeleteUserRefreshTokens(_ context.Context, userID int64) (int64, error) {
	defer r.guard()()

	var n int64
	for id, rt := range r.d.tokens {
		if rt.UserID == userID {
			delete(r.d.tokens, id)
			n++
		}
	}

	return n, nil
}

func (r *memRepo) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	defer r.guard()()

	var n int64
	for id, rt := range r.d.tokens {
		if rt.ExpiresAt.Before(now) {
			delete(r.d.tokens, id)
			n++
		}
	}

	return n, nil
}

func (r *memRepo) TrimRefreshTokens(_ context.Context, userID int64, keep int) (int64, error) {
	defer r.guard()()

	if keep <= 0 {
		return 0, nil
	}

	var rows []models.RefreshToken
	for _, rt := range r.d.tokens {
		if rt.UserID == userID {
			rows = append(rows, rt)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ExpiresAt.Equal(rows[j].ExpiresAt) {
			return rows[i].ExpiresAt.After(rows[j].ExpiresAt)
		}
		return rows[i].ID > rows[j].ID
	})

	var n int64
	for i := keep; i < len(rows); i++ {
		delete(r.d.tokens, rows[i].ID)
		n++
	}

	return n, nil
}

type sentMail struct {
	purpose string
	to      string
	token   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{fail: map[string]error{}}
}

func (m *fakeMailer) SendConfirmationEmail(_ context.Context, to, token string) error {
	return m.record(models.PurposeEmailConfirmation, to, token)
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	return m.record(models.PurposePasswordReset, to, token)
}

func (m *fakeMailer) SendEmailChangeConfirmation(_ context.Context, to, token string) error {
	return m.record(models.PurposeEmailChange, to, token)
}

func (m *fakeMailer) record(purpose, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail[purpose]; err != nil {
		return err
	}

	m.sent = append(m.sent, sentMail{purpose: purpose, to: to, token: token})

	return nil
}

// last возвращает последний токен, отправленный на адрес с указанным назначением.
func (m *fakeMailer) last(purpose, to string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].purpose == purpose && m.sent[i].to == to {
			return m.sent[i].token, nil
		}
	}

	return "", errors.New("no mail sent")
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}
