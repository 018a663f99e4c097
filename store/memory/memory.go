// Package memory is an in-process store.Store. Transactions are serialized
// behind one mutex and roll back by restoring a snapshot, which makes it a
// faithful stand-in for the postgres store in tests and single-node
// development.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

type sessionRow struct {
	userID    uuid.UUID
	email     string
	createdAt time.Time
	expiresAt time.Time
}

type state struct {
	users       map[uuid.UUID]account.User
	usersByMail map[string]uuid.UUID
	tokens      map[uuid.UUID]token.Record
	tokenByHash map[string]uuid.UUID
	sessions    map[string]sessionRow
}

func (s *state) clone() state {
	return state{
		users:       maps.Clone(s.users),
		usersByMail: maps.Clone(s.usersByMail),
		tokens:      maps.Clone(s.tokens),
		tokenByHash: maps.Clone(s.tokenByHash),
		sessions:    maps.Clone(s.sessions),
	}
}

// Store keeps everything in maps guarded by a single mutex.
type Store struct {
	mu sync.Mutex
	st state
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Purger = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{st: state{
		users:       make(map[uuid.UUID]account.User),
		usersByMail: make(map[string]uuid.UUID),
		tokens:      make(map[uuid.UUID]token.Record),
		tokenByHash: make(map[string]uuid.UUID),
		sessions:    make(map[string]sessionRow),
	}}
}

// InTx runs fn with exclusive access to the store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &memTx{st: &s.st}
	if err := fn(ctx, tx); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// PurgeExpired deletes sessions expired at now and tokens expired before before.
func (s *Store) PurgeExpired(ctx context.Context, now, before time.Time) (store.PurgeResult, error) {
	if err := ctx.Err(); err != nil {
		return store.PurgeResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res store.PurgeResult
	for hash, row := range s.st.sessions {
		if !now.Before(row.expiresAt) {
			delete(s.st.sessions, hash)
			res.Sessions++
		}
	}
	for id, rec := range s.st.tokens {
		if rec.ExpiresAt.Before(before) {
			delete(s.st.tokens, id)
			delete(s.st.tokenByHash, rec.ValueHash)
			res.Tokens++
		}
	}
	return res, nil
}

type memTx struct {
	st *state
}

func (t *memTx) Users() store.CredentialStore { return users{t.st} }
func (t *memTx) Tokens() store.TokenStore     { return tokens{t.st} }
func (t *memTx) Sessions() store.SessionStore { return sessions{t.st} }

type users struct{ st *state }

func (u users) FindByEmail(_ context.Context, email string) (*account.User, error) {
	id, ok := u.st.usersByMail[account.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u.copyOf(id)
}

func (u users) FindByID(_ context.Context, id uuid.UUID) (*account.User, error) {
	return u.copyOf(id)
}

func (u users) copyOf(id uuid.UUID) (*account.User, error) {
	rec, ok := u.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rec.LastLoginAt != nil {
		at := *rec.LastLoginAt
		rec.LastLoginAt = &at
	}
	return &rec, nil
}

func (u users) Create(_ context.Context, usr *account.User) error {
	email := account.NormalizeEmail(usr.Email)
	if _, taken := u.st.usersByMail[email]; taken {
		return store.ErrDuplicate
	}
	if _, taken := u.st.users[usr.ID]; taken {
		return store.ErrDuplicate
	}
	rec := *usr
	rec.Email = email
	u.st.users[rec.ID] = rec
	u.st.usersByMail[email] = rec.ID
	return nil
}

func (u users) Save(_ context.Context, usr *account.User) error {
	prev, ok := u.st.users[usr.ID]
	if !ok {
		return store.ErrNotFound
	}
	rec := *usr
	rec.Email = prev.Email
	rec.CreatedAt = prev.CreatedAt
	if usr.LastLoginAt != nil {
		at := *usr.LastLoginAt
		rec.LastLoginAt = &at
	}
	u.st.users[rec.ID] = rec
	return nil
}

type tokens struct{ st *state }

func (t tokens) Create(_ context.Context, tok token.Token) error {
	rec := token.Encode(tok)
	if _, taken := t.st.tokenByHash[rec.ValueHash]; taken {
		return store.ErrDuplicate
	}
	if _, taken := t.st.tokens[rec.ID]; taken {
		return store.ErrDuplicate
	}
	t.st.tokens[rec.ID] = rec
	t.st.tokenByHash[rec.ValueHash] = rec.ID
	return nil
}

func (t tokens) FindByValue(_ context.Context, value string) (token.Token, error) {
	id, ok := t.st.tokenByHash[token.HashValue(value)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return token.Decode(t.st.tokens[id], value)
}

func (t tokens) DeleteAllForUser(_ context.Context, userID uuid.UUID, kind token.Kind) error {
	for id, rec := range t.st.tokens {
		if rec.UserID == userID && rec.Kind == kind {
			delete(t.st.tokens, id)
			delete(t.st.tokenByHash, rec.ValueHash)
		}
	}
	return nil
}

func (t tokens) RevokeAllForUser(_ context.Context, userID uuid.UUID, kind token.Kind) error {
	for id, rec := range t.st.tokens {
		if rec.UserID == userID && rec.Kind == kind && !rec.Used {
			rec.Used = true
			t.st.tokens[id] = rec
		}
	}
	return nil
}

func (t tokens) MarkUsed(_ context.Context, id uuid.UUID) error {
	rec, ok := t.st.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Used = true
	t.st.tokens[id] = rec
	return nil
}

func (t tokens) IncrementFailedAttempts(_ context.Context, id uuid.UUID) (int, error) {
	rec, ok := t.st.tokens[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	rec.FailedAttempts++
	t.st.tokens[id] = rec
	return rec.FailedAttempts, nil
}

type sessions struct{ st *state }

func (s sessions) Create(_ context.Context, sess session.Session) error {
	hash := session.HashToken(sess.Token)
	if _, taken := s.st.sessions[hash]; taken {
		return store.ErrDuplicate
	}
	s.st.sessions[hash] = sessionRow{
		userID:    sess.UserID,
		email:     sess.Email,
		createdAt: sess.CreatedAt,
		expiresAt: sess.ExpiresAt,
	}
	return nil
}

func (s sessions) FindByToken(_ context.Context, value string) (*session.Session, error) {
	row, ok := s.st.sessions[session.HashToken(value)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &session.Session{
		Token:     value,
		UserID:    row.userID,
		Email:     row.email,
		CreatedAt: row.createdAt,
		ExpiresAt: row.expiresAt,
	}, nil
}

func (s sessions) DeleteByToken(_ context.Context, value string) error {
	delete(s.st.sessions, session.HashToken(value))
	return nil
}

func (s sessions) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	for hash, row := range s.st.sessions {
		if row.userID == userID {
			delete(s.st.sessions, hash)
		}
	}
	return nil
}
