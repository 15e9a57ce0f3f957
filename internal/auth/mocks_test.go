package auth

import (
	"context"
	"sync"
	"time"

	"github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
	tokenDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/token"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/nhatdang2003/tms-backend/internal/core/events"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Str0ng!Pass"

// mockAccounts is an in-memory credential store.
type mockAccounts struct {
	mu    sync.Mutex
	users map[int64]*userDatamodel.User
	err   error
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{users: map[int64]*userDatamodel.User{}}
}

func (m *mockAccounts) add(id int64, email, status string, role *rbac.Role) *userDatamodel.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	u := &userDatamodel.User{
		ID:           id,
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
		Status:       status,
		Role:         role,
	}
	if role != nil {
		u.RoleID = &role.ID
	}
	m.mu.Lock()
	m.users[id] = u
	m.mu.Unlock()
	return u
}

func (m *mockAccounts) setStatus(id int64, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Status = status
}

func (m *mockAccounts) setRole(id int64, role *rbac.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Role = role
}

func (m *mockAccounts) FindByID(_ context.Context, id int64) (*userDatamodel.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockAccounts) FindByEmail(_ context.Context, email string) (*userDatamodel.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAccounts) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

// mockTokenRepo keeps refresh token rows in memory with the same conditional
// semantics as the SQL repository.
type mockTokenRepo struct {
	mu       sync.Mutex
	rows     []*tokenDatamodel.RefreshToken
	nextID   int64
	accounts *mockAccounts
	// staleLookups makes the next device lookups miss, as when a concurrent
	// login has not committed yet.
	staleLookups int
}

func newMockTokenRepo(accounts *mockAccounts) *mockTokenRepo {
	return &mockTokenRepo{accounts: accounts}
}

func (m *mockTokenRepo) FindLiveByUserAndDevice(_ context.Context, userID int64, deviceInfo string) (*tokenDatamodel.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleLookups > 0 {
		m.staleLookups--
		return nil, nil
	}
	for i := len(m.rows) - 1; i >= 0; i-- {
		row := m.rows[i]
		if row.UserID == userID && row.DeviceInfo == deviceInfo && !row.IsRevoked {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockTokenRepo) FindByToken(ctx context.Context, token string) (*tokenDatamodel.RefreshToken, error) {
	m.mu.Lock()
	var found *tokenDatamodel.RefreshToken
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Token == token {
			cp := *m.rows[i]
			found = &cp
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return nil, nil
	}
	if m.accounts != nil {
		found.User, _ = m.accounts.FindByID(ctx, found.UserID)
	}
	return found, nil
}

func (m *mockTokenRepo) Create(_ context.Context, row *tokenDatamodel.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.DeviceInfo != "" {
		for _, existing := range m.rows {
			if existing.UserID == row.UserID && existing.DeviceInfo == row.DeviceInfo && !existing.IsRevoked {
				return tokenDatamodel.ErrLiveSessionExists
			}
		}
	}
	m.nextID++
	row.ID = m.nextID
	cp := *row
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockTokenRepo) ReplaceToken(_ context.Context, id int64, expected, token string, expiresAt time.Time, ipAddress string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id && row.Token == expected && !row.IsRevoked {
			row.Token = token
			row.ExpiresAt = expiresAt
			row.IPAddress = ipAddress
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTokenRepo) Revoke(_ context.Context, token, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revoked := false
	for _, row := range m.rows {
		if row.Token == token && !row.IsRevoked {
			revokeRow(row, reason, at)
			revoked = true
		}
	}
	return revoked, nil
}

func (m *mockTokenRepo) RevokeAllForUser(_ context.Context, userID int64, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, row := range m.rows {
		if row.UserID == userID && !row.IsRevoked {
			revokeRow(row, reason, at)
			count++
		}
	}
	return count, nil
}

func (m *mockTokenRepo) live(userID int64) []tokenDatamodel.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tokenDatamodel.RefreshToken
	for _, row := range m.rows {
		if row.UserID == userID && !row.IsRevoked {
			out = append(out, *row)
		}
	}
	return out
}

func revokeRow(row *tokenDatamodel.RefreshToken, reason string, at time.Time) {
	row.IsRevoked = true
	row.RevokedAt = &at
	row.RevokedReason = reason
}

// recordingPublisher keeps published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testRoles() (admin, technician, wildcard *rbac.Role) {
	admin = &rbac.Role{ID: 1, Name: AdminRoleName}
	technician = &rbac.Role{ID: 2, Name: TechnicianRoleName, Permissions: []rbac.Permission{
		{ID: 1, Name: "tickets:read"},
		{ID: 2, Name: "tickets:update"},
	}}
	wildcard = &rbac.Role{ID: 3, Name: "AUDITOR", Permissions: []rbac.Permission{
		{ID: 3, Name: WildcardPermission},
	}}
	return admin, technician, wildcard
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:     []byte("test-access-secret"),
		RefreshSecret:    []byte("test-refresh-secret"),
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		PasswordResetTTL: 15 * time.Minute,
	}
}
