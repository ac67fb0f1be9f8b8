package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramadhanik/account-service/internal/domain/entity"
	repo "github.com/ramadhanik/account-service/internal/domain/repository"
	"github.com/ramadhanik/account-service/pkg/helpers"
	"github.com/ramadhanik/account-service/pkg/mailer"
	"github.com/ramadhanik/account-service/pkg/resettoken"
)

// memRepo is an in-memory AccountRepository for service tests.
type memRepo struct {
	mu       sync.Mutex
	seq      int64
	accounts map[int64]*entity.Account
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: map[int64]*entity.Account{}}
}

func (r *memRepo) Create(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return repo.ErrDuplicateEmail
		}
	}
	r.seq++
	a.ID = r.seq
	a.IsActive = true
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memRepo) UpdateLastLogin(_ context.Context, id int64) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	now := time.Now().UTC()
	a.LastLogin = &now
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

// recordingPublisher captures enqueued email jobs.
type recordingPublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if job, ok := body.(mailer.EmailJob); ok {
		p.jobs = append(p.jobs, job)
	}
	return nil
}

func (p *recordingPublisher) last(t *testing.T) mailer.EmailJob {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.jobs)
	return p.jobs[len(p.jobs)-1]
}

const resetURLBase = "http://localhost:3000/account/reset"

func newTestService(pub Publisher) (*Service, *memRepo) {
	r := newMemRepo()
	jwt := helpers.NewJWTManager("test-access", "test-refresh", 15*time.Minute, 24*time.Hour)
	reset := resettoken.NewGenerator("test-reset-secret", time.Hour)
	svc := NewService(r, jwt, reset, pub, nil, nil, "", resetURLBase, true)
	return svc, r
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:     email,
		Name:      "Test User",
		Terms:     true,
		Password:  "supersecret1",
		Password2: "supersecret1",
	}
}

// linkParts pulls uid and token out of the reset link embedded in the mail body.
func linkParts(t *testing.T, job mailer.EmailJob) (uid, token string) {
	t.Helper()
	var link string
	for _, f := range strings.Fields(job.Text) {
		if strings.HasPrefix(f, resetURLBase+"/") {
			link = f
			break
		}
	}
	require.NotEmpty(t, link, "mail body must contain the reset link")
	rest := strings.TrimPrefix(link, resetURLBase+"/")
	parts := strings.SplitN(rest, "/", 2)
	require.Len(t, parts, 2)
	return parts[0], parts[1]
}

func TestService_RegisterThenLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	ctx := context.Background()

	a, pair, err := svc.Register(ctx, registerInput("Alice@Example.COM"))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", a.Email, "email is normalized")
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, a.ID, id, "token embeds the created account id")

	logged, pair2, err := svc.Login(ctx, "alice@example.com", "supersecret1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, logged.ID)
	assert.NotNil(t, logged.LastLogin, "login stamps last_login")
	assert.NotEmpty(t, pair2.AccessToken)
}

func TestService_RegisterValidation(t *testing.T) {
	t.Parallel()

	svc, r := newTestService(nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{
			name:   "password mismatch",
			mutate: func(in *RegisterInput) { in.Password2 = "different1234" },
			field:  NonFieldKey,
		},
		{
			name:   "terms not accepted",
			mutate: func(in *RegisterInput) { in.Terms = false },
			field:  "terms",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := registerInput("bob@example.com")
			tt.mutate(&in)

			_, _, err := svc.Register(ctx, in)
			require.Error(t, err)
			var fe FieldErrors
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, fe, tt.field)
			assert.Empty(t, r.accounts, "no account may be created on validation failure")
		})
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, registerInput("carol@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, registerInput("carol@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, registerInput("dave@example.com"))
	require.NoError(t, err)

	_, _, wrongPwd := svc.Login(ctx, "dave@example.com", "wrongpassword")
	_, _, noUser := svc.Login(ctx, "nobody@example.com", "whatever")

	assert.ErrorIs(t, wrongPwd, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPwd, noUser, "callers must not be able to tell the cases apart")
}

func TestService_RequestResetUnknownEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(&recordingPublisher{})

	err := svc.RequestReset(context.Background(), "ghost@example.com")
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "email")
}

func TestService_ResetFlow(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	a, _, err := svc.Register(ctx, registerInput("erin@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.RequestReset(ctx, "erin@example.com"))
	job := pub.last(t)
	assert.Equal(t, "erin@example.com", job.To)
	uid, token := linkParts(t, job)
	assert.Equal(t, resettoken.EncodeUID(a.ID), uid)

	// First redemption succeeds and installs the new password.
	require.NoError(t, svc.RedeemReset(ctx, uid, token, "brandnewpass1", "brandnewpass1"))
	_, _, err = svc.Login(ctx, "erin@example.com", "brandnewpass1")
	require.NoError(t, err)

	// Replaying the consumed token fails: the hash it was derived from is gone.
	err = svc.RedeemReset(ctx, uid, token, "anotherpass99", "anotherpass99")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ResetTokenDiesWithPasswordChange(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	a, _, err := svc.Register(ctx, registerInput("frank@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.RequestReset(ctx, "frank@example.com"))
	uid, token := linkParts(t, pub.last(t))

	// Password changes through the normal authenticated path.
	require.NoError(t, svc.ChangePassword(ctx, a.ID, "changedelsewhere1", "changedelsewhere1"))

	err = svc.RedeemReset(ctx, uid, token, "resetattempt1", "resetattempt1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ResetTokenDiesWithLogin(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, registerInput("gina@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.RequestReset(ctx, "gina@example.com"))
	uid, token := linkParts(t, pub.last(t))

	// A successful login moves last_login, one of the token's inputs.
	_, _, err = svc.Login(ctx, "gina@example.com", "supersecret1")
	require.NoError(t, err)

	err = svc.RedeemReset(ctx, uid, token, "resetattempt1", "resetattempt1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RedeemResetValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	ctx := context.Background()

	t.Run("password mismatch", func(t *testing.T) {
		err := svc.RedeemReset(ctx, "whatever", "whatever", "pass1", "pass2")
		var fe FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe, NonFieldKey)
	})

	t.Run("garbage uid", func(t *testing.T) {
		err := svc.RedeemReset(ctx, "!!!", "sometoken", "longenough1", "longenough1")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown account", func(t *testing.T) {
		err := svc.RedeemReset(ctx, resettoken.EncodeUID(9999), "sometoken", "longenough1", "longenough1")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestService_MailDispatchFailureDoesNotFailRequest(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{err: assert.AnError}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, registerInput("henry@example.com"))
	require.NoError(t, err)

	assert.NoError(t, svc.RequestReset(ctx, "henry@example.com"), "publish failure is fire and forget")
}

func TestService_ChangePasswordKeepsIssuedAccessTokens(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	ctx := context.Background()

	a, pair, err := svc.Register(ctx, registerInput("iris@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, a.ID, "afterchange123", "afterchange123"))

	// Access tokens carry no password fingerprint: they stay valid to expiry.
	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	// The new password is the one that logs in.
	_, _, err = svc.Login(ctx, "iris@example.com", "afterchange123")
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, "iris@example.com", "supersecret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Refresh(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	ctx := context.Background()

	a, pair, err := svc.Register(ctx, registerInput("judy@example.com"))
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.JWT.ParseAccessToken(next.AccessToken)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "access token must not refresh")
}

func TestService_Profile(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	ctx := context.Background()

	a, _, err := svc.Register(ctx, registerInput("kate@example.com"))
	require.NoError(t, err)

	got, err := svc.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Email, got.Email)

	_, err = svc.Profile(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

// brokenRepo simulates an unavailable database: every call fails with the
// same non-sentinel error.
type brokenRepo struct {
	err error
}

func (r *brokenRepo) Create(context.Context, *entity.Account) error { return r.err }
func (r *brokenRepo) GetByID(context.Context, int64) (*entity.Account, error) {
	return nil, r.err
}
func (r *brokenRepo) GetByEmail(context.Context, string) (*entity.Account, error) {
	return nil, r.err
}
func (r *brokenRepo) UpdatePassword(context.Context, int64, string) error { return r.err }
func (r *brokenRepo) UpdateLastLogin(context.Context, int64) (*entity.Account, error) {
	return nil, r.err
}

func TestService_StoreFailuresAreNotDomainOutcomes(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	jwt := helpers.NewJWTManager("test-access", "test-refresh", 15*time.Minute, 24*time.Hour)
	reset := resettoken.NewGenerator("test-reset-secret", time.Hour)
	svc := NewService(&brokenRepo{err: storeErr}, jwt, reset, nil, nil, nil, "", resetURLBase, false)
	ctx := context.Background()

	t.Run("login", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "supersecret1")
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("profile", func(t *testing.T) {
		_, err := svc.Profile(ctx, 7)
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("refresh", func(t *testing.T) {
		refresh, _, err := jwt.GenerateRefreshToken(7)
		require.NoError(t, err)
		_, err = svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("request reset", func(t *testing.T) {
		err := svc.RequestReset(ctx, "alice@example.com")
		assert.ErrorIs(t, err, storeErr)
		var fe FieldErrors
		assert.False(t, errors.As(err, &fe), "a store failure must not read as unknown email")
	})

	t.Run("redeem reset", func(t *testing.T) {
		err := svc.RedeemReset(ctx, resettoken.EncodeUID(7), "whatever", "newpassword12", "newpassword12")
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("change password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, 7, "newpassword12", "newpassword12")
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}
