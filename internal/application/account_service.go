package application

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/ramadhanik/account-service/internal/domain/entity"
	repo "github.com/ramadhanik/account-service/internal/domain/repository"
	"github.com/ramadhanik/account-service/pkg/helpers"
	"github.com/ramadhanik/account-service/pkg/mailer"
	"github.com/ramadhanik/account-service/pkg/resettoken"
)

// Publisher enqueues mail jobs. The RabbitMQ publisher satisfies it; tests
// substitute a recorder.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type Service struct {
	Repo            repo.AccountRepository
	JWT             *helpers.JWTManager
	Reset           *resettoken.Generator
	Pub             Publisher
	Logger          *logrus.Logger
	ES              *elasticsearch.Client
	ESAccountsIndex string
	ResetURLBase    string
	MailEnabled     bool
}

func NewService(r repo.AccountRepository, jwt *helpers.JWTManager, reset *resettoken.Generator, pub Publisher, logger *logrus.Logger, es *elasticsearch.Client, esIndex, resetURLBase string, mailEnabled bool) *Service {
	return &Service{
		Repo:            r,
		JWT:             jwt,
		Reset:           reset,
		Pub:             pub,
		Logger:          logger,
		ES:              es,
		ESAccountsIndex: esIndex,
		ResetURLBase:    resetURLBase,
		MailEnabled:     mailEnabled,
	}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type RegisterInput struct {
	Email       string
	Name        string
	Terms       bool
	Password    string
	Password2   string
	DateOfBirth *time.Time
}

// NormalizeEmail lowercases and trims the login identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and issues its first token pair. Duplicate
// emails surface as ErrConflict; the unique index resolves concurrent
// registrations to one winner.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.Account, TokenPair, error) {
	errs := FieldErrors{}
	if !in.Terms {
		errs["terms"] = append(errs["terms"], "You must accept the terms")
	}
	if in.Password != in.Password2 {
		errs[NonFieldKey] = append(errs[NonFieldKey], "Passwords does not match")
	}
	if len(errs) > 0 {
		return nil, TokenPair{}, errs
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	a := &entity.Account{
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Name:         in.Name,
		Terms:        in.Terms,
		DateOfBirth:  in.DateOfBirth,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, TokenPair{}, ErrConflict
		}
		return nil, TokenPair{}, err
	}

	pair, err := s.issueTokens(a.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.indexAccount(ctx, a)
	return a, pair, nil
}

// Login verifies credentials and issues a token pair. A missing account and a
// wrong password are indistinguishable to the caller. Success stamps
// last_login, which also invalidates any outstanding reset token.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.Account, TokenPair, error) {
	a, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if !a.IsActive || !helpers.CompareHashAndPassword(a.PasswordHash, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	refreshed, err := s.Repo.UpdateLastLogin(ctx, a.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.issueTokens(refreshed.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return refreshed, pair, nil
}

// Refresh re-issues a token pair from a valid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	id, err := claims.AccountID()
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !a.IsActive {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issueTokens(a.ID)
}

func (s *Service) Profile(ctx context.Context, id int64) (*entity.Account, error) {
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// ChangePassword sets a new hash for an authenticated account. The current
// password is not re-checked; possession of a valid access token suffices.
func (s *Service) ChangePassword(ctx context.Context, id int64, password, password2 string) error {
	if password != password2 {
		return nonFieldError("Passwords does not match")
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// RequestReset computes a derived reset token for the account and enqueues the
// reset email. Nothing is persisted; the token's validity hangs off current
// account state. An unknown email is reported to the caller, matching the
// documented contract.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	a, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return FieldErrors{"email": {"User with given email does not exists"}}
		}
		return err
	}
	uid := resettoken.EncodeUID(a.ID)
	token := s.Reset.Make(a.ID, a.PasswordHash, a.LastLogin)
	job := mailer.ResetMail(a.Email, a.Name, s.ResetURLBase, uid, token)

	// Mail dispatch is fire and forget; a publish failure never rolls back
	// the success response.
	if s.Pub != nil && s.MailEnabled {
		if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", a.ID).Warn("reset mail enqueue failed")
		}
	}
	return nil
}

// RedeemReset verifies a (uid, token) pair against current account state and,
// on success, installs the new password hash. That mutation is exactly what
// makes the token single-use: the value it was derived from is gone.
func (s *Service) RedeemReset(ctx context.Context, uid, token, password, password2 string) error {
	if password != password2 {
		return nonFieldError("Passwords does not match")
	}
	id, err := resettoken.DecodeUID(uid)
	if err != nil {
		return ErrInvalidToken
	}
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if !s.Reset.Check(a.ID, a.PasswordHash, a.LastLogin, token) {
		return ErrInvalidToken
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, a.ID, hash); err != nil {
		return err
	}
	return nil
}

func (s *Service) issueTokens(accountID int64) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(accountID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", accountID).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(accountID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", accountID).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// indexAccount mirrors non-secret account fields to Elasticsearch, best effort.
func (s *Service) indexAccount(ctx context.Context, a *entity.Account) {
	if s.ES == nil || s.ESAccountsIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         a.ID,
		"email":      a.Email,
		"name":       a.Name,
		"is_active":  a.IsActive,
		"is_admin":   a.IsAdmin,
		"created_at": a.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": a.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESAccountsIndex, DocumentID: strconv.FormatInt(a.ID, 10), Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", a.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("account_id", a.ID).Warn("es index response error")
	}
}

// Search performs a simple multi_match search on email and name.
func (s *Service) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESAccountsIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESAccountsIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
