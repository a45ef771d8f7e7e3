// Package session owns funnel sessions: creation, token auth, and the locked
// read-modify-write cycle every session-scoped workflow runs inside.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"agrofunnel/internal/domain"
	"agrofunnel/internal/funnel"
	"agrofunnel/internal/ident"
	"agrofunnel/internal/lock"
	cartrepo "agrofunnel/internal/repository/cart"
	sessrepo "agrofunnel/internal/repository/session"
	"agrofunnel/internal/retry"
	"go.uber.org/zap"
)

const defaultLanguage = "es"

type Service struct {
	sessions sessrepo.Repository
	carts    cartrepo.Repository
	locker   lock.Locker
	tokens   *Tokens
	policy   retry.Policy
	logger   *zap.Logger
	now      func() time.Time
}

func New(sessions sessrepo.Repository, carts cartrepo.Repository, locker lock.Locker, tokens *Tokens, policy retry.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		carts:    carts,
		locker:   locker,
		tokens:   tokens,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// Started is a new session with the bearer token that addresses it.
type Started struct {
	Session   *domain.Session `json:"session"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Start opens a session in the greeting step.
func (s *Service) Start(ctx context.Context, language string) (*Started, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = defaultLanguage
	}
	now := s.now().UTC()
	sess := domain.Session{
		ID:        ident.SessionID(),
		Step:      domain.StepGreeting,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var created *domain.Session
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		created, err = s.sessions.Create(ctx, sess)
		if errors.Is(err, domain.ErrAlreadyExists) {
			// an earlier attempt landed
			created, err = s.sessions.Get(ctx, sess.ID)
		}
		return err
	})
	if err != nil {
		s.logger.Error("session create failed", zap.Error(err))
		return nil, domain.Persistence(err)
	}

	token, expires, err := s.tokens.Issue(created.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session started", zap.String("session_id", created.ID), zap.String("language", language))
	return &Started{Session: created, Token: token, ExpiresAt: expires}, nil
}

// Authenticate resolves a bearer token to its session id.
func (s *Service) Authenticate(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.NewError(domain.KindUnauthenticated, "missing session token")
	}
	return s.tokens.Verify(token)
}

// Load returns the session together with its cart, without locking.
func (s *Service) Load(ctx context.Context, id string) (*domain.Session, error) {
	var sess *domain.Session
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		sess, err = s.sessions.Get(ctx, id)
		if err != nil {
			return err
		}
		sess.Cart, err = s.carts.Get(ctx, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.KindUnauthenticated, "session %s does not exist, start a new session", id)
	}
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return sess, nil
}

// Run executes fn on the session while holding its lock. The intents are checked
// against the funnel before fn runs; when fn succeeds the session moves to the step
// they lead to. An error from fn leaves the funnel step unchanged. fn may mutate
// the session metadata, which is saved afterwards.
func (s *Service) Run(ctx context.Context, id string, intents []funnel.Intent, fn func(ctx context.Context, sess *domain.Session) error) (*domain.Session, error) {
	var result *domain.Session
	err := lock.WithLock(ctx, s.locker, lock.SessionKey(id), func(ctx context.Context) error {
		sess, err := s.Load(ctx, id)
		if err != nil {
			return err
		}

		next := sess.Step
		for _, intent := range intents {
			if next, err = funnel.Next(next, intent); err != nil {
				return err
			}
		}

		if fn != nil {
			if err := fn(ctx, sess); err != nil {
				return err
			}
		}

		sess.Step = next
		sess.UpdatedAt = s.now().UTC()
		err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
			_, err := s.sessions.Update(ctx, *sess)
			return err
		})
		if err != nil {
			if fn == nil {
				return domain.Persistence(err)
			}
			// fn's own effects are already stored; only the step bookkeeping is stale
			s.logger.Warn("session update failed after workflow", zap.String("session_id", id), zap.Error(err))
		}
		result = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Advance applies a single intent to the session.
func (s *Service) Advance(ctx context.Context, id string, intent funnel.Intent) (*domain.Session, error) {
	sess, err := s.Run(ctx, id, []funnel.Intent{intent}, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("funnel advanced", zap.String("session_id", id), zap.String("intent", string(intent)), zap.String("step", string(sess.Step)))
	return sess, nil
}
