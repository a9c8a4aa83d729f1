package session

//go:generate mockgen -destination=mock/mock_service.go -package=mocksession -source=service.go

import (
	"context"
	"strings"
	"time"

	"github.com/rollinit/rollinit/internal/domain/session"
	rollerr "github.com/rollinit/rollinit/internal/errors"
	"github.com/rollinit/rollinit/internal/joincode"
	"github.com/rollinit/rollinit/internal/repositories/sessions"
	"github.com/rollinit/rollinit/internal/uuid"
)

// maxCodeAttempts bounds how often we retry join-code generation before
// giving up on the whole action.
const maxCodeAttempts = 10

// Service defines the session service interface
type Service interface {
	// CreateSession creates a session with a fresh join code and DM token
	CreateSession(ctx context.Context) (*session.Session, error)

	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*session.Session, error)

	// GetByJoinCode retrieves a session; codes are case-insensitive
	GetByJoinCode(ctx context.Context, joinCode string) (*session.Session, error)

	// Authorize retrieves a session and verifies the DM token
	Authorize(ctx context.Context, joinCode, dmToken string) (*session.Session, error)

	// ToggleLock flips the join lock (DM action)
	ToggleLock(ctx context.Context, joinCode, dmToken string) (*session.Session, error)

	// RegenerateCode replaces the join code with a fresh unique one (DM
	// action). Returns the updated session and the code it replaced.
	RegenerateCode(ctx context.Context, joinCode, dmToken string) (*session.Session, string, error)

	// UpdateSettings edits the password and physical-dice flag (DM action)
	UpdateSettings(ctx context.Context, joinCode, dmToken string, input *UpdateSettingsInput) (*session.Session, error)

	// ValidatePassword reports whether the password grants access
	ValidatePassword(ctx context.Context, joinCode, password string) (bool, error)
}

// UpdateSettingsInput carries a partial settings edit. Nil fields are left
// alone.
type UpdateSettingsInput struct {
	Password     *string
	PhysicalDice *bool
}

type service struct {
	repository    sessions.Repository
	codeGenerator joincode.Generator
	uuidGenerator uuid.Generator
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository    sessions.Repository
	CodeGenerator joincode.Generator
	UUIDGenerator uuid.Generator
}

// NewService creates a new session service
func NewService(cfg *ServiceConfig) Service {
	if cfg.Repository == nil {
		panic("repository is required")
	}
	if cfg.CodeGenerator == nil {
		panic("join code generator is required")
	}

	svc := &service{
		repository:    cfg.Repository,
		codeGenerator: cfg.CodeGenerator,
		uuidGenerator: cfg.UUIDGenerator,
	}
	if svc.uuidGenerator == nil {
		svc.uuidGenerator = uuid.NewGoogleUUIDGenerator()
	}
	return svc
}

func (s *service) CreateSession(ctx context.Context) (*session.Session, error) {
	code, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:        s.uuidGenerator.New(),
		JoinCode:  code,
		DMToken:   s.uuidGenerator.New(),
		CreatedAt: time.Now(),
	}

	if err := s.repository.Create(ctx, sess); err != nil {
		return nil, rollerr.Wrap(err, "failed to create session")
	}
	return sess, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.repository.Get(ctx, sessionID)
}

func (s *service) GetByJoinCode(ctx context.Context, joinCode string) (*session.Session, error) {
	return s.repository.GetByJoinCode(ctx, strings.ToUpper(joinCode))
}

func (s *service) Authorize(ctx context.Context, joinCode, dmToken string) (*session.Session, error) {
	sess, err := s.GetByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, err
	}
	if !sess.IsDM(dmToken) {
		return nil, rollerr.PermissionDenied("unauthorized")
	}
	return sess, nil
}

func (s *service) ToggleLock(ctx context.Context, joinCode, dmToken string) (*session.Session, error) {
	sess, err := s.Authorize(ctx, joinCode, dmToken)
	if err != nil {
		return nil, err
	}

	sess.IsLocked = !sess.IsLocked
	if err := s.repository.Update(ctx, sess); err != nil {
		return nil, rollerr.Wrap(err, "failed to toggle lock")
	}
	return sess, nil
}

func (s *service) RegenerateCode(ctx context.Context, joinCode, dmToken string) (*session.Session, string, error) {
	sess, err := s.Authorize(ctx, joinCode, dmToken)
	if err != nil {
		return nil, "", err
	}

	newCode, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return nil, "", err
	}

	oldCode := sess.JoinCode
	sess.JoinCode = newCode
	if err := s.repository.Update(ctx, sess); err != nil {
		return nil, "", rollerr.Wrap(err, "failed to regenerate join code")
	}
	return sess, oldCode, nil
}

func (s *service) UpdateSettings(ctx context.Context, joinCode, dmToken string, input *UpdateSettingsInput) (*session.Session, error) {
	sess, err := s.Authorize(ctx, joinCode, dmToken)
	if err != nil {
		return nil, err
	}

	if input.Password != nil {
		sess.Password = *input.Password
	}
	if input.PhysicalDice != nil {
		sess.PhysicalDice = *input.PhysicalDice
	}

	if err := s.repository.Update(ctx, sess); err != nil {
		return nil, rollerr.Wrap(err, "failed to update settings")
	}
	return sess, nil
}

func (s *service) ValidatePassword(ctx context.Context, joinCode, password string) (bool, error) {
	sess, err := s.GetByJoinCode(ctx, joinCode)
	if err != nil {
		return false, err
	}
	return sess.CheckPassword(password), nil
}

// uniqueJoinCode generates codes until one is unused, bounded by
// maxCodeAttempts.
func (s *service) uniqueJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.codeGenerator.New()
		_, err := s.repository.GetByJoinCode(ctx, code)
		if rollerr.IsNotFound(err) {
			return code, nil
		}
		if err != nil {
			continue
		}
	}
	return "", rollerr.Unavailable("failed to generate unique join code")
}
