package dice

//go:generate mockgen -destination=mock/mock_service.go -package=mockdiceservice -source=service.go

import (
	"context"
	"time"

	"github.com/rollinit/rollinit/internal/dice"
	"github.com/rollinit/rollinit/internal/domain/session"
	rollerr "github.com/rollinit/rollinit/internal/errors"
	"github.com/rollinit/rollinit/internal/repositories/dicerolls"
	"github.com/rollinit/rollinit/internal/uuid"
)

// Service defines the dice service interface
type Service interface {
	// Roll parses a notation, draws the dice, and logs the result
	Roll(ctx context.Context, input *RollInput) (*session.DiceRoll, error)
}

// RollInput contains data for a manual dice roll
type RollInput struct {
	SessionID  string
	Notation   string
	RollerName string
	IsPrivate  bool
}

type service struct {
	repository    dicerolls.Repository
	roller        dice.Roller
	uuidGenerator uuid.Generator
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository    dicerolls.Repository
	Roller        dice.Roller
	UUIDGenerator uuid.Generator
}

// NewService creates a new dice service
func NewService(cfg *ServiceConfig) Service {
	if cfg.Repository == nil {
		panic("repository is required")
	}

	svc := &service{
		repository:    cfg.Repository,
		roller:        cfg.Roller,
		uuidGenerator: cfg.UUIDGenerator,
	}
	if svc.roller == nil {
		svc.roller = dice.NewRandomRoller()
	}
	if svc.uuidGenerator == nil {
		svc.uuidGenerator = uuid.NewGoogleUUIDGenerator()
	}
	return svc
}

func (s *service) Roll(ctx context.Context, input *RollInput) (*session.DiceRoll, error) {
	notation, err := dice.Parse(input.Notation)
	if err != nil {
		return nil, err
	}

	result := s.roller.Roll(notation)

	roll := &session.DiceRoll{
		ID:         s.uuidGenerator.New(),
		SessionID:  input.SessionID,
		Notation:   input.Notation,
		Rolls:      result.Rolls,
		Modifier:   result.Modifier,
		Total:      result.Total,
		RollerName: input.RollerName,
		IsPrivate:  input.IsPrivate,
		CreatedAt:  time.Now(),
	}
	if err := s.repository.Create(ctx, roll); err != nil {
		return nil, rollerr.Wrap(err, "failed to log dice roll")
	}
	return roll, nil
}
