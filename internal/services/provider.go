package services

import (
	"github.com/rollinit/rollinit/internal/dice"
	"github.com/rollinit/rollinit/internal/joincode"
	"github.com/rollinit/rollinit/internal/repositories/combatants"
	"github.com/rollinit/rollinit/internal/repositories/dicerolls"
	"github.com/rollinit/rollinit/internal/repositories/encounters"
	"github.com/rollinit/rollinit/internal/repositories/sessions"
	combatantService "github.com/rollinit/rollinit/internal/services/combatant"
	diceService "github.com/rollinit/rollinit/internal/services/dice"
	encounterService "github.com/rollinit/rollinit/internal/services/encounter"
	sessionService "github.com/rollinit/rollinit/internal/services/session"
	stateService "github.com/rollinit/rollinit/internal/services/state"
)

// Provider holds all service instances
type Provider struct {
	SessionService   sessionService.Service
	CombatantService combatantService.Service
	EncounterService encounterService.Service
	DiceService      diceService.Service
	StateService     stateService.Service
}

// ProviderConfig holds configuration for creating services
type ProviderConfig struct {
	SessionRepository   sessions.Repository
	CombatantRepository combatants.Repository
	EncounterRepository encounters.Repository
	DiceRollRepository  dicerolls.Repository

	// Roller and CodeGenerator default to the production randomized
	// implementations when nil.
	Roller        dice.Roller
	CodeGenerator joincode.Generator
}

// NewProvider creates a new service provider with all services initialized
func NewProvider(cfg *ProviderConfig) *Provider {
	// Use in-memory repositories if none provided
	sessionRepo := cfg.SessionRepository
	if sessionRepo == nil {
		sessionRepo = sessions.NewInMemoryRepository()
	}
	combatantRepo := cfg.CombatantRepository
	if combatantRepo == nil {
		combatantRepo = combatants.NewInMemoryRepository()
	}
	encounterRepo := cfg.EncounterRepository
	if encounterRepo == nil {
		encounterRepo = encounters.NewInMemoryRepository()
	}
	diceRollRepo := cfg.DiceRollRepository
	if diceRollRepo == nil {
		diceRollRepo = dicerolls.NewInMemoryRepository()
	}

	roller := cfg.Roller
	if roller == nil {
		roller = dice.NewRandomRoller()
	}
	codeGen := cfg.CodeGenerator
	if codeGen == nil {
		codeGen = joincode.NewWordGenerator()
	}

	sessSvc := sessionService.NewService(&sessionService.ServiceConfig{
		Repository:    sessionRepo,
		CodeGenerator: codeGen,
	})

	combatantSvc := combatantService.NewService(&combatantService.ServiceConfig{
		Repository:          combatantRepo,
		EncounterRepository: encounterRepo,
	})

	encounterSvc := encounterService.NewService(&encounterService.ServiceConfig{
		Repository:          encounterRepo,
		CombatantRepository: combatantRepo,
		DiceRollRepository:  diceRollRepo,
		Roller:              roller,
	})

	diceSvc := diceService.NewService(&diceService.ServiceConfig{
		Repository: diceRollRepo,
		Roller:     roller,
	})

	stateSvc := stateService.NewService(&stateService.ServiceConfig{
		SessionRepository:   sessionRepo,
		CombatantRepository: combatantRepo,
		EncounterRepository: encounterRepo,
		DiceRollRepository:  diceRollRepo,
	})

	return &Provider{
		SessionService:   sessSvc,
		CombatantService: combatantSvc,
		EncounterService: encounterSvc,
		DiceService:      diceSvc,
		StateService:     stateSvc,
	}
}
