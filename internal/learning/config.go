package learning

import (
	"fmt"
	"log/slog"

	"github.com/at-ishikawa/kioku/internal/achievement"
	"github.com/at-ishikawa/kioku/internal/config"
	"github.com/at-ishikawa/kioku/internal/progression"
	"github.com/at-ishikawa/kioku/internal/review"
)

// NewServiceConfig builds the service configuration from the loaded config file.
func NewServiceConfig(cfg *config.Config, logger *slog.Logger) (ServiceConfig, error) {
	curve, err := progression.NewLevelCurve(cfg.Progression.BaseXP, cfg.Progression.Growth, cfg.Progression.MaxLevel)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("progression.NewLevelCurve() > %w", err)
	}
	defs, err := achievement.LoadDefinitions(cfg.Achievements.File)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("achievement.LoadDefinitions(%s) > %w", cfg.Achievements.File, err)
	}
	loc, err := cfg.Engine.Location()
	if err != nil {
		return ServiceConfig{}, err
	}

	return ServiceConfig{
		Scheduler: review.Params{
			InitialEasinessFactor: cfg.Scheduler.InitialEasinessFactor,
			MinEasinessFactor:     cfg.Scheduler.MinEasinessFactor,
			FirstIntervalDays:     cfg.Scheduler.FirstIntervalDays,
			SecondIntervalDays:    cfg.Scheduler.SecondIntervalDays,
			LapseIntervalDays:     cfg.Scheduler.LapseIntervalDays,
			PassQuality:           review.Quality(cfg.Scheduler.PassQuality),
		},
		Progression: progression.NewEngine(curve, progression.Multipliers{
			LearnMode:     cfg.Progression.LearnModeFactor,
			PartialCredit: cfg.Progression.PartialCredit,
		}),
		Achievements:       defs,
		Location:           loc,
		CorrectAccuracy:    cfg.Progression.CorrectAccuracy,
		MaxConflictRetries: cfg.Engine.MaxConflictRetries,
		ConflictBackoff:    cfg.Engine.ConflictBackoff,
		StoreTimeout:       cfg.Engine.StoreTimeout,
		DefaultDailyItems:  cfg.DailyMix.DefaultItems,
		MaxDailyItems:      cfg.DailyMix.MaxItems,
		ReviewShare:        cfg.DailyMix.ReviewShare,
		Logger:             logger,
	}, nil
}
