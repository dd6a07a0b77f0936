package app

import (
	"github.com/eslsoft/wordladder/internal/infrastructure/config"
	"github.com/eslsoft/wordladder/internal/usecase"
)

// NewSettings maps the learning section onto usecase settings. Zero values
// fall back to the defaults inside the usecases.
func NewSettings(cfg *config.Config) usecase.Settings {
	return usecase.Settings{
		PoolCapacity:   cfg.Learning.PoolCapacity,
		StudyQuizSize:  cfg.Learning.StudyQuizSize,
		ReviewQuizSize: cfg.Learning.ReviewQuizSize,
	}
}
