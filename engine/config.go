package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the tunable parameters of the belief tracker and the search.
type Config struct {
	// Epsilon is the tolerance of the per-square and per-kind sums.
	Epsilon float64 `yaml:"epsilon"`
	// DriftLimit is the largest deviation tolerated after fitting before the
	// fit is reported as a failure.
	DriftLimit float64 `yaml:"drift_limit"`
	// MaxPasses bounds the proportional fitting loop.
	MaxPasses int `yaml:"max_passes"`

	// BanPlies is how long an umpire-rejected move stays banned.
	BanPlies int `yaml:"ban_plies"`
	// MinLegalProb ends a sliding ray once the path probability falls below it.
	MinLegalProb float64 `yaml:"min_legal_prob"`

	SearchDepth int           `yaml:"search_depth"`
	Workers     int           `yaml:"workers"`
	MoveTime    time.Duration `yaml:"move_time"`
	// RandomTieBreak picks uniformly among equally valued root moves.
	RandomTieBreak bool `yaml:"random_tie_break"`

	// DangerHorizon is the age at which the danger curve saturates.
	DangerHorizon int        `yaml:"danger_horizon"`
	PieceValues   [6]float64 `yaml:"piece_values,flow"`
	RiskModifiers [6]float64 `yaml:"risk_modifiers,flow"`
	AgeScale      float64    `yaml:"age_scale"`
	PawnTryBonus  float64    `yaml:"pawn_try_bonus"`
}

// DefaultConfig returns the parameters used when no file is given.
func DefaultConfig() Config {
	return Config{
		Epsilon:        1e-9,
		DriftLimit:     1e-3,
		MaxPasses:      500,
		BanPlies:       2,
		MinLegalProb:   0.02,
		SearchDepth:    2,
		Workers:        4,
		MoveTime:       2 * time.Second,
		RandomTieBreak: true,
		DangerHorizon:  8,
		PieceValues:    [6]float64{1, 3, 3.25, 5, 9, 0},
		RiskModifiers:  [6]float64{0.6, 1, 1, 1.1, 1.3, 0},
		AgeScale:       0.05,
		PawnTryBonus:   0.5,
	}
}

// LoadConfig reads a yaml file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the ranges of every field.
func (c Config) Validate() error {
	switch {
	case c.Epsilon <= 0 || c.Epsilon >= 1e-3:
		return fmt.Errorf("%w: epsilon %g out of (0, 1e-3)", ErrInvalidConfig, c.Epsilon)
	case c.DriftLimit < c.Epsilon:
		return fmt.Errorf("%w: drift_limit %g below epsilon", ErrInvalidConfig, c.DriftLimit)
	case c.MaxPasses < 1:
		return fmt.Errorf("%w: max_passes must be positive", ErrInvalidConfig)
	case c.BanPlies < 0:
		return fmt.Errorf("%w: ban_plies must not be negative", ErrInvalidConfig)
	case c.MinLegalProb < 0 || c.MinLegalProb >= 1:
		return fmt.Errorf("%w: min_legal_prob %g out of [0, 1)", ErrInvalidConfig, c.MinLegalProb)
	case c.SearchDepth < 1 || c.SearchDepth > MaxDepth:
		return fmt.Errorf("%w: search_depth %d out of [1, %d]", ErrInvalidConfig, c.SearchDepth, MaxDepth)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.DangerHorizon < 1:
		return fmt.Errorf("%w: danger_horizon must be positive", ErrInvalidConfig)
	}
	for i, v := range c.PieceValues {
		if v < 0 {
			return fmt.Errorf("%w: piece_values[%d] is negative", ErrInvalidConfig, i)
		}
	}
	return nil
}

func (c Config) redistributor() Redistributor {
	return Redistributor{Epsilon: c.Epsilon, DriftLimit: c.DriftLimit, MaxPasses: c.MaxPasses}
}
