package config

import (
	"errors"
	"io/fs"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ScoringConfig holds the classification thresholds used by the scoring engine.
type ScoringConfig struct {
	FeaturedThreshold       float64 `mapstructure:"featuredThreshold"`
	RecommendationThreshold float64 `mapstructure:"recommendationThreshold"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		FeaturedThreshold:       70.0,
		RecommendationThreshold: 65.0,
	}
}

type ScoringConfigHolder struct {
	current atomic.Value // holds ScoringConfig
}

// NewStaticScoringConfig returns a holder that never reloads.
func NewStaticScoringConfig(cfg ScoringConfig) *ScoringConfigHolder {
	holder := &ScoringConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewScoringConfigHolder(appCfg Config, log *zap.Logger) (*ScoringConfigHolder, error) {
	log = log.Named("config.scoring")
	v := viper.New()

	if appCfg.ScoringConfigPath != "" {
		v.SetConfigFile(appCfg.ScoringConfigPath)
	} else {
		v.SetConfigName("scoring")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/showcase")
		v.AddConfigPath(".")
	}

	defaults := DefaultScoringConfig()
	v.SetDefault("scoring.featuredThreshold", defaults.FeaturedThreshold)
	v.SetDefault("scoring.recommendationThreshold", defaults.RecommendationThreshold)

	v.SetEnvPrefix("SHOWCASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeScoring(v)
	if err != nil {
		return nil, err
	}
	if err := validateScoringConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticScoringConfig(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		holder.reload(v, log, e.Name)
	})

	return holder, nil
}

// reload swaps in the thresholds currently held by v. Values that fail to
// decode or validate leave the previous thresholds in place.
func (h *ScoringConfigHolder) reload(v *viper.Viper, log *zap.Logger, source string) bool {
	updated, err := decodeScoring(v)
	if err != nil {
		log.Warn("scoring config reload failed", zap.String("file", source), zap.Error(err))
		return false
	}
	if err := validateScoringConfig(updated); err != nil {
		log.Warn("invalid scoring config ignored", zap.String("file", source), zap.Error(err))
		return false
	}
	h.current.Store(updated)
	log.Info("scoring config reloaded",
		zap.String("file", source),
		zap.Float64("featured_threshold", updated.FeaturedThreshold),
		zap.Float64("recommendation_threshold", updated.RecommendationThreshold),
	)
	return true
}

type scoringDocument struct {
	Scoring ScoringConfig `mapstructure:"scoring"`
}

// decodeScoring merges file, env and defaults per key, so a file may set
// only one threshold.
func decodeScoring(v *viper.Viper) (ScoringConfig, error) {
	var doc scoringDocument
	if err := v.Unmarshal(&doc); err != nil {
		return ScoringConfig{}, err
	}
	return doc.Scoring, nil
}

func (h *ScoringConfigHolder) Get() ScoringConfig {
	return h.current.Load().(ScoringConfig)
}

func validateScoringConfig(cfg ScoringConfig) error {
	if cfg.FeaturedThreshold < 0 || cfg.FeaturedThreshold > 100 {
		return errors.New("scoring.featuredThreshold must be within [0,100]")
	}
	if cfg.RecommendationThreshold < 0 || cfg.RecommendationThreshold > 100 {
		return errors.New("scoring.recommendationThreshold must be within [0,100]")
	}
	return nil
}
