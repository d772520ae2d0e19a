package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScoringFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scoring.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestScoringConfig_DefaultsWithoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yml")

	holder, err := NewScoringConfigHolder(Config{ScoringConfigPath: path}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ScoringConfig{FeaturedThreshold: 70, RecommendationThreshold: 65}, holder.Get())
}

func TestScoringConfig_LoadsFile(t *testing.T) {
	path := writeScoringFile(t, "scoring:\n  featuredThreshold: 80\n  recommendationThreshold: 55.5\n")

	holder, err := NewScoringConfigHolder(Config{ScoringConfigPath: path}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ScoringConfig{FeaturedThreshold: 80, RecommendationThreshold: 55.5}, holder.Get())
}

func TestScoringConfig_PartialFileKeepsOtherDefault(t *testing.T) {
	path := writeScoringFile(t, "scoring:\n  featuredThreshold: 75\n")

	holder, err := NewScoringConfigHolder(Config{ScoringConfigPath: path}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ScoringConfig{FeaturedThreshold: 75, RecommendationThreshold: 65}, holder.Get())
}

func TestScoringConfig_RejectsOutOfRangeAtLoad(t *testing.T) {
	cases := map[string]string{
		"featured above 100":        "scoring:\n  featuredThreshold: 120\n",
		"recommendation below zero": "scoring:\n  recommendationThreshold: -5\n",
		"not a number":              "scoring:\n  featuredThreshold: high\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeScoringFile(t, body)
			_, err := NewScoringConfigHolder(Config{ScoringConfigPath: path}, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestScoringConfig_ReloadIgnoresInvalidValues(t *testing.T) {
	holder := NewStaticScoringConfig(ScoringConfig{FeaturedThreshold: 80, RecommendationThreshold: 60})

	load := func(body string) *viper.Viper {
		v := viper.New()
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(body)))
		return v
	}

	ok := holder.reload(load("scoring:\n  featuredThreshold: 101\n  recommendationThreshold: 60\n"), zap.NewNop(), "scoring.yml")
	assert.False(t, ok)
	assert.Equal(t, ScoringConfig{FeaturedThreshold: 80, RecommendationThreshold: 60}, holder.Get())

	ok = holder.reload(load("scoring:\n  featuredThreshold: 90\n  recommendationThreshold: 50\n"), zap.NewNop(), "scoring.yml")
	assert.True(t, ok)
	assert.Equal(t, ScoringConfig{FeaturedThreshold: 90, RecommendationThreshold: 50}, holder.Get())
}

func TestValidateScoringConfig_Boundaries(t *testing.T) {
	cases := []struct {
		name    string
		cfg     ScoringConfig
		wantErr bool
	}{
		{name: "zero", cfg: ScoringConfig{FeaturedThreshold: 0, RecommendationThreshold: 0}},
		{name: "hundred", cfg: ScoringConfig{FeaturedThreshold: 100, RecommendationThreshold: 100}},
		{name: "defaults", cfg: DefaultScoringConfig()},
		{name: "featured negative", cfg: ScoringConfig{FeaturedThreshold: -0.01, RecommendationThreshold: 65}, wantErr: true},
		{name: "featured over", cfg: ScoringConfig{FeaturedThreshold: 100.01, RecommendationThreshold: 65}, wantErr: true},
		{name: "recommendation negative", cfg: ScoringConfig{FeaturedThreshold: 70, RecommendationThreshold: -0.01}, wantErr: true},
		{name: "recommendation over", cfg: ScoringConfig{FeaturedThreshold: 70, RecommendationThreshold: 100.01}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateScoringConfig(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
