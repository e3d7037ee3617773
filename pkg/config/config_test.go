package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8089", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "market-movers", cfg.Kafka.Topic)

	assert.Equal(t, "https://www.twse.com.tw", cfg.TWSE.BaseURL)
	assert.Equal(t, "json", cfg.TWSE.Format)
	assert.Equal(t, 30*time.Second, cfg.TWSE.Timeout)

	assert.Equal(t, "data.json", cfg.Artifact.Path)
	assert.Equal(t, 10, cfg.Snapshot.TopN)
	assert.Equal(t, "14:30", cfg.Snapshot.MarketClose)
	assert.Equal(t, "A", cfg.Snapshot.ChangeFormula)
	assert.Equal(t, "zero_fill", cfg.Snapshot.OnAbsentChangeAmount)
	assert.Equal(t, "Asia/Taipei", cfg.Snapshot.Timezone)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/movers")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("TWSE_FORMAT", "html")
	t.Setenv("SNAPSHOT_TOP_N", "5")
	t.Setenv("SNAPSHOT_INCLUDE_ZERO_IN_GAINERS", "true")
	t.Setenv("TWSE_RATE_LIMIT", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "html", cfg.TWSE.Format)
	assert.Equal(t, 5, cfg.Snapshot.TopN)
	assert.True(t, cfg.Snapshot.IncludeZeroInGainers)
	assert.InDelta(t, 2.5, cfg.TWSE.RateLimit, 0.0001)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid env", "ENV", "qa"},
		{"invalid feed format", "TWSE_FORMAT", "csv"},
		{"invalid market close", "SNAPSHOT_MARKET_CLOSE", "2pm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input      string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{"14:30", 14, 30, false},
		{" 09:05 ", 9, 5, false},
		{"00:00", 0, 0, false},
		{"24:00", 0, 0, true},
		{"1430", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hour, minute, err := ParseClock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHour, hour)
			assert.Equal(t, tt.wantMinute, minute)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "x")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "bogus")

	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 0))
	assert.Equal(t, 7, getEnvAsInt("TEST_BAD_INT", 7))
	assert.True(t, getEnvAsBool("TEST_BOOL", false))
	assert.Equal(t, time.Minute, getEnvAsDuration("TEST_DURATION", "1m"))
	assert.Equal(t, "fallback", getEnv("TEST_UNSET_KEY", "fallback"))
	assert.Nil(t, getEnvAsList("TEST_UNSET_LIST"))
}
