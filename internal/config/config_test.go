package config

import (
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

func TestDefaults(t *testing.T) {
	cfg := FromViper(newViper())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 22.0, cfg.Policy.ShelfLifeDays)
	assert.Equal(t, 0.7, cfg.Policy.InventoryCapPercentage)
	assert.Equal(t, 2.56, cfg.Policy.HighZScore)
	assert.Equal(t, 5*time.Minute, cfg.Drive.PollInterval)
	assert.Equal(t, time.Minute, cfg.Cache.SummaryTTL())
	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.RedisAddr())
	assert.False(t, cfg.Database.Enabled)

	policy := cfg.Policy.StockTargetPolicy()
	assert.NoError(t, policy.Validate())

	rp, err := cfg.Policy.ReplenishmentPolicy()
	require.NoError(t, err)
	assert.Equal(t, "1.2", rp.MonitorBand.String())
	assert.Equal(t, 0.5, rp.SafetyStockFraction)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("POLICY_SHELF_LIFE_DAYS", "30")
	t.Setenv("POLICY_INVENTORY_CAP_PERCENTAGE", "0.5")
	t.Setenv("DB_HOST", "db.internal")

	cfg := FromViper(newViper())

	assert.Equal(t, 30.0, cfg.Policy.ShelfLifeDays)
	assert.Equal(t, 0.5, cfg.Policy.InventoryCapPercentage)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
	assert.Contains(t, cfg.Database.DSN(), "dbname=shelfstock")
}

func TestReplenishmentPolicyRejectsBadBand(t *testing.T) {
	_, err := PolicyConfig{MonitorBand: "abc", SafetyStockLeadFraction: 0.5}.ReplenishmentPolicy()
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = PolicyConfig{MonitorBand: "0.8", SafetyStockLeadFraction: 0.5}.ReplenishmentPolicy()
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
