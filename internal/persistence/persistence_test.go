package persistence

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/config"
)

func TestEmbeddedMigrationsCreateLedger(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])

	body, err := fs.ReadFile(migrationFiles, "migrations/001_init.sql")
	require.NoError(t, err)
	for _, table := range []string{"clinicians", "patients", "auth_tokens"} {
		assert.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}

func TestEmbeddedMigrationsRunInOrder(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	require.NoError(t, err)
	require.Equal(t, []string{"001_init.sql", "002_care_programs.sql"}, names)

	body, err := fs.ReadFile(migrationFiles, "migrations/002_care_programs.sql")
	require.NoError(t, err)
	for _, table := range []string{"patient_clinicians", "programs", "program_participants"} {
		assert.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table), table)
	}
	assert.Contains(t, string(body), "ADD COLUMN IF NOT EXISTS emergency_contact_name")
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestUnconfiguredStoresFailPing(t *testing.T) {
	var pg *Postgres
	assert.Error(t, pg.Ping(context.Background()))
	var rd *Redis
	assert.Error(t, rd.Ping(context.Background()))

	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, pg.PoolHandle())
}

func TestRedisPing(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	defer r.Close()
	assert.NoError(t, r.Ping(context.Background()))
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	r, err := NewRedis(context.Background(), config.RedisConfig{Addr: addr}, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), addr)
}
