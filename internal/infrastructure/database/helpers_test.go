package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PoolStats_AvgAcquireDuration(t *testing.T) {
	assert.Zero(t, PoolStats{}.AvgAcquireDuration())
	assert.Zero(t, PoolStats{AcquireDuration: time.Second}.AvgAcquireDuration())

	stats := PoolStats{AcquireCount: 4, AcquireDuration: 200 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, stats.AvgAcquireDuration())
}

func Test_PostgresDB_Uninitialized(t *testing.T) {
	db := NewPostgresDB(&DBConfig{})

	stats, err := db.Stats()
	assert.Error(t, err)
	assert.Nil(t, stats)

	assert.Error(t, db.Ping(context.Background()))
	assert.NoError(t, db.Close())
}

func Test_MonitorPoolHealth_StopsOnCancel(t *testing.T) {
	db := NewPostgresDB(&DBConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		db.MonitorPoolHealth(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "monitor did not stop after cancel")
	}
}

func Test_DBConfig_DSN(t *testing.T) {
	cfg := &DBConfig{Host: "db", Port: 5432, Username: "lib", Password: "p@ss", DBName: "library", SSLMode: "disable"}
	assert.Equal(t, "postgres://lib:p%40ss@db:5432/library?sslmode=disable", cfg.DSN())
}
