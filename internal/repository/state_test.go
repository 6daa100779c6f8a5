package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorasense-alarm/internal/automation"
	"lorasense-alarm/internal/consumer"
	"lorasense-alarm/internal/models"
)

func newStateFixtures(t *testing.T) (*StateRepository, sqlmock.Sqlmock, *consumer.StateCache) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cache := consumer.NewStateCache(rdb, time.Hour, zap.NewNop())

	return NewStateRepository(db, cache, zap.NewNop()), mock, cache
}

func TestLatestOutputsFromCache(t *testing.T) {
	repo, mock, cache := newStateFixtures(t)

	reading := &models.TelemetryReading{
		DevEUI:     "a840410001811111",
		DeviceType: models.DeviceTypeLT22222L,
		Texts:      map[string]string{models.TextGPIOOut1: "1", models.TextGPIOOut2: "0"},
	}
	require.NoError(t, cache.Store(context.Background(), reading))

	state, ok, err := repo.LatestOutputs(context.Background(), "a840410001811111", 6)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, automation.OutputState{Out1: "1", Out2: "0"}, state)

	// The database must not be touched on a cache hit.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestOutputsFallsBackToDatabase(t *testing.T) {
	repo, mock, _ := newStateFixtures(t)

	mock.ExpectQuery("FROM device_state_latest").
		WithArgs("a840410001811111").
		WillReturnRows(sqlmock.NewRows([]string{"gpio_out_1", "gpio_out_2"}).AddRow("0", "1"))

	state, ok, err := repo.LatestOutputs(context.Background(), "a840410001811111", 6)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, automation.OutputState{Out1: "0", Out2: "1"}, state)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestOutputsCachedReadingWithoutOutputs(t *testing.T) {
	repo, mock, cache := newStateFixtures(t)

	// A cached reading without output pins (e.g. a plain sensor) falls
	// through to the database.
	reading := &models.TelemetryReading{
		DevEUI: "a840410001811111",
		Fields: map[string]float64{models.FieldTemperature: 4.5},
	}
	require.NoError(t, cache.Store(context.Background(), reading))

	mock.ExpectQuery("FROM device_state_latest").
		WithArgs("a840410001811111").
		WillReturnRows(sqlmock.NewRows([]string{"gpio_out_1", "gpio_out_2"}))

	_, ok, err := repo.LatestOutputs(context.Background(), "a840410001811111", 6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertOutputs(t *testing.T) {
	repo, mock, _ := newStateFixtures(t)

	mock.ExpectExec("INSERT INTO device_state_latest").
		WithArgs("a840410001811111", "1", "0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertOutputs(context.Background(), "a840410001811111", automation.OutputState{Out1: "1", Out2: "0"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
