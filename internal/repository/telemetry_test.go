package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

func TestTemperatureSeries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM device_temperature_history").
		WithArgs("a84041000181d3f2", 45.0).
		WillReturnRows(sqlmock.NewRows([]string{"temperature"}).
			AddRow(-17.5).AddRow(-16.0).AddRow(-15.2))

	repo := NewTelemetryRepository(db, zap.NewNop())
	samples, err := repo.TemperatureSeries(context.Background(), "a84041000181d3f2", 45*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []float64{-17.5, -16.0, -15.2}, samples)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestTemperature(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("sample exists", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY observed_at DESC").
			WithArgs("a84041000181d3f2").
			WillReturnRows(sqlmock.NewRows([]string{"temperature"}).AddRow(4.5))

		repo := NewTelemetryRepository(db, zap.NewNop())
		v, ok, err := repo.LatestTemperature(context.Background(), "a84041000181d3f2")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 4.5, v)
	})

	t.Run("no history", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY observed_at DESC").
			WithArgs("ffffffffffffffff").
			WillReturnRows(sqlmock.NewRows([]string{"temperature"}))

		repo := NewTelemetryRepository(db, zap.NewNop())
		_, ok, err := repo.LatestTemperature(context.Background(), "ffffffffffffffff")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestInsertSkipsReadingsWithoutTemperature(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTelemetryRepository(db, zap.NewNop())
	reading := &models.TelemetryReading{
		DevEUI: "a84041000181d3f2",
		Fields: map[string]float64{models.FieldDoorStatus: 1},
	}
	require.NoError(t, repo.Insert(context.Background(), reading))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTemperature(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO device_temperature_history").
		WithArgs("a84041000181d3f2", 4.5, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewTelemetryRepository(db, zap.NewNop())
	reading := &models.TelemetryReading{
		DevEUI:     "a84041000181d3f2",
		Fields:     map[string]float64{models.FieldTemperature: 4.5},
		ObservedAt: at,
	}
	require.NoError(t, repo.Insert(context.Background(), reading))
	assert.NoError(t, mock.ExpectationsWereMet())
}
