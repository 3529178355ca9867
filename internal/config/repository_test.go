package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay-widgets/internal/repository"
)

func sampleRecord() *repository.TimerRecord {
	now := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	return &repository.TimerRecord{
		ID:             "cfg-test",
		Name:           "Test Timer",
		Phase:          "working",
		IsPaused:       true,
		LastActionTime: now,
		RemainingMs:    60000,
		WorkMs:         60000,
		BreakMs:        30000,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateRepository(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested")
	t.Setenv("OW_DB_DIR", tmpDir)
	t.Setenv("OW_CONFIG_FILE", "")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	repo, err := CreateRepository(context.Background(), cfg)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.CreateTimer(context.Background(), sampleRecord()))
	timers, err := repo.ListTimers(context.Background())
	require.NoError(t, err)
	assert.Len(t, timers, 1)

	_, err = os.Stat(filepath.Join(tmpDir, "ow.db"))
	assert.NoError(t, err)
}

func TestCreateTestRepository(t *testing.T) {
	repo, err := CreateTestRepository()
	require.NoError(t, err)
	defer repo.Close()

	timers, err := repo.ListTimers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, timers)
}

func TestRepositoryFactory_Testing(t *testing.T) {
	factory := NewRepositoryFactory(Testing, NewConfig())

	repo, err := factory.CreateRepository(context.Background())
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.CreateTimer(context.Background(), sampleRecord()))
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		value    string
		expected Environment
	}{
		{"development", Development},
		{"testing", Testing},
		{"production", Production},
		{"", Production},
		{"staging", Production},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("OW_ENV", tt.value)
			assert.Equal(t, tt.expected, GetEnvironment())
		})
	}
}
