package monitor_test

import (
	"testing"

	"github.com/nfowatch/nfowatch/internal/monitor"
	"github.com/nfowatch/nfowatch/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ConfigStore_LoadReturnsNilBeforeFirstSave(t *testing.T) {
	db := helpers.ProvisionPostgres(t)
	store := monitor.NewConfigStore()

	config, err := store.Load(db)
	require.NoError(t, err)
	assert.Nil(t, config, "an unsaved configuration must load as nil, not as an error")
}

func Test_ConfigStore_SaveUpsertsSingletonRow(t *testing.T) {
	db := helpers.ProvisionPostgres(t)
	store := monitor.NewConfigStore()

	first := &monitor.WatchConfig{
		Folders:           []string{"/media/movies"},
		PreferredProvider: "tmdb",
		AutoProcess:       true,
	}
	require.NoError(t, store.Save(db, first))

	loaded, err := store.Load(db)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"/media/movies"}, loaded.Folders)
	assert.Equal(t, "tmdb", loaded.PreferredProvider)
	assert.True(t, loaded.AutoProcess)

	second := &monitor.WatchConfig{
		Folders:           []string{"/media/movies", "/media/incoming"},
		PreferredProvider: "tmdb",
		AutoProcess:       false,
	}
	require.NoError(t, store.Save(db, second))

	loaded, err = store.Load(db)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"/media/movies", "/media/incoming"}, loaded.Folders)
	assert.False(t, loaded.AutoProcess)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM watch_config"))
	assert.Equal(t, 1, count, "repeated saves must replace the singleton row")
}
