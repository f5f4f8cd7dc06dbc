package ledger_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/nfowatch/nfowatch/internal/ledger"
	"github.com/nfowatch/nfowatch/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store_AppendAndList(t *testing.T) {
	db := helpers.ProvisionPostgres(t)
	store := ledger.NewStore()

	base := time.Now().UTC().Truncate(time.Millisecond)

	success := ledger.NewSuccess("/media/Cool.Movie.2020.mkv", "/media/Cool.Movie.2020.nfo", "tmdb", "550")
	success.ProcessedAt = base

	year := 2020
	quality := "1080p"
	failure := ledger.NewFailure(
		"/media/Other.Movie.mkv",
		&ledger.Guess{Title: "Other Movie", Year: &year, Quality: &quality},
		"provider request failed: connection refused",
	)
	failure.ProcessedAt = base.Add(time.Minute)

	require.NoError(t, store.Append(db, success))
	require.NoError(t, store.Append(db, failure))

	entries, err := store.List(db, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Reverse-chronological, so the later failure comes back first.
	assert.Equal(t, failure.ID, entries[0].ID)
	assert.Equal(t, ledger.StatusFailed, entries[0].Status)
	require.NotNil(t, entries[0].Error)
	assert.Equal(t, "provider request failed: connection refused", *entries[0].Error)
	require.NotNil(t, entries[0].Guess, "failure guess must survive the round-trip")
	assert.Equal(t, "Other Movie", entries[0].Guess.Title)
	require.NotNil(t, entries[0].Guess.Year)
	assert.Equal(t, 2020, *entries[0].Guess.Year)
	require.NotNil(t, entries[0].Guess.Quality)
	assert.Equal(t, "1080p", *entries[0].Guess.Quality)

	assert.Equal(t, success.ID, entries[1].ID)
	assert.Equal(t, ledger.StatusSuccess, entries[1].Status)
	require.NotNil(t, entries[1].SidecarPath)
	assert.Equal(t, "/media/Cool.Movie.2020.nfo", *entries[1].SidecarPath)
	require.NotNil(t, entries[1].Provider)
	assert.Equal(t, "tmdb", *entries[1].Provider)
	require.NotNil(t, entries[1].ProviderID)
	assert.Equal(t, "550", *entries[1].ProviderID)
	assert.Nil(t, entries[1].Guess, "success entries carry no guess")
	assert.WithinDuration(t, base, entries[1].ProcessedAt, time.Second)
}

func Test_Store_ListHonoursLimit(t *testing.T) {
	db := helpers.ProvisionPostgres(t)
	store := ledger.NewStore()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		entry := ledger.NewFailure(fmt.Sprintf("/media/file-%d.mkv", i), nil, "no provider results")
		entry.ProcessedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Append(db, entry))
	}

	entries, err := store.List(db, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/media/file-2.mkv", entries[0].FilePath)
	assert.Equal(t, "/media/file-1.mkv", entries[1].FilePath)
}
