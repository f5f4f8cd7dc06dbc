package tmdb_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nfowatch/nfowatch/internal/http/tmdb"
	"github.com/nfowatch/nfowatch/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer stands up an httptest server behaving like the TMDB API for
// the given path -> response body mapping; any other path returns the TMDB
// 404 error shape.
func newTestServer(t *testing.T, responses map[string]string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"), "all requests must carry the API key")

		if body, ok := responses[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
			return
		}

		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code": 34, "status_message": "The resource you requested could not be found."}`))
	}))

	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, responses map[string]string) provider.Provider {
	srv := newTestServer(t, responses)
	return tmdb.New(tmdb.Config{APIKey: "test-key", BaseURL: srv.URL})
}

func Test_Search_ComposesCandidateTitles(t *testing.T) {
	prov := newTestProvider(t, map[string]string{
		"/search/movie": `{
			"total_results": 2,
			"results": [
				{"id": 42, "title": "Cool Movie", "release_date": "2020-06-12", "poster_path": "/poster.jpg"},
				{"id": 43, "title": "Cool Movie Returns", "release_date": ""}
			]
		}`,
	})

	candidates, err := prov.Search("Cool Movie")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, provider.Candidate{
		ID:        "42",
		Title:     "Cool Movie (2020)",
		PosterURL: "https://image.tmdb.org/t/p/original/poster.jpg",
	}, candidates[0])
	assert.Equal(t, "Cool Movie Returns", candidates[1].Title, "candidates without a release date keep their bare title")
}

func Test_Search_EmptyResultsIsNotAnError(t *testing.T) {
	prov := newTestProvider(t, map[string]string{
		"/search/movie": `{"total_results": 0, "results": []}`,
	})

	candidates, err := prov.Search("nothing matches this")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func Test_Search_TransportError(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.Close()
	prov := tmdb.New(tmdb.Config{APIKey: "test-key", BaseURL: srv.URL})

	_, err := prov.Search("anything")

	transportErr := &provider.TransportError{}
	assert.ErrorAs(t, err, &transportErr)
}

func Test_Fetch_MapsMovieDetails(t *testing.T) {
	prov := newTestProvider(t, map[string]string{
		"/movie/42": `{
			"id": 42,
			"title": "Cool Movie",
			"original_title": "Le Film Cool",
			"overview": "A cool movie about cool things.",
			"release_date": "2020-06-12",
			"runtime": 113,
			"poster_path": "/poster.jpg",
			"backdrop_path": "/backdrop.jpg",
			"genres": [{"name": "Action"}, {"name": "Comedy"}],
			"production_companies": [{"name": "Cool Studios"}, {"name": "Other Studios"}],
			"credits": {
				"cast": [
					{"name": "John Smith", "character": "The Lead"},
					{"name": "Sam Jones", "character": ""}
				],
				"crew": [
					{"name": "Someone Else", "job": "Producer"},
					{"name": "Jane Doe", "job": "Director"}
				]
			}
		}`,
	})

	record, err := prov.Fetch("42")
	require.NoError(t, err)

	year := 2020
	runtime := 113
	assert.Equal(t, &provider.Record{
		Source:        tmdb.Name,
		SourceID:      "42",
		Title:         "Cool Movie",
		OriginalTitle: "Le Film Cool",
		Year:          &year,
		ReleaseDate:   "2020-06-12",
		Plot:          "A cool movie about cool things.",
		Runtime:       &runtime,
		Studio:        "Cool Studios",
		Director:      "Jane Doe",
		Genres:        []string{"Action", "Comedy"},
		Actors: []provider.Actor{
			{Name: "John Smith", Role: "The Lead"},
			{Name: "Sam Jones"},
		},
		PosterURL:   "https://image.tmdb.org/t/p/original/poster.jpg",
		BackdropURL: "https://image.tmdb.org/t/p/original/backdrop.jpg",
	}, record)
}

func Test_Fetch_NotFound(t *testing.T) {
	prov := newTestProvider(t, nil)

	_, err := prov.Fetch("9999")

	notFound := &provider.NotFoundError{}
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "9999", notFound.ID)
}
