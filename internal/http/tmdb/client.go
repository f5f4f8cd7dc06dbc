// Package tmdb implements the metadata provider capability against The Movie
// Database JSON API.
// See https://developer.themoviedb.org/reference/intro/getting-started for
// information on the TMDB API.
package tmdb

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nfowatch/nfowatch/internal/provider"
)

const (
	Name = "tmdb"

	defaultBaseURL   = "https://api.themoviedb.org/3"
	imageBaseURL     = "https://image.tmdb.org/t/p/original"
	searchMovieQuery = "%s/search/movie?query=%s&api_key=%s"
	getMovieQuery    = "%s/movie/%s?api_key=%s&append_to_response=credits"
)

type (
	Config struct {
		APIKey string

		// BaseURL overrides the TMDB API origin; zero value uses the
		// real API. Tests point this at a local server.
		BaseURL string
	}

	tmdbProvider struct {
		config Config
	}

	searchResult struct {
		Results      []searchResultItem `json:"results"`
		TotalResults int                `json:"total_results"`
	}

	searchResultItem struct {
		ID          json.Number `json:"id"`
		Title       string      `json:"title"`
		ReleaseDate string      `json:"release_date"`
		PosterPath  string      `json:"poster_path"`
	}

	movieDetails struct {
		ID            json.Number `json:"id"`
		Title         string      `json:"title"`
		OriginalTitle string      `json:"original_title"`
		Overview      string      `json:"overview"`
		ReleaseDate   string      `json:"release_date"`
		Runtime       int         `json:"runtime"`
		PosterPath    string      `json:"poster_path"`
		BackdropPath  string      `json:"backdrop_path"`

		Genres []struct {
			Name string `json:"name"`
		} `json:"genres"`
		ProductionCompanies []struct {
			Name string `json:"name"`
		} `json:"production_companies"`
		Credits struct {
			Cast []struct {
				Name      string `json:"name"`
				Character string `json:"character"`
			} `json:"cast"`
			Crew []struct {
				Name string `json:"name"`
				Job  string `json:"job"`
			} `json:"crew"`
		} `json:"credits"`
	}

	tmdbError struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
	}
)

func New(config Config) *tmdbProvider {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	return &tmdbProvider{config}
}

// Search queries TMDB's movie search endpoint. Candidate titles are composed
// as 'Title (Year)' where a release year is known, mirroring how scraped
// sources title their listings; zero results is a legitimate empty list.
func (prov *tmdbProvider) Search(query string) ([]provider.Candidate, error) {
	path := fmt.Sprintf(searchMovieQuery, prov.config.BaseURL, url.QueryEscape(query), prov.config.APIKey)
	var result searchResult
	if err := httpGetJSONResponse(path, &result); err != nil {
		return nil, asTransportError(err)
	}

	candidates := make([]provider.Candidate, len(result.Results))
	for i, item := range result.Results {
		title := item.Title
		if year := yearOf(item.ReleaseDate); year != nil {
			title = fmt.Sprintf("%s (%d)", item.Title, *year)
		}

		candidates[i] = provider.Candidate{
			ID:        item.ID.String(),
			Title:     title,
			PosterURL: imageURL(item.PosterPath),
		}
	}

	return candidates, nil
}

// Fetch resolves a TMDB movie ID into a full metadata record, including the
// cast and crew from the appended credits response.
func (prov *tmdbProvider) Fetch(candidateID string) (*provider.Record, error) {
	path := fmt.Sprintf(getMovieQuery, prov.config.BaseURL, candidateID, prov.config.APIKey)
	var details movieDetails
	if err := httpGetJSONResponse(path, &details); err != nil {
		if failed, ok := err.(*failedRequestError); ok && failed.httpCode == http.StatusNotFound {
			return nil, &provider.NotFoundError{ID: candidateID}
		}

		return nil, asTransportError(err)
	}

	record := provider.Record{
		Source:        Name,
		SourceID:      details.ID.String(),
		Title:         details.Title,
		OriginalTitle: details.OriginalTitle,
		Year:          yearOf(details.ReleaseDate),
		ReleaseDate:   details.ReleaseDate,
		Plot:          details.Overview,
		PosterURL:     imageURL(details.PosterPath),
		BackdropURL:   imageURL(details.BackdropPath),
	}

	if details.Runtime > 0 {
		runtime := details.Runtime
		record.Runtime = &runtime
	}

	if len(details.ProductionCompanies) > 0 {
		record.Studio = details.ProductionCompanies[0].Name
	}

	for _, genre := range details.Genres {
		record.Genres = append(record.Genres, genre.Name)
	}

	for _, cast := range details.Credits.Cast {
		record.Actors = append(record.Actors, provider.Actor{Name: cast.Name, Role: cast.Character})
	}

	for _, crew := range details.Credits.Crew {
		if crew.Job == "Director" {
			record.Director = crew.Name
			break
		}
	}

	return &record, nil
}

func yearOf(releaseDate string) *int {
	parsed, err := time.Parse(time.DateOnly, releaseDate)
	if err != nil {
		return nil
	}

	year := parsed.Year()
	return &year
}

func imageURL(path string) string {
	if path == "" {
		return ""
	}

	return imageBaseURL + path
}

type failedRequestError struct {
	httpCode int
	tmdbCode int
	message  string
}

func (err *failedRequestError) Error() string {
	return fmt.Sprintf("request failure (HTTP %d): %s", err.httpCode, err.message)
}

// asTransportError normalises HTTP-level failures in to the provider
// package's transport error type so callers only see the capability's
// documented error taxonomy.
func asTransportError(err error) error {
	if failed, ok := err.(*failedRequestError); ok {
		return &provider.TransportError{Reason: failed.Error()}
	}

	return err
}

func httpGetJSONResponse(urlPath string, target any) error {
	resp, err := http.Get(urlPath)
	if err != nil {
		return &provider.TransportError{Reason: fmt.Sprintf("failed to perform GET to TMDB: %s", err.Error())}
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var tmdbErr tmdbError
		if err := json.Unmarshal(respBody, &tmdbErr); err != nil {
			return &failedRequestError{httpCode: resp.StatusCode, message: "non-OK response could not be unmarshalled", tmdbCode: -1}
		}

		return &failedRequestError{httpCode: resp.StatusCode, message: tmdbErr.StatusMessage, tmdbCode: tmdbErr.StatusCode}
	}

	if err != nil {
		return &provider.TransportError{Reason: fmt.Sprintf("failed to read response body: %s", err.Error())}
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return &provider.TransportError{Reason: fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	return nil
}
