package sidecar_test

import (
	"encoding/xml"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nfowatch/nfowatch/internal/provider"
	"github.com/nfowatch/nfowatch/internal/sidecar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func fullRecord() *provider.Record {
	return &provider.Record{
		Source:        "tmdb",
		SourceID:      "42",
		Title:         "Cool Movie",
		OriginalTitle: "Le Film Cool",
		Year:          intPtr(2020),
		ReleaseDate:   "2020-06-12",
		Plot:          "A cool movie about cool things.",
		Runtime:       intPtr(113),
		Studio:        "Cool Studios",
		Director:      "Jane Doe",
		Rating:        "PG-13",
		Genres:        []string{"Action", "Comedy"},
		Tags:          []string{"heist"},
		Actors: []provider.Actor{
			{Name: "John Smith", Role: "The Lead"},
			{Name: "Sam Jones"},
		},
		PosterURL:   "https://img.example.com/poster.jpg",
		BackdropURL: "https://img.example.com/backdrop.jpg",
	}
}

func Test_Generate_RoundTrip(t *testing.T) {
	record := fullRecord()
	document, assets, err := sidecar.Generate(record)
	require.NoError(t, err)

	parsed := sidecar.Document{}
	require.NoError(t, xml.Unmarshal([]byte(document), &parsed))

	assert.Equal(t, record.Title, parsed.Title)
	assert.Equal(t, record.OriginalTitle, parsed.OriginalTitle)
	assert.Equal(t, record.Year, parsed.Year)
	assert.Equal(t, record.ReleaseDate, parsed.Premiered)
	assert.Equal(t, record.Plot, parsed.Plot)
	assert.Equal(t, record.Runtime, parsed.Runtime)
	assert.Equal(t, record.Studio, parsed.Studio)
	assert.Equal(t, record.Director, parsed.Director)
	assert.Equal(t, record.Genres, parsed.Genres)
	assert.Equal(t, record.Rating, parsed.Mpaa)
	assert.Equal(t, []sidecar.Actor{
		{Name: "John Smith", Role: "The Lead"},
		{Name: "Sam Jones"},
	}, parsed.Actors)
	assert.Equal(t, []string{"heist", "Source: tmdb", "SourceID: 42"}, parsed.Tags)
	assert.Equal(t, record.PosterURL, parsed.Thumb)
	assert.Equal(t, record.PosterURL, parsed.Poster)
	assert.Equal(t, record.BackdropURL, parsed.Fanart)

	assert.Equal(t, []sidecar.Asset{
		{URL: record.PosterURL, Suffix: sidecar.PosterSuffix},
		{URL: record.BackdropURL, Suffix: sidecar.FanartSuffix},
	}, assets)
}

func Test_Generate_Formatting(t *testing.T) {
	document, _, err := sidecar.Generate(fullRecord())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(document, xml.Header), "document should open with the XML declaration")
	assert.Contains(t, document, "  <title>Cool Movie</title>", "elements should be indented with two spaces")
	assert.True(t, strings.HasSuffix(document, "</movie>\n"))
}

func Test_Generate_OutlineTruncation(t *testing.T) {
	record := fullRecord()
	record.Plot = strings.Repeat("x", 250)

	document, _, err := sidecar.Generate(record)
	require.NoError(t, err)

	parsed := sidecar.Document{}
	require.NoError(t, xml.Unmarshal([]byte(document), &parsed))

	assert.Len(t, parsed.Outline, 203)
	assert.True(t, strings.HasSuffix(parsed.Outline, "..."))

	// A plot at the cap is left untouched
	record.Plot = strings.Repeat("x", 200)
	document, _, err = sidecar.Generate(record)
	require.NoError(t, err)
	require.NoError(t, xml.Unmarshal([]byte(document), &parsed))
	assert.Len(t, parsed.Outline, 200)
}

func Test_Generate_OutlineCountsCharactersNotBytes(t *testing.T) {
	record := fullRecord()

	// 150 characters but 300 bytes: under the character cap, so the
	// outline must be the untouched plot
	record.Plot = strings.Repeat("é", 150)
	document, _, err := sidecar.Generate(record)
	require.NoError(t, err)

	parsed := sidecar.Document{}
	require.NoError(t, xml.Unmarshal([]byte(document), &parsed))
	assert.Equal(t, record.Plot, parsed.Outline)

	// Over the cap, truncation must land on a character boundary
	record.Plot = strings.Repeat("é", 250)
	document, _, err = sidecar.Generate(record)
	require.NoError(t, err)
	require.NoError(t, xml.Unmarshal([]byte(document), &parsed))

	assert.Equal(t, 203, utf8.RuneCountInString(parsed.Outline))
	assert.True(t, utf8.ValidString(parsed.Outline))
	assert.Equal(t, strings.Repeat("é", 200)+"...", parsed.Outline)
}

func Test_Generate_SparseRecord(t *testing.T) {
	record := &provider.Record{Source: "tmdb", SourceID: "42", Title: "Cool Movie"}

	document, assets, err := sidecar.Generate(record)
	require.NoError(t, err)
	assert.Empty(t, assets)

	assert.NotContains(t, document, "<year>")
	assert.NotContains(t, document, "<plot>")
	assert.NotContains(t, document, "<outline>")
	assert.NotContains(t, document, "<thumb>")
	assert.NotContains(t, document, "<fanart>")
	assert.Contains(t, document, "<originaltitle>Cool Movie</originaltitle>", "original title should default to the title")
}

func Test_Generate_BackdropSameAsPoster(t *testing.T) {
	record := fullRecord()
	record.BackdropURL = record.PosterURL

	_, assets, err := sidecar.Generate(record)
	require.NoError(t, err)

	assert.Equal(t, []sidecar.Asset{{URL: record.PosterURL, Suffix: sidecar.PosterSuffix}}, assets)
}

func Test_Paths(t *testing.T) {
	assert.Equal(t, "/media/Cool.Movie.2020.1080p.nfo", sidecar.PathFor("/media/Cool.Movie.2020.1080p.mkv"))
	assert.Equal(t, "/media/Film-poster.jpg", sidecar.AssetPathFor("/media/Film.mkv", sidecar.PosterSuffix))
	assert.Equal(t, "/media/Film-fanart.jpg", sidecar.AssetPathFor("/media/Film.mkv", sidecar.FanartSuffix))
}
