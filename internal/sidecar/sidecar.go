// Package sidecar renders a metadata record in to the XML companion document
// consumed by media-library software (Emby/Kodi style '.nfo'), along with the
// list of image assets that should be fetched to sit alongside it.
package sidecar

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nfowatch/nfowatch/internal/provider"
)

const (
	// Extension is the file extension of a generated sidecar; the document
	// is always written adjacent to the media file with the same base name.
	Extension = ".nfo"

	PosterSuffix = "-poster.jpg"
	FanartSuffix = "-fanart.jpg"

	outlineLimit = 200
)

type (
	Actor struct {
		Name string `xml:"name"`
		Role string `xml:"role,omitempty"`
	}

	// Document is the serialized form of a provider record. Optional fields
	// are omitted entirely rather than rendered empty.
	Document struct {
		XMLName       xml.Name `xml:"movie"`
		Title         string   `xml:"title,omitempty"`
		OriginalTitle string   `xml:"originaltitle,omitempty"`
		Year          *int     `xml:"year,omitempty"`
		Premiered     string   `xml:"premiered,omitempty"`
		Plot          string   `xml:"plot,omitempty"`
		Outline       string   `xml:"outline,omitempty"`
		Runtime       *int     `xml:"runtime,omitempty"`
		Studio        string   `xml:"studio,omitempty"`
		Director      string   `xml:"director,omitempty"`
		Genres        []string `xml:"genre"`
		Tags          []string `xml:"tag"`
		Actors        []Actor  `xml:"actor"`
		Thumb         string   `xml:"thumb,omitempty"`
		Poster        string   `xml:"poster,omitempty"`
		Fanart        string   `xml:"fanart,omitempty"`
		Mpaa          string   `xml:"mpaa,omitempty"`
	}

	// Asset names a remote image and the filename suffix it should be
	// saved under next to the media file.
	Asset struct {
		URL    string
		Suffix string
	}
)

// Generate renders the record to a pretty-printed XML document and derives
// the ordered list of image assets to download. The poster is listed first;
// the backdrop is skipped when it is the same URL as the poster. Generate is
// pure: it never touches the filesystem, and it never overwrites anything -
// the orchestrator decides whether the document may be written.
func Generate(record *provider.Record) (string, []Asset, error) {
	doc := Document{
		Year:      record.Year,
		Premiered: record.ReleaseDate,
		Plot:      record.Plot,
		Runtime:   record.Runtime,
		Studio:    record.Studio,
		Director:  record.Director,
		Genres:    record.Genres,
		Mpaa:      record.Rating,
	}

	if record.Title != "" {
		doc.Title = record.Title
		doc.OriginalTitle = record.OriginalTitle
		if doc.OriginalTitle == "" {
			doc.OriginalTitle = record.Title
		}
	}

	if record.Plot != "" {
		doc.Outline = truncateOutline(record.Plot)
	}

	doc.Tags = append(doc.Tags, record.Tags...)
	doc.Tags = append(doc.Tags,
		fmt.Sprintf("Source: %s", record.Source),
		fmt.Sprintf("SourceID: %s", record.SourceID),
	)

	for _, actor := range record.Actors {
		doc.Actors = append(doc.Actors, Actor{Name: actor.Name, Role: actor.Role})
	}

	if record.PosterURL != "" {
		doc.Thumb = record.PosterURL
		doc.Poster = record.PosterURL
	}
	doc.Fanart = record.BackdropURL

	serialized, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to serialize sidecar document: %w", err)
	}

	assets := make([]Asset, 0, 2)
	if record.PosterURL != "" {
		assets = append(assets, Asset{URL: record.PosterURL, Suffix: PosterSuffix})
	}
	if record.BackdropURL != "" && record.BackdropURL != record.PosterURL {
		assets = append(assets, Asset{URL: record.BackdropURL, Suffix: FanartSuffix})
	}

	return xml.Header + string(serialized) + "\n", assets, nil
}

// PathFor returns the sidecar path for the given media file path: same
// directory, same base name, '.nfo' extension.
func PathFor(mediaPath string) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + Extension
}

// AssetPathFor returns the on-disk destination for an asset belonging to
// the given media file, e.g. '/media/Film.mkv' + '-poster.jpg' becomes
// '/media/Film-poster.jpg'.
func AssetPathFor(mediaPath string, suffix string) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + suffix
}

// truncateOutline caps the plot at outlineLimit characters, appending an
// ellipsis when truncation occurred. The cap counts characters, not bytes,
// so a multi-byte plot is never split mid-rune.
func truncateOutline(plot string) string {
	runes := []rune(plot)
	if len(runes) > outlineLimit {
		return string(runes[:outlineLimit]) + "..."
	}

	return plot
}
