package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/vietddude/nfowatch/internal/infra/storage"
)

var imdbIDPattern = regexp.MustCompile(`(?i)imdb\.[a-z.]+/(?:[a-z]{2}/)?title/(tt\d{5,8})`)

// ParseIMDbID returns the first IMDb title id linked from text.
func ParseIMDbID(text string) (string, bool) {
	m := imdbIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MovieIDExtractor records IMDb ids linked from NFO text on the release.
type MovieIDExtractor struct {
	repo storage.MovieRepository
}

// NewMovieIDExtractor creates a movie id extractor.
func NewMovieIDExtractor(repo storage.MovieRepository) *MovieIDExtractor {
	return &MovieIDExtractor{repo: repo}
}

// OnNfoText stores the first IMDb id in text. It is a no-op when
// extractImdbIDs is false or no id is present.
func (e *MovieIDExtractor) OnNfoText(ctx context.Context, text string, releaseID int64, extractImdbIDs bool) error {
	if !extractImdbIDs {
		return nil
	}
	id, ok := ParseIMDbID(text)
	if !ok {
		return nil
	}
	if err := e.repo.SetIMDbID(ctx, releaseID, id); err != nil {
		return fmt.Errorf("record imdb id: %w", err)
	}
	slog.Debug("IMDb id recorded", "release_id", releaseID, "imdb_id", id)
	return nil
}
