package datamodel

import "strings"

// Fixed index and ranking keys of the movies data model
const (
	KeyMovieAll      = "movie:all"
	KeyMovieTopRated = "movie:top_rated"
	KeyMoviePopular  = "movie:popular"
	KeyUserAll       = "user:all"
)

// Movie is the primary record of one film. The metadata lives in the
// movie:<id> hash, genres in a separate set feeding the genre index.
type Movie struct {
	ID            string
	Title         string
	OriginalTitle string
	ReleaseDate   string
	Budget        int64
	Revenue       int64
	Runtime       float64
	VoteAverage   float64
	VoteCount     int64
	Popularity    float64
	Overview      string
	Language      string
	Status        string
	Genres        []string
}

// HashFields returns the metadata fields as stored in the movie:<id> hash.
// Genres are not part of the hash, they live in their own set.
func (m *Movie) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"title":          m.Title,
		"original_title": m.OriginalTitle,
		"release_date":   m.ReleaseDate,
		"budget":         m.Budget,
		"revenue":        m.Revenue,
		"runtime":        m.Runtime,
		"vote_average":   m.VoteAverage,
		"vote_count":     m.VoteCount,
		"popularity":     m.Popularity,
		"overview":       Truncate(m.Overview, 500),
		"language":       m.Language,
		"status":         m.Status,
	}
}

// MovieFromHash rebuilds a movie from the fields of its hash. Unparsable
// numeric fields come back as zero values.
func MovieFromHash(id string, fields map[string]string) Movie {
	return Movie{
		ID:            id,
		Title:         fields["title"],
		OriginalTitle: fields["original_title"],
		ReleaseDate:   fields["release_date"],
		Budget:        parseInt(fields["budget"]),
		Revenue:       parseInt(fields["revenue"]),
		Runtime:       parseFloat(fields["runtime"]),
		VoteAverage:   parseFloat(fields["vote_average"]),
		VoteCount:     parseInt(fields["vote_count"]),
		Popularity:    parseFloat(fields["popularity"]),
		Overview:      fields["overview"],
		Language:      fields["language"],
		Status:        fields["status"],
	}
}

// MovieKey returns movie:<id>
func MovieKey(id string) string { return "movie:" + id }

// MovieGenresKey returns movie:<id>:genres
func MovieGenresKey(id string) string { return "movie:" + id + ":genres" }

// MovieCastKey returns movie:<id>:cast
func MovieCastKey(id string) string { return "movie:" + id + ":cast" }

// MovieCrewKey returns movie:<id>:crew
func MovieCrewKey(id string) string { return "movie:" + id + ":crew" }

// MovieKeywordsKey returns movie:<id>:keywords
func MovieKeywordsKey(id string) string { return "movie:" + id + ":keywords" }

// MovieRatingsKey returns movie:<id>:ratings
func MovieRatingsKey(id string) string { return "movie:" + id + ":ratings" }

// UserKey returns user:<id>
func UserKey(id string) string { return "user:" + id }

// UserRatingsKey returns user:<id>:ratings
func UserRatingsKey(id string) string { return "user:" + id + ":ratings" }

// UserWatchlistKey returns user:<id>:watchlist
func UserWatchlistKey(id string) string { return "user:" + id + ":watchlist" }

// GenreMoviesKey returns the genre index key, genre names are lowercased
func GenreMoviesKey(genre string) string {
	return "genre:" + strings.ToLower(genre) + ":movies"
}

// ActorMoviesKey returns the actor index key for a display name
func ActorMoviesKey(name string) string {
	return "actor:" + SnakeCase(name) + ":movies"
}

// DirectorMoviesKey returns the director index key for a display name
func DirectorMoviesKey(name string) string {
	return "director:" + SnakeCase(name) + ":movies"
}

// IMDBKey returns the lookup alias imdb:tt<id> for an imdb id that
// already carries the tt prefix
func IMDBKey(imdbID string) string { return "imdb:" + imdbID }

// TMDBKey returns the lookup alias tmdb:<id>
func TMDBKey(tmdbID string) string { return "tmdb:" + tmdbID }
