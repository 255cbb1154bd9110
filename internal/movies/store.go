package movies

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Store owns every mutation of the movies data model. Each write method
// computes the full set of primary record and index updates and applies
// them as one pipeline under a single writer lock. The pipeline is a
// plain batch, not a transaction. Reads go straight to redis without
// locking.
type Store struct {
	rdb *redis.Client
	mu  sync.Mutex
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// MovieRating is one user rating of a movie.
type MovieRating struct {
	UserID string
	Rating float64
}

// UserRating is one movie rating given by a user.
type UserRating struct {
	MovieID string
	Rating  float64
}

// RankedMovie is one ranking entry together with its score.
type RankedMovie struct {
	MovieID string
	Score   float64
}

// GenreCount is the number of movies indexed for a genre.
type GenreCount struct {
	Genre string
	Count int64
}

// SimilarMovie is a movie sharing genres with a source movie.
type SimilarMovie struct {
	MovieID      string
	SharedGenres int
}

// queueCreateMovie queues every write a new movie consists of: the
// metadata hash, the genre set, the genre index entries, the member
// sets and the rankings. Both the single movie create and the bulk
// import run through this one delta.
func queueCreateMovie(ctx context.Context, pipe redis.Pipeliner, movie datamodel.Movie) {
	pipe.HSet(ctx, datamodel.MovieKey(movie.ID), movie.HashFields())
	for _, genre := range movie.Genres {
		pipe.SAdd(ctx, datamodel.MovieGenresKey(movie.ID), genre)
		pipe.SAdd(ctx, datamodel.GenreMoviesKey(genre), movie.ID)
	}
	pipe.SAdd(ctx, datamodel.KeyMovieAll, movie.ID)
	pipe.ZAdd(ctx, datamodel.KeyMoviePopular, &redis.Z{Score: movie.Popularity, Member: movie.ID})
	// Vote averages are only trustworthy with a minimum number of votes
	if movie.VoteCount >= 10 {
		pipe.ZAdd(ctx, datamodel.KeyMovieTopRated, &redis.Z{Score: movie.VoteAverage, Member: movie.ID})
	}
}

// CreateMovie writes a movie with all its index entries in one batch.
func (s *Store) CreateMovie(ctx context.Context, movie datamodel.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		queueCreateMovie(ctx, pipe, movie)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Created movie %s (%s)", movie.ID, movie.Title)
	}
	return err
}

// AddRating stores a rating on both the user and the movie side, creates
// the user record on first contact and refreshes the movie's rating
// statistics.
func (s *Store) AddRating(ctx context.Context, userID, movieID string, rating float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, datamodel.UserRatingsKey(userID), &redis.Z{Score: rating, Member: movieID})
		pipe.ZAdd(ctx, datamodel.MovieRatingsKey(movieID), &redis.Z{Score: rating, Member: userID})
		pipe.HSetNX(ctx, datamodel.UserKey(userID), "user_id", userID)
		pipe.SAdd(ctx, datamodel.KeyUserAll, userID)
		return nil
	})
	if err != nil {
		return err
	}
	return s.refreshRatingStats(ctx, movieID)
}

// DeleteRating removes a rating from both sides and refreshes the
// movie's statistics.
func (s *Store) DeleteRating(ctx context.Context, userID, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, datamodel.UserRatingsKey(userID), movieID)
		pipe.ZRem(ctx, datamodel.MovieRatingsKey(movieID), userID)
		return nil
	})
	if err != nil {
		return err
	}
	return s.refreshRatingStats(ctx, movieID)
}

// RefreshRatingStats recomputes the user rating average of a movie and
// promotes it into the top rated ranking once five ratings are in.
func (s *Store) RefreshRatingStats(ctx context.Context, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshRatingStats(ctx, movieID)
}

func (s *Store) refreshRatingStats(ctx context.Context, movieID string) error {
	ratings, err := s.rdb.ZRangeWithScores(ctx, datamodel.MovieRatingsKey(movieID), 0, -1).Result()
	if err != nil {
		return err
	}
	if len(ratings) == 0 {
		return nil
	}

	var total float64
	for _, entry := range ratings {
		total += entry.Score
	}
	count := len(ratings)
	avg := total / float64(count)

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, datamodel.MovieKey(movieID), map[string]interface{}{
			"user_rating_avg":   math.Round(avg*100) / 100,
			"user_rating_count": count,
		})
		if count >= 5 {
			pipe.ZAdd(ctx, datamodel.KeyMovieTopRated, &redis.Z{Score: avg, Member: movieID})
		}
		return nil
	})
	return err
}

// AddToWatchlist puts a movie on the user's watchlist.
func (s *Store) AddToWatchlist(ctx context.Context, userID, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rdb.SAdd(ctx, datamodel.UserWatchlistKey(userID), movieID).Err()
}

// RemoveFromWatchlist takes a movie off the user's watchlist.
func (s *Store) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rdb.SRem(ctx, datamodel.UserWatchlistKey(userID), movieID).Err()
}

// UpdateMovie overwrites the given hash fields of a movie.
func (s *Store) UpdateMovie(ctx context.Context, movieID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rdb.HSet(ctx, datamodel.MovieKey(movieID), fields).Err()
}

// DeleteMovie removes a movie together with every index entry pointing
// at it. Genre memberships are re-read from the stored genre set, so the
// cleanup covers exactly what the set currently says.
func (s *Store) DeleteMovie(ctx context.Context, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	genres, err := s.rdb.SMembers(ctx, datamodel.MovieGenresKey(movieID)).Result()
	if err != nil {
		return err
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, genre := range genres {
			pipe.SRem(ctx, datamodel.GenreMoviesKey(genre), movieID)
		}
		pipe.SRem(ctx, datamodel.KeyMovieAll, movieID)
		pipe.ZRem(ctx, datamodel.KeyMovieTopRated, movieID)
		pipe.ZRem(ctx, datamodel.KeyMoviePopular, movieID)
		pipe.Del(ctx,
			datamodel.MovieKey(movieID),
			datamodel.MovieGenresKey(movieID),
			datamodel.MovieCastKey(movieID),
			datamodel.MovieCrewKey(movieID),
			datamodel.MovieRatingsKey(movieID),
			datamodel.MovieKeywordsKey(movieID),
		)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Deleted movie %s and all associated data", movieID)
	}
	return err
}

// Movie reads the metadata hash. found is false when no such movie exists.
func (s *Store) Movie(ctx context.Context, movieID string) (movie datamodel.Movie, found bool, err error) {
	fields, err := s.rdb.HGetAll(ctx, datamodel.MovieKey(movieID)).Result()
	if err != nil {
		return datamodel.Movie{}, false, err
	}
	if len(fields) == 0 {
		return datamodel.Movie{}, false, nil
	}
	return datamodel.MovieFromHash(movieID, fields), true, nil
}

func (s *Store) MovieGenres(ctx context.Context, movieID string) ([]string, error) {
	return s.rdb.SMembers(ctx, datamodel.MovieGenresKey(movieID)).Result()
}

func (s *Store) MovieCast(ctx context.Context, movieID string, limit int64) ([]string, error) {
	return s.rdb.LRange(ctx, datamodel.MovieCastKey(movieID), 0, limit-1).Result()
}

func (s *Store) MovieCrew(ctx context.Context, movieID string) ([]string, error) {
	return s.rdb.LRange(ctx, datamodel.MovieCrewKey(movieID), 0, -1).Result()
}

func (s *Store) MovieKeywords(ctx context.Context, movieID string) ([]string, error) {
	return s.rdb.SMembers(ctx, datamodel.MovieKeywordsKey(movieID)).Result()
}

// MovieRatings returns the highest ratings of a movie, newest raters first
// on equal scores.
func (s *Store) MovieRatings(ctx context.Context, movieID string, limit int64) ([]MovieRating, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, datamodel.MovieRatingsKey(movieID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	ratings := make([]MovieRating, 0, len(entries))
	for _, entry := range entries {
		ratings = append(ratings, MovieRating{UserID: asString(entry.Member), Rating: entry.Score})
	}
	return ratings, nil
}

// UserRatings returns the movies a user rated, best rated first.
func (s *Store) UserRatings(ctx context.Context, userID string, limit int64) ([]UserRating, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, datamodel.UserRatingsKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	ratings := make([]UserRating, 0, len(entries))
	for _, entry := range entries {
		ratings = append(ratings, UserRating{MovieID: asString(entry.Member), Rating: entry.Score})
	}
	return ratings, nil
}

func (s *Store) Watchlist(ctx context.Context, userID string) ([]string, error) {
	return s.rdb.SMembers(ctx, datamodel.UserWatchlistKey(userID)).Result()
}

// MoviesByGenre samples up to limit movies from the genre index.
func (s *Store) MoviesByGenre(ctx context.Context, genre string, limit int64) ([]string, error) {
	return s.rdb.SRandMemberN(ctx, datamodel.GenreMoviesKey(genre), limit).Result()
}

func (s *Store) MoviesByActor(ctx context.Context, actorName string) ([]string, error) {
	return s.rdb.SMembers(ctx, datamodel.ActorMoviesKey(actorName)).Result()
}

func (s *Store) MoviesByDirector(ctx context.Context, directorName string) ([]string, error) {
	return s.rdb.SMembers(ctx, datamodel.DirectorMoviesKey(directorName)).Result()
}

// MovieByIMDB resolves a movie through its imdb alias. The tt prefix is
// added when missing.
func (s *Store) MovieByIMDB(ctx context.Context, imdbID string) (datamodel.Movie, bool, error) {
	if !strings.HasPrefix(imdbID, "tt") {
		imdbID = "tt" + imdbID
	}
	movieID, err := s.rdb.Get(ctx, datamodel.IMDBKey(imdbID)).Result()
	if err == redis.Nil {
		return datamodel.Movie{}, false, nil
	}
	if err != nil {
		return datamodel.Movie{}, false, err
	}
	return s.Movie(ctx, movieID)
}

// MovieByTMDB resolves a movie through its tmdb alias.
func (s *Store) MovieByTMDB(ctx context.Context, tmdbID string) (datamodel.Movie, bool, error) {
	movieID, err := s.rdb.Get(ctx, datamodel.TMDBKey(tmdbID)).Result()
	if err == redis.Nil {
		return datamodel.Movie{}, false, nil
	}
	if err != nil {
		return datamodel.Movie{}, false, err
	}
	return s.Movie(ctx, movieID)
}

func (s *Store) TopRated(ctx context.Context, n int64) ([]RankedMovie, error) {
	return s.ranked(ctx, datamodel.KeyMovieTopRated, n)
}

func (s *Store) MostPopular(ctx context.Context, n int64) ([]RankedMovie, error) {
	return s.ranked(ctx, datamodel.KeyMoviePopular, n)
}

func (s *Store) ranked(ctx context.Context, key string, n int64) ([]RankedMovie, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	ranked := make([]RankedMovie, 0, len(entries))
	for _, entry := range entries {
		ranked = append(ranked, RankedMovie{MovieID: asString(entry.Member), Score: entry.Score})
	}
	return ranked, nil
}

func (s *Store) MovieCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeyMovieAll).Result()
}

func (s *Store) UserCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeyUserAll).Result()
}

// Genres reported by the statistics demo
var statGenres = []string{"action", "comedy", "drama", "thriller", "sci-fi", "romance", "horror", "adventure"}

// GenreStats returns the movie count for the fixed demo genres.
func (s *Store) GenreStats(ctx context.Context) ([]GenreCount, error) {
	counts := make([]GenreCount, 0, len(statGenres))
	for _, genre := range statGenres {
		count, err := s.rdb.SCard(ctx, datamodel.GenreMoviesKey(genre)).Result()
		if err != nil {
			return nil, err
		}
		counts = append(counts, GenreCount{Genre: genre, Count: count})
	}
	return counts, nil
}

// RecommendByGenre suggests up to limit movies the user has not rated
// yet, drawn from the genres of movies the user rated four stars or
// better.
func (s *Store) RecommendByGenre(ctx context.Context, userID string, limit int) ([]string, error) {
	liked, err := s.rdb.ZRangeByScore(ctx, datamodel.UserRatingsKey(userID), &redis.ZRangeBy{Min: "4", Max: "5"}).Result()
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return nil, nil
	}

	likedGenres := make(map[string]struct{})
	for _, movieID := range liked {
		genres, err := s.rdb.SMembers(ctx, datamodel.MovieGenresKey(movieID)).Result()
		if err != nil {
			return nil, err
		}
		for _, genre := range genres {
			likedGenres[strings.ToLower(genre)] = struct{}{}
		}
	}

	recommendations := make([]string, 0, limit)
	seen := make(map[string]struct{})
	for genre := range likedGenres {
		candidates, err := s.rdb.SMembers(ctx, datamodel.GenreMoviesKey(genre)).Result()
		if err != nil {
			return nil, err
		}
		for _, movieID := range candidates {
			if _, ok := seen[movieID]; ok {
				continue
			}
			err := s.rdb.ZScore(ctx, datamodel.UserRatingsKey(userID), movieID).Err()
			if err == nil {
				// already rated
				continue
			}
			if err != redis.Nil {
				return nil, err
			}
			seen[movieID] = struct{}{}
			recommendations = append(recommendations, movieID)
			if len(recommendations) >= limit {
				return recommendations, nil
			}
		}
	}
	return recommendations, nil
}

// SimilarMovies ranks other movies by the number of genres they share
// with the source movie.
func (s *Store) SimilarMovies(ctx context.Context, movieID string, limit int) ([]SimilarMovie, error) {
	sourceGenres, err := s.MovieGenres(ctx, movieID)
	if err != nil || len(sourceGenres) == 0 {
		return nil, err
	}

	overlap := make(map[string]int)
	for _, genre := range sourceGenres {
		candidates, err := s.rdb.SMembers(ctx, datamodel.GenreMoviesKey(genre)).Result()
		if err != nil {
			return nil, err
		}
		for _, candidate := range candidates {
			if candidate == movieID {
				continue
			}
			overlap[candidate]++
		}
	}

	similar := make([]SimilarMovie, 0, len(overlap))
	for id, count := range overlap {
		similar = append(similar, SimilarMovie{MovieID: id, SharedGenres: count})
	}
	sort.Slice(similar, func(i, j int) bool {
		if similar[i].SharedGenres != similar[j].SharedGenres {
			return similar[i].SharedGenres > similar[j].SharedGenres
		}
		return similar[i].MovieID < similar[j].MovieID
	})
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

func asString(member interface{}) string {
	s, _ := member.(string)
	return s
}
