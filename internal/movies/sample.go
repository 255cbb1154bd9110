package movies

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Synthetic catalog shape, loaded when the dataset files are absent.
const (
	sampleMovieCount  = 1000
	sampleUserCount   = 100
	sampleRatingCount = 5000
	sampleSeed        = 2016
)

var (
	sampleGenres = []string{
		"Drama", "Comedy", "Action", "Thriller", "Romance",
		"Adventure", "Science Fiction", "Horror", "Crime", "Animation",
	}
	sampleLanguages = []string{"en", "fr", "de", "es", "ja", "it"}
	sampleFirstNames = []string{
		"James", "Mary", "Robert", "Linda", "Michael", "Susan",
		"David", "Karen", "Daniel", "Nancy", "Thomas", "Lisa",
	}
	sampleLastNames = []string{
		"Smith", "Jones", "Miller", "Davis", "Garcia", "Wilson",
		"Anderson", "Taylor", "Moore", "Martin", "Lee", "Clark",
	}
	sampleKeywordPool = []string{
		"friendship", "revenge", "space", "robot", "love", "war",
		"heist", "family", "future", "magic", "detective", "survival",
		"road trip", "conspiracy", "time travel", "monster",
	}
)

// sampleMovie is one generated catalog entry with everything the five
// import files would contribute for it.
type sampleMovie struct {
	datamodel.Movie
	Cast     []string
	Director string
	Keywords []string
	IMDBID   string
	TMDBID   string
}

type sampleRating struct {
	UserID  string
	MovieID string
	Rating  float64
}

func samplePersonName(r *rand.Rand) string {
	return internal.Pick(r, sampleFirstNames) + " " + internal.Pick(r, sampleLastNames)
}

// sampleMovies generates the synthetic catalog. The generator is seeded,
// repeated runs produce the identical catalog.
func sampleMovies() []sampleMovie {
	r := internal.NewSampleRand(sampleSeed)
	catalog := make([]sampleMovie, 0, sampleMovieCount)

	for i := 1; i <= sampleMovieCount; i++ {
		movieID := strconv.Itoa(i)

		genreCount := 1 + r.Intn(3)
		genres := make([]string, 0, genreCount)
		seen := make(map[string]struct{}, genreCount)
		for len(genres) < genreCount {
			genre := internal.Pick(r, sampleGenres)
			if _, ok := seen[genre]; ok {
				continue
			}
			seen[genre] = struct{}{}
			genres = append(genres, genre)
		}

		cast := make([]string, 0, 5)
		for len(cast) < 5 {
			cast = append(cast, samplePersonName(r))
		}
		keywords := make([]string, 0, 4)
		for len(keywords) < 4 {
			keywords = append(keywords, internal.Pick(r, sampleKeywordPool))
		}

		voteCount := int64(r.Intn(4000))
		catalog = append(catalog, sampleMovie{
			Movie: datamodel.Movie{
				ID:            movieID,
				Title:         fmt.Sprintf("Sample Movie %d", i),
				OriginalTitle: fmt.Sprintf("Sample Movie %d", i),
				ReleaseDate:   fmt.Sprintf("%d-%02d-%02d", 1980+r.Intn(40), 1+r.Intn(12), 1+r.Intn(28)),
				Budget:        int64(r.Intn(200)) * 1000000,
				Revenue:       int64(r.Intn(800)) * 1000000,
				Runtime:       float64(80 + r.Intn(80)),
				VoteAverage:   float64(40+r.Intn(55)) / 10,
				VoteCount:     voteCount,
				Popularity:    r.Float64() * 50,
				Overview:      fmt.Sprintf("A generated overview for sample movie %d.", i),
				Language:      internal.Pick(r, sampleLanguages),
				Status:        "Released",
				Genres:        genres,
			},
			Cast:     cast,
			Director: samplePersonName(r),
			Keywords: keywords,
			IMDBID:   fmt.Sprintf("tt%07d", i),
			TMDBID:   movieID,
		})
	}
	return catalog
}

// sampleRatings draws ratings over the synthetic catalog, half star
// steps between 0.5 and 5.0.
func sampleRatings() []sampleRating {
	r := internal.NewSampleRand(sampleSeed + 1)
	ratings := make([]sampleRating, 0, sampleRatingCount)
	for i := 0; i < sampleRatingCount; i++ {
		ratings = append(ratings, sampleRating{
			UserID:  strconv.Itoa(1 + r.Intn(sampleUserCount)),
			MovieID: strconv.Itoa(1 + r.Intn(sampleMovieCount)),
			Rating:  float64(1+r.Intn(10)) / 2,
		})
	}
	return ratings
}

func (imp *Importer) importSampleMetadata(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, movie := range sampleMovies() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueCreateMovie(ctx, batch.Pipe(), movie.Movie)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, 0, err
		}
	}
	return imported, 0, batch.Flush(ctx)
}

func (imp *Importer) importSampleCredits(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, movie := range sampleMovies() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		for _, actor := range movie.Cast {
			batch.Pipe().LPush(ctx, datamodel.MovieCastKey(movie.ID), actor)
			batch.Pipe().SAdd(ctx, datamodel.ActorMoviesKey(actor), movie.ID)
		}
		batch.Pipe().LPush(ctx, datamodel.MovieCrewKey(movie.ID), "Director: "+movie.Director)
		batch.Pipe().SAdd(ctx, datamodel.DirectorMoviesKey(movie.Director), movie.ID)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, 0, err
		}
	}
	return imported, 0, batch.Flush(ctx)
}

func (imp *Importer) importSampleRatings(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, ratingsBatchSize)
	agg := newRatingAggregates()
	for _, rating := range sampleRatings() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		batch.Pipe().ZAdd(ctx, datamodel.UserRatingsKey(rating.UserID), &redis.Z{Score: rating.Rating, Member: rating.MovieID})
		batch.Pipe().ZAdd(ctx, datamodel.MovieRatingsKey(rating.MovieID), &redis.Z{Score: rating.Rating, Member: rating.UserID})
		agg.track(rating.UserID, rating.MovieID, rating.Rating)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, 0, err
		}
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, 0, err
	}
	return imported, 0, agg.flush(ctx, batch)
}

func (imp *Importer) importSampleKeywords(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, movie := range sampleMovies() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		for _, keyword := range movie.Keywords {
			batch.Pipe().SAdd(ctx, datamodel.MovieKeywordsKey(movie.ID), keyword)
		}
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, 0, err
		}
	}
	return imported, 0, batch.Flush(ctx)
}

func (imp *Importer) importSampleLinks(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, movie := range sampleMovies() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueLinks(ctx, batch.Pipe(), movie.ID, movie.IMDBID, movie.TMDBID)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, 0, err
		}
	}
	return imported, 0, batch.Flush(ctx)
}
