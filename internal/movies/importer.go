package movies

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Batch size for the high volume ratings file. The other files use the
// shared default.
const ratingsBatchSize = 10000

// Importer bulk loads The Movies Dataset. Each Import method reads one
// file of the dataset, or falls back to the deterministic synthetic
// sample when the file is absent.
type Importer struct {
	rdb      *redis.Client
	dataPath string
	limit    int
	shutdown internal.GracefulShutdownHandler
}

func NewImporter(rdb *redis.Client, dataPath string, limit int, shutdown internal.GracefulShutdownHandler) *Importer {
	return &Importer{rdb: rdb, dataPath: dataPath, limit: limit, shutdown: shutdown}
}

func (imp *Importer) reachedLimit(imported uint64) bool {
	return imp.limit > 0 && imported >= uint64(imp.limit)
}

func (imp *Importer) aborted() bool {
	return imp.shutdown != nil && imp.shutdown.ShuttingDown()
}

// ImportMetadata loads movies_metadata.csv: the movie hashes, genre sets,
// genre indexes and both rankings. Rows without a numeric id are skipped.
func (imp *Importer) ImportMetadata(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "movies_metadata.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic movie sample", path)
		return imp.importSampleMetadata(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		movieID := row.Get("id")
		if _, convErr := strconv.ParseUint(movieID, 10, 64); convErr != nil {
			skipped++
			continue
		}

		movie := datamodel.Movie{
			ID:            movieID,
			Title:         row.Get("title"),
			OriginalTitle: row.Get("original_title"),
			ReleaseDate:   row.Get("release_date"),
			Budget:        parseIntColumn(row.Get("budget")),
			Revenue:       parseIntColumn(row.Get("revenue")),
			Runtime:       parseFloatColumn(row.Get("runtime")),
			VoteAverage:   parseFloatColumn(row.Get("vote_average")),
			VoteCount:     parseIntColumn(row.Get("vote_count")),
			Popularity:    parseFloatColumn(row.Get("popularity")),
			Overview:      row.Get("overview"),
			Language:      row.Get("original_language"),
			Status:        row.Get("status"),
			Genres:        parseNames(row.Get("genres")),
		}
		queueCreateMovie(ctx, batch.Pipe(), movie)
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

// ImportCredits loads credits.csv: the top ten actors per movie into the
// cast list and actor index, directors into the crew list and director
// index.
func (imp *Importer) ImportCredits(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "credits.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic credits", path)
		return imp.importSampleCredits(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		movieID := row.Get("id")
		if movieID == "" {
			skipped++
			continue
		}

		cast := parseNames(row.Get("cast"))
		if len(cast) > 10 {
			cast = cast[:10]
		}
		for _, actor := range cast {
			batch.Pipe().LPush(ctx, datamodel.MovieCastKey(movieID), actor)
			batch.Pipe().SAdd(ctx, datamodel.ActorMoviesKey(actor), movieID)
		}
		for _, member := range parseNameList(row.Get("crew")) {
			if member.Job != "Director" || member.Name == "" {
				continue
			}
			batch.Pipe().LPush(ctx, datamodel.MovieCrewKey(movieID), "Director: "+member.Name)
			batch.Pipe().SAdd(ctx, datamodel.DirectorMoviesKey(member.Name), movieID)
		}
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

// ratingAggregates carries the in-memory per-movie and per-user sums of
// a ratings import. They are flushed as a final pipeline stage once the
// raw ratings are written.
type ratingAggregates struct {
	ratingSums   map[string]float64
	ratingCounts map[string]int
	userRatings  map[string]int
}

func newRatingAggregates() *ratingAggregates {
	return &ratingAggregates{
		ratingSums:   make(map[string]float64),
		ratingCounts: make(map[string]int),
		userRatings:  make(map[string]int),
	}
}

func (agg *ratingAggregates) track(userID, movieID string, rating float64) {
	agg.ratingSums[movieID] += rating
	agg.ratingCounts[movieID]++
	agg.userRatings[userID]++
}

// flush writes the user records and the derived movie rating statistics.
// Movies only enter the top rated ranking with at least five ratings.
func (agg *ratingAggregates) flush(ctx context.Context, batch *internal.PipelineBatcher) error {
	zap.S().Infof("Updating %d user statistics", len(agg.userRatings))
	for userID, ratingCount := range agg.userRatings {
		batch.Pipe().HSet(ctx, datamodel.UserKey(userID), map[string]interface{}{
			"user_id":      userID,
			"rating_count": ratingCount,
		})
		batch.Pipe().SAdd(ctx, datamodel.KeyUserAll, userID)
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}

	zap.S().Infof("Updating %d movie statistics", len(agg.ratingSums))
	for movieID, total := range agg.ratingSums {
		count := agg.ratingCounts[movieID]
		if count < 5 {
			continue
		}
		avg := total / float64(count)
		batch.Pipe().ZAdd(ctx, datamodel.KeyMovieTopRated, &redis.Z{Score: avg, Member: movieID})
		batch.Pipe().HSet(ctx, datamodel.MovieKey(movieID), map[string]interface{}{
			"user_rating_avg":   math.Round(avg*100) / 100,
			"user_rating_count": count,
		})
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	return batch.Flush(ctx)
}

// ImportRatings loads ratings.csv (falling back to ratings_small.csv),
// the by far largest file of the dataset. Every rating is written to
// both the user and the movie sorted set, the user records and the
// rating averages follow as a final aggregation stage.
func (imp *Importer) ImportRatings(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "ratings.csv")
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		path = filepath.Join(imp.dataPath, "ratings_small.csv")
	}
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("No ratings file found, generating synthetic ratings")
		return imp.importSampleRatings(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, ratingsBatchSize)
	agg := newRatingAggregates()
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		userID := row.Get("userId")
		movieID := row.Get("movieId")
		rating, convErr := strconv.ParseFloat(row.Get("rating"), 64)
		if userID == "" || movieID == "" || convErr != nil {
			skipped++
			continue
		}

		batch.Pipe().ZAdd(ctx, datamodel.UserRatingsKey(userID), &redis.Z{Score: rating, Member: movieID})
		batch.Pipe().ZAdd(ctx, datamodel.MovieRatingsKey(movieID), &redis.Z{Score: rating, Member: userID})
		agg.track(userID, movieID, rating)
		imported++

		if imported%500000 == 0 {
			fmt.Printf("  -> %d ratings imported...\n", imported)
		}
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	if err = agg.flush(ctx, batch); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

// ImportKeywords loads keywords.csv, capped at twenty keywords per movie.
func (imp *Importer) ImportKeywords(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "keywords.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic keywords", path)
		return imp.importSampleKeywords(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		movieID := row.Get("id")
		if movieID == "" {
			skipped++
			continue
		}
		keywords := parseNames(row.Get("keywords"))
		if len(keywords) > 20 {
			keywords = keywords[:20]
		}
		for _, keyword := range keywords {
			batch.Pipe().SAdd(ctx, datamodel.MovieKeywordsKey(movieID), keyword)
		}
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

// ImportLinks loads links.csv (falling back to links_small.csv): the
// imdb and tmdb lookup aliases plus the matching movie hash fields.
func (imp *Importer) ImportLinks(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "links.csv")
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		path = filepath.Join(imp.dataPath, "links_small.csv")
	}
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("No links file found, generating synthetic links")
		return imp.importSampleLinks(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		movieID := row.Get("movieId")
		if movieID == "" {
			skipped++
			continue
		}
		queueLinks(ctx, batch.Pipe(), movieID, row.Get("imdbId"), row.Get("tmdbId"))
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

// queueLinks writes the lookup aliases of one movie. The links file
// carries imdb ids without the tt prefix.
func queueLinks(ctx context.Context, pipe redis.Pipeliner, movieID, imdbID, tmdbID string) {
	fields := make(map[string]interface{}, 2)
	if imdbID != "" {
		if !strings.HasPrefix(imdbID, "tt") {
			imdbID = "tt" + imdbID
		}
		fields["imdb_id"] = imdbID
		pipe.Set(ctx, datamodel.IMDBKey(imdbID), movieID, 0)
	}
	if tmdbID != "" {
		fields["tmdb_id"] = tmdbID
		pipe.Set(ctx, datamodel.TMDBKey(tmdbID), movieID, 0)
	}
	if len(fields) > 0 {
		pipe.HSet(ctx, datamodel.MovieKey(movieID), fields)
	}
}

// The numeric columns of the metadata file occasionally hold free text
// from shifted rows. Those values degrade to zero instead of dropping
// the whole movie.
func parseIntColumn(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloatColumn(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
