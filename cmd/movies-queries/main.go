package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/internal/movies"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func main() {
	InitLogging()
	internal.Initfgtrace()

	ctx := context.Background()
	rdb, err := internal.NewRedisClient(ctx)
	if err != nil {
		zap.S().Fatalf("Failed to connect to redis: %s", err)
	}
	store := movies.NewStore(rdb)

	fmt.Println("==================================================")
	fmt.Println("Movies Use Case - Queries Demo")
	fmt.Println("==================================================")

	runStatistics(ctx, store)
	runMovieDetails(ctx, store, "1")
	runRecommendations(ctx, store)
	runCRUDDemo(ctx, store)
}

func runStatistics(ctx context.Context, store *movies.Store) {
	movieCount, err := store.MovieCount(ctx)
	fatalOn(err)
	userCount, err := store.UserCount(ctx)
	fatalOn(err)
	fmt.Printf("\nTotal movies: %d\n", movieCount)
	fmt.Printf("Total users: %d\n", userCount)

	genres, err := store.GenreStats(ctx)
	fatalOn(err)
	fmt.Println("\nMovies per genre:")
	for _, genre := range genres {
		fmt.Printf("  %-15s %6d movies\n", genre.Genre, genre.Count)
	}

	topRated, err := store.TopRated(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 rated movies:")
	for _, movie := range topRated {
		fmt.Printf("  Movie %s: %.2f\n", movie.MovieID, movie.Score)
	}

	popular, err := store.MostPopular(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 popular movies:")
	for _, movie := range popular {
		fmt.Printf("  Movie %s: %.2f\n", movie.MovieID, movie.Score)
	}
}

func runMovieDetails(ctx context.Context, store *movies.Store, movieID string) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Printf("Example: Movie Details (ID: %s)\n", movieID)
	fmt.Println("--------------------------------------------------")

	movie, found, err := store.Movie(ctx, movieID)
	fatalOn(err)
	if !found {
		fmt.Printf("Movie %s not found.\n", movieID)
		return
	}
	fmt.Printf("Title: %s\n", movie.Title)
	fmt.Printf("Release: %s\n", movie.ReleaseDate)
	fmt.Printf("Rating: %.1f\n", movie.VoteAverage)

	genres, err := store.MovieGenres(ctx, movieID)
	fatalOn(err)
	fmt.Printf("Genres: %s\n", strings.Join(genres, ", "))

	cast, err := store.MovieCast(ctx, movieID, 5)
	fatalOn(err)
	fmt.Printf("Cast: %s\n", strings.Join(cast, ", "))

	crew, err := store.MovieCrew(ctx, movieID)
	fatalOn(err)
	fmt.Printf("Crew: %s\n", strings.Join(crew, ", "))
}

func runRecommendations(ctx context.Context, store *movies.Store) {
	recommendations, err := store.RecommendByGenre(ctx, "1", 3)
	fatalOn(err)
	fmt.Println("\nRecommendations for user 1:")
	for _, movieID := range recommendations {
		fmt.Printf("  Movie %s\n", movieID)
	}

	similar, err := store.SimilarMovies(ctx, "1", 3)
	fatalOn(err)
	fmt.Println("\nMovies similar to movie 1:")
	for _, movie := range similar {
		fmt.Printf("  Movie %s (%d shared genres)\n", movie.MovieID, movie.SharedGenres)
	}
}

func runCRUDDemo(ctx context.Context, store *movies.Store) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Println("CRUD Demo")
	fmt.Println("--------------------------------------------------")

	fatalOn(store.CreateMovie(ctx, datamodel.Movie{
		ID:          "99999",
		Title:       "Test Movie",
		ReleaseDate: "2024-01-01",
		Genres:      []string{"Drama", "Comedy"},
	}))
	movie, _, err := store.Movie(ctx, "99999")
	fatalOn(err)
	fmt.Printf("Movie 99999: %s (%s)\n", movie.Title, movie.ReleaseDate)

	fatalOn(store.AddRating(ctx, "999", "99999", 4.5))

	fatalOn(store.UpdateMovie(ctx, "99999", map[string]interface{}{
		"overview": "This is an updated description.",
	}))
	movie, _, err = store.Movie(ctx, "99999")
	fatalOn(err)
	fmt.Printf("After update: %s\n", movie.Overview)

	fatalOn(store.AddToWatchlist(ctx, "999", "99999"))
	watchlist, err := store.Watchlist(ctx, "999")
	fatalOn(err)
	fmt.Printf("Watchlist of user 999: %s\n", strings.Join(watchlist, ", "))

	fatalOn(store.DeleteMovie(ctx, "99999"))
	_, found, err := store.Movie(ctx, "99999")
	fatalOn(err)
	fmt.Printf("After delete, movie found: %t\n", found)
}

func fatalOn(err error) {
	if err != nil {
		zap.S().Fatalf("Query failed: %s", err)
	}
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	_ = logger.New(logLevel)
}
