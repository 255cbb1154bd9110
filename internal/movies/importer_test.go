package movies

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func newTestImporter(t *testing.T) (*Importer, *redis.Client, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dataPath := t.TempDir()
	return NewImporter(client, dataPath, 0, nil), client, dataPath
}

func writeDataFile(t *testing.T, dataPath, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dataPath, name), []byte(content), 0o600))
}

func TestImportMetadataSkipsNonNumericIDs(t *testing.T) {
	imp, client, dataPath := newTestImporter(t)
	writeDataFile(t, dataPath, "movies_metadata.csv",
		"id,title,genres,vote_average,vote_count,popularity,original_language\n"+
			"1,First,\"[{'id': 18, 'name': 'Drama'}]\",7.5,100,12.5,en\n"+
			"not-a-number,Broken,[],5.0,3,1.0,en\n"+
			"2,Second,\"[{'id': 28, 'name': 'Action'}]\",6.0,9,3.0,de\n")

	imported, skipped, err := imp.ImportMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), imported)
	assert.Equal(t, uint64(1), skipped)

	testCtx := context.Background()
	members, err := client.SMembers(testCtx, datamodel.GenreMoviesKey("drama")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)

	// vote count below ten keeps the movie out of the rating ranking
	assert.Equal(t, redis.Nil, client.ZScore(testCtx, datamodel.KeyMovieTopRated, "2").Err())
	score, err := client.ZScore(testCtx, datamodel.KeyMovieTopRated, "1").Result()
	require.NoError(t, err)
	assert.Equal(t, 7.5, score)
}

func TestImportCreditsBuildsActorAndDirectorIndexes(t *testing.T) {
	imp, client, dataPath := newTestImporter(t)
	writeDataFile(t, dataPath, "credits.csv",
		"cast,crew,id\n"+
			"\"[{'name': 'Tom Hanks'}, {'name': 'Tim Allen'}]\",\"[{'job': 'Director', 'name': 'John Lasseter'}, {'job': 'Writer', 'name': 'Joss Whedon'}]\",862\n")

	imported, skipped, err := imp.ImportCredits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), imported)
	assert.Equal(t, uint64(0), skipped)

	testCtx := context.Background()
	cast, err := client.LRange(testCtx, datamodel.MovieCastKey("862"), 0, -1).Result()
	require.NoError(t, err)
	assert.Len(t, cast, 2)

	byActor, err := client.SMembers(testCtx, datamodel.ActorMoviesKey("Tom Hanks")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"862"}, byActor)

	byDirector, err := client.SMembers(testCtx, datamodel.DirectorMoviesKey("John Lasseter")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"862"}, byDirector)

	crew, err := client.LRange(testCtx, datamodel.MovieCrewKey("862"), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"Director: John Lasseter"}, crew)
}

func TestImportRatingsAggregatesStatistics(t *testing.T) {
	imp, client, dataPath := newTestImporter(t)
	writeDataFile(t, dataPath, "ratings.csv",
		"userId,movieId,rating,timestamp\n"+
			"1,10,5.0,0\n"+
			"2,10,4.0,0\n"+
			"3,10,4.0,0\n"+
			"4,10,3.0,0\n"+
			"5,10,4.0,0\n"+
			"1,20,2.0,0\n"+
			"6,30,bad,0\n")

	imported, skipped, err := imp.ImportRatings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(6), imported)
	assert.Equal(t, uint64(1), skipped)

	testCtx := context.Background()
	// movie 10 has five ratings, average 4.0
	score, err := client.ZScore(testCtx, datamodel.KeyMovieTopRated, "10").Result()
	require.NoError(t, err)
	assert.Equal(t, 4.0, score)
	// movie 20 has one rating, stays out
	assert.Equal(t, redis.Nil, client.ZScore(testCtx, datamodel.KeyMovieTopRated, "20").Err())

	fields, err := client.HGetAll(testCtx, datamodel.MovieKey("10")).Result()
	require.NoError(t, err)
	assert.Equal(t, "4", fields["user_rating_avg"])
	assert.Equal(t, "5", fields["user_rating_count"])

	userFields, err := client.HGetAll(testCtx, datamodel.UserKey("1")).Result()
	require.NoError(t, err)
	assert.Equal(t, "2", userFields["rating_count"])

	users, err := client.SMembers(testCtx, datamodel.KeyUserAll).Result()
	require.NoError(t, err)
	sort.Strings(users)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, users)
}

func TestImportLinksCreatesAliases(t *testing.T) {
	imp, client, dataPath := newTestImporter(t)
	writeDataFile(t, dataPath, "links.csv",
		"movieId,imdbId,tmdbId\n"+
			"1,0114709,862\n"+
			"2,,\n")

	imported, skipped, err := imp.ImportLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), imported)
	assert.Equal(t, uint64(0), skipped)

	testCtx := context.Background()
	movieID, err := client.Get(testCtx, datamodel.IMDBKey("tt0114709")).Result()
	require.NoError(t, err)
	assert.Equal(t, "1", movieID)

	movieID, err = client.Get(testCtx, datamodel.TMDBKey("862")).Result()
	require.NoError(t, err)
	assert.Equal(t, "1", movieID)

	fields, err := client.HGetAll(testCtx, datamodel.MovieKey("1")).Result()
	require.NoError(t, err)
	assert.Equal(t, "tt0114709", fields["imdb_id"])
	assert.Equal(t, "862", fields["tmdb_id"])
}

func TestImportMetadataHonorsLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	imp := NewImporter(client, t.TempDir(), 10, nil)

	imported, skipped, err := imp.ImportMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), imported)
	assert.Equal(t, uint64(0), skipped)
}
