package datamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovieIndexKeys(t *testing.T) {
	assert.Equal(t, "movie:862", MovieKey("862"))
	assert.Equal(t, "movie:862:genres", MovieGenresKey("862"))
	assert.Equal(t, "genre:science fiction:movies", GenreMoviesKey("Science Fiction"))
	assert.Equal(t, "actor:tom_hanks:movies", ActorMoviesKey("Tom Hanks"))
	assert.Equal(t, "director:john_lasseter:movies", DirectorMoviesKey("John Lasseter"))
	assert.Equal(t, "imdb:tt0114709", IMDBKey("tt0114709"))
	assert.Equal(t, "tmdb:862", TMDBKey("862"))
}

func TestSensorKeys(t *testing.T) {
	assert.Equal(t, "sensor:7", SensorKey(7))
	assert.Equal(t, "sensor:7:readings", SensorReadingsKey(7))
	assert.Equal(t, "sensor:7:latest", SensorLatestKey(7))
	assert.Equal(t, "sensor:7:connectivity", SensorConnectivityKey(7))
}

func TestSocialKeys(t *testing.T) {
	assert.Equal(t, "post:12", PostKey("12"))
	assert.Equal(t, "hashtag:mondaymotivation:posts", HashtagPostsKey("mondaymotivation"))
	assert.Equal(t, "social:user:user_7:posts", SocialUserPostsKey("user_7"))
	assert.Equal(t, "sentiment:positive:posts", SentimentPostsKey("positive"))
}

func TestCommerceKeys(t *testing.T) {
	assert.Equal(t, "order:status:delivered", OrderStatusKey("delivered"))
	assert.Equal(t, "state:SP:customers", StateCustomersKey("SP"))
	assert.Equal(t, "payment:type:credit_card", PaymentTypeKey("credit_card"))
	assert.Equal(t, "geo:01037", GeoKey("01037"))
}

func TestPostEngagementWeighsRetweetsDouble(t *testing.T) {
	post := Post{Likes: 3, Retweets: 2}
	assert.Equal(t, int64(7), post.Engagement())
	assert.Equal(t, int64(7), post.HashFields()["engagement"])
}

func TestMovieHashRoundTrip(t *testing.T) {
	movie := Movie{
		ID:          "862",
		Title:       "Toy Story",
		VoteAverage: 7.7,
		VoteCount:   5415,
		Budget:      30000000,
	}
	fields := movie.HashFields()
	assert.Equal(t, "Toy Story", fields["title"])

	rebuilt := MovieFromHash("862", map[string]string{
		"title":        "Toy Story",
		"vote_average": "7.7",
		"vote_count":   "5415",
		"budget":       "30000000",
	})
	assert.Equal(t, movie.Title, rebuilt.Title)
	assert.Equal(t, movie.VoteAverage, rebuilt.VoteAverage)
	assert.Equal(t, movie.VoteCount, rebuilt.VoteCount)
	assert.Equal(t, movie.Budget, rebuilt.Budget)
}

func TestTruncateCapsLongText(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, Truncate(string(long), 500), 500)
	assert.Equal(t, "short", Truncate("short", 500))
}
