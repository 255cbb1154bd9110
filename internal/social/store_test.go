package social

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), client
}

func sortedMembers(t *testing.T, client *redis.Client, key string) []string {
	t.Helper()
	members, err := client.SMembers(context.Background(), key).Result()
	require.NoError(t, err)
	sort.Strings(members)
	return members
}

func TestCreatePostBuildsAllIndexes(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID:        "1",
		Text:      "Loving the sunrise today #nature #photography",
		Platform:  "Twitter",
		Country:   "USA",
		Likes:     3,
		Retweets:  1,
		Sentiment: "Positive",
		UserID:    "user_7",
	}))

	assert.Equal(t, []string{"1"}, sortedMembers(t, client, datamodel.PlatformPostsKey("twitter")))
	assert.Equal(t, []string{"1"}, sortedMembers(t, client, datamodel.CountryPostsKey("usa")))
	assert.Equal(t, []string{"1"}, sortedMembers(t, client, datamodel.SentimentPostsKey("positive")))
	assert.Equal(t, []string{"nature", "photography"}, sortedMembers(t, client, datamodel.PostHashtagsKey("1")))
	assert.Equal(t, []string{"1"}, sortedMembers(t, client, datamodel.HashtagPostsKey("nature")))

	usage, err := client.ZScore(testCtx, datamodel.KeyHashtagTrending, "photography").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(1), usage)

	score, err := client.ZScore(testCtx, datamodel.KeyPostTrending, "1").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(5), score)

	postIDs, err := client.LRange(testCtx, datamodel.SocialUserPostsKey("user_7"), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, postIDs)

	postCount, err := client.HGet(testCtx, datamodel.SocialUserKey("user_7"), "post_count").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", postCount)
}

func TestPostReadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	testCtx := context.Background()

	created := datamodel.Post{
		ID:        "42",
		Text:      "Nothing beats fresh coffee #coffee",
		Timestamp: "2023-03-14 09:30:00",
		Platform:  "instagram",
		Country:   "germany",
		Likes:     12,
		Retweets:  4,
		Sentiment: "joy",
		UserID:    "user_1",
	}
	require.NoError(t, store.CreatePost(testCtx, created))

	post, found, err := store.Post(testCtx, "42")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.Text, post.Text)
	assert.Equal(t, created.Timestamp, post.Timestamp)
	assert.Equal(t, "instagram", post.Platform)
	assert.Equal(t, int64(12), post.Likes)
	assert.Equal(t, int64(4), post.Retweets)
	assert.Equal(t, int64(20), post.Engagement())

	_, found, err = store.Post(testCtx, "404")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLikeAndRetweetRefreshEngagement(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "10", Text: "quiet post", Platform: "twitter", UserID: "user_1",
	}))
	_, err := client.ZScore(testCtx, datamodel.KeyPostTrending, "10").Result()
	assert.Equal(t, redis.Nil, err)

	require.NoError(t, store.LikePost(testCtx, "10"))
	require.NoError(t, store.LikePost(testCtx, "10"))
	require.NoError(t, store.RetweetPost(testCtx, "10"))

	likes, err := client.HGet(testCtx, datamodel.PostKey("10"), "likes").Result()
	require.NoError(t, err)
	assert.Equal(t, "2", likes)

	engagement, err := client.HGet(testCtx, datamodel.PostKey("10"), "engagement").Result()
	require.NoError(t, err)
	assert.Equal(t, "4", engagement)

	score, err := client.ZScore(testCtx, datamodel.KeyPostTrending, "10").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(4), score)
}

func TestUpdatePostSentimentMovesIndexEntry(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "5", Text: "meh", Sentiment: "neutral", Platform: "twitter", UserID: "user_1",
	}))
	require.NoError(t, store.UpdatePostSentiment(testCtx, "5", "Negative"))

	assert.Empty(t, sortedMembers(t, client, datamodel.SentimentPostsKey("neutral")))
	assert.Equal(t, []string{"5"}, sortedMembers(t, client, datamodel.SentimentPostsKey("negative")))

	sentiment, err := client.HGet(testCtx, datamodel.PostKey("5"), "sentiment").Result()
	require.NoError(t, err)
	assert.Equal(t, "negative", sentiment)
}

func TestDeletePostCleansEveryIndex(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "1", Text: "keep #shared", Platform: "twitter", Country: "uk",
		Sentiment: "positive", Likes: 1, UserID: "user_1",
	}))
	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "2", Text: "drop #shared #solo", Platform: "twitter", Country: "uk",
		Sentiment: "positive", Likes: 2, UserID: "user_1",
	}))

	require.NoError(t, store.DeletePost(testCtx, "2"))

	assert.Equal(t, []string{"1"}, sortedMembers(t, client, datamodel.KeyPostAll))
	assert.Equal(t, []string{"1"}, sortedMembers(t, client, datamodel.PlatformPostsKey("twitter")))
	assert.Equal(t, []string{"1"}, sortedMembers(t, client, datamodel.HashtagPostsKey("shared")))
	assert.Empty(t, sortedMembers(t, client, datamodel.HashtagPostsKey("solo")))

	sharedUsage, err := client.ZScore(testCtx, datamodel.KeyHashtagTrending, "shared").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(1), sharedUsage)

	exists, err := client.Exists(testCtx, datamodel.PostKey("2"), datamodel.PostHashtagsKey("2")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	_, err = client.ZScore(testCtx, datamodel.KeyPostTrending, "2").Result()
	assert.Equal(t, redis.Nil, err)

	postIDs, err := client.LRange(testCtx, datamodel.SocialUserPostsKey("user_1"), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, postIDs)

	postCount, err := client.HGet(testCtx, datamodel.SocialUserKey("user_1"), "post_count").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", postCount)

	// A second delete of the same post is a no-op.
	require.NoError(t, store.DeletePost(testCtx, "2"))
}

func TestDeletePostUsesCurrentSentiment(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "7", Text: "mood swing", Sentiment: "neutral", Platform: "twitter", UserID: "user_1",
	}))
	require.NoError(t, store.UpdatePostSentiment(testCtx, "7", "anger"))
	require.NoError(t, store.DeletePost(testCtx, "7"))

	assert.Empty(t, sortedMembers(t, client, datamodel.SentimentPostsKey("anger")))
	assert.Empty(t, sortedMembers(t, client, datamodel.SentimentPostsKey("neutral")))
}

func TestTrendingRankings(t *testing.T) {
	store, _ := newTestStore(t)
	testCtx := context.Background()

	posts := []datamodel.Post{
		{ID: "1", Text: "#go #redis", Likes: 10, Platform: "twitter", UserID: "u1"},
		{ID: "2", Text: "#go", Likes: 5, Retweets: 10, Platform: "twitter", UserID: "u2"},
		{ID: "3", Text: "#redis", Likes: 1, Platform: "twitter", UserID: "u3"},
	}
	for _, post := range posts {
		require.NoError(t, store.CreatePost(testCtx, post))
	}

	tags, err := store.TrendingHashtags(testCtx, 10)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, int64(2), tags[0].Count)

	trending, err := store.TrendingPosts(testCtx, 2)
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, "2", trending[0].PostID)
	assert.Equal(t, float64(25), trending[0].Engagement)
	assert.Equal(t, "1", trending[1].PostID)
}

func TestStatsAndCounts(t *testing.T) {
	store, _ := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreateUser(testCtx, datamodel.SocialUser{ID: "u1", Username: "alice"}))
	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "1", Text: "a", Platform: "twitter", Country: "usa", Sentiment: "positive", UserID: "u1",
	}))
	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "2", Text: "b", Platform: "twitter", Country: "uk", Sentiment: "negative", UserID: "u1",
	}))
	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "3", Text: "c", Platform: "instagram", Country: "usa", Sentiment: "positive", UserID: "u1",
	}))

	postCount, err := store.PostCount(testCtx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), postCount)

	userCount, err := store.UserCount(testCtx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userCount)

	platforms, err := store.PlatformStats(testCtx)
	require.NoError(t, err)
	require.Len(t, platforms, 2)
	assert.Equal(t, IndexCount{Name: "twitter", Count: 2}, platforms[0])
	assert.Equal(t, IndexCount{Name: "instagram", Count: 1}, platforms[1])

	sentiments, err := store.SentimentStats(testCtx)
	require.NoError(t, err)
	require.Len(t, sentiments, 2)
	assert.Equal(t, IndexCount{Name: "positive", Count: 2}, sentiments[0])

	countries, err := store.CountryStats(testCtx, 1)
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, IndexCount{Name: "usa", Count: 2}, countries[0])

	distribution, err := store.SentimentByPlatform(testCtx, "twitter")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"positive": 1, "negative": 1}, distribution)
}

func TestSearchHashtagAndUserPosts(t *testing.T) {
	store, _ := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{ID: "1", Text: "#golang rocks", UserID: "u1"}))
	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{ID: "2", Text: "more #golang", UserID: "u1"}))

	matches, err := store.SearchHashtag(testCtx, "#GoLang")
	require.NoError(t, err)
	sort.Strings(matches)
	assert.Equal(t, []string{"1", "2"}, matches)

	recent, err := store.UserPosts(testCtx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, recent)
}

func TestEngagementAnalysis(t *testing.T) {
	store, _ := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "1", Text: "top", Likes: 100, Retweets: 50, Platform: "twitter", Sentiment: "positive", UserID: "u1",
	}))
	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "2", Text: "second", Likes: 10, Platform: "twitter", Sentiment: "neutral", UserID: "u1",
	}))
	require.NoError(t, store.CreatePost(testCtx, datamodel.Post{
		ID: "3", Text: "unranked", Platform: "twitter", Sentiment: "neutral", UserID: "u1",
	}))

	report, found, err := store.EngagementAnalysis(testCtx, "2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(10), report.Likes)
	assert.Equal(t, int64(10), report.Engagement)
	assert.Equal(t, int64(1), report.Rank)

	report, found, err = store.EngagementAnalysis(testCtx, "3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(-1), report.Rank)

	_, found, err = store.EngagementAnalysis(testCtx, "404")
	require.NoError(t, err)
	assert.False(t, found)
}
