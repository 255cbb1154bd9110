package social

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func writeDataFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestImportPostsBuildsIndexesAndAggregates(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()
	dir := t.TempDir()

	writeDataFile(t, dir, "sentimentdataset.csv",
		"Text,Timestamp,Platform,Country,Likes,Retweets,Sentiment,User,Hashtags\n"+
			"Great hike today,2023-01-01 10:00:00, Twitter , USA ,10,2, Positive ,alice,#Nature #Travel\n"+
			"Worst coffee ever #coffee,2023-01-02 11:00:00,Instagram,UK,0,0,Negative,bob,\n"+
			"Plain update,2023-01-03 12:00:00,Twitter,USA,3,0,Neutral,alice,\n")

	imp := NewImporter(client, dir, 0, nil)
	imported, skipped, err := imp.ImportPosts(testCtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), imported)
	assert.Equal(t, uint64(0), skipped)

	// Posts are numbered in file order.
	post, found, err := store.Post(testCtx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Great hike today", post.Text)
	assert.Equal(t, "twitter", post.Platform)
	assert.Equal(t, "usa", post.Country)
	assert.Equal(t, "alice", post.UserID)
	assert.Equal(t, int64(14), post.Engagement())

	// Row 1 takes its tags from the hashtag column, row 2 from the text.
	assert.Equal(t, []string{"nature", "travel"}, sortedMembers(t, client, datamodel.PostHashtagsKey("1")))
	assert.Equal(t, []string{"coffee"}, sortedMembers(t, client, datamodel.PostHashtagsKey("2")))

	usage, err := client.ZScore(testCtx, datamodel.KeyHashtagTrending, "nature").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(1), usage)

	// Only posts with engagement enter the trending ranking.
	trending, err := client.ZRevRange(testCtx, datamodel.KeyPostTrending, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, trending)

	postCount, err := client.HGet(testCtx, datamodel.SocialUserKey("alice"), "post_count").Result()
	require.NoError(t, err)
	assert.Equal(t, "2", postCount)
	assert.Equal(t, []string{"alice", "bob"}, sortedMembers(t, client, datamodel.KeySocialUserAll))
}

func TestImportPostsResolvesColumnVariants(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()
	dir := t.TempDir()

	writeDataFile(t, dir, "sentimentdataset.csv",
		"content,date,platform,country,likes,shares,sentiment,user\n"+
			"alt headers work #yes,2023-02-01,facebook,brazil,7,3,joy,carol\n")

	imp := NewImporter(client, dir, 0, nil)
	imported, _, err := imp.ImportPosts(testCtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), imported)

	post, found, err := store.Post(testCtx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alt headers work #yes", post.Text)
	assert.Equal(t, "2023-02-01", post.Timestamp)
	assert.Equal(t, int64(3), post.Retweets)
	assert.Equal(t, "carol", post.UserID)
	assert.Equal(t, []string{"yes"}, sortedMembers(t, client, datamodel.PostHashtagsKey("1")))
}

func TestImportPostsAssignsFallbackUser(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()
	dir := t.TempDir()

	writeDataFile(t, dir, "sentimentdataset.csv",
		"Text,Sentiment\n"+
			"anonymous shout,neutral\n")

	imp := NewImporter(client, dir, 0, nil)
	_, _, err := imp.ImportPosts(testCtx)
	require.NoError(t, err)

	post, _, err := store.Post(testCtx, "1")
	require.NoError(t, err)
	assert.Equal(t, "user_0", post.UserID)
	assert.Equal(t, "unknown", post.Platform)
	assert.Equal(t, "unknown", post.Country)
}

func TestImportPostsFallsBackToSample(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	imp := NewImporter(client, t.TempDir(), 50, nil)
	imported, skipped, err := imp.ImportPosts(testCtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), imported)
	assert.Equal(t, uint64(0), skipped)

	count, err := store.PostCount(testCtx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)
}

func TestSamplePostsDeterministic(t *testing.T) {
	first := samplePosts()
	second := samplePosts()
	require.Len(t, first, samplePostCount)
	assert.Equal(t, first, second)

	for _, post := range first[:20] {
		assert.NotEmpty(t, post.Text)
		assert.NotEmpty(t, post.Hashtags)
		assert.Contains(t, samplePlatforms, post.Platform)
	}
}
