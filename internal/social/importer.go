package social

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Importer bulk loads the sentiment analysis dataset. The dataset names
// its columns inconsistently across releases, every field is resolved
// against a list of known variants.
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

var hashtagSeparator = regexp.MustCompile(`[,\s]+`)

// postAggregates carries the in-memory hashtag usage and per-user post
// counts of an import run. They are flushed as a final pipeline stage
// once the posts are written.
type postAggregates struct {
	hashtagCounts map[string]int
	userPosts     map[string]int
}

func newPostAggregates() *postAggregates {
	return &postAggregates{
		hashtagCounts: make(map[string]int),
		userPosts:     make(map[string]int),
	}
}

func (agg *postAggregates) track(userID string, hashtags []string) {
	agg.userPosts[userID]++
	for _, tag := range hashtags {
		agg.hashtagCounts[tag]++
	}
}

// flush writes the hashtag usage ranking and the user records.
func (agg *postAggregates) flush(ctx context.Context, batch *internal.PipelineBatcher) error {
	zap.S().Infof("Indexing %d unique hashtags", len(agg.hashtagCounts))
	for tag, count := range agg.hashtagCounts {
		batch.Pipe().ZAdd(ctx, datamodel.KeyHashtagTrending, &redis.Z{Score: float64(count), Member: tag})
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}

	zap.S().Infof("Creating %d user records", len(agg.userPosts))
	for userID, postCount := range agg.userPosts {
		batch.Pipe().HSet(ctx, datamodel.SocialUserKey(userID), map[string]interface{}{
			"user_id":    userID,
			"post_count": postCount,
		})
		batch.Pipe().SAdd(ctx, datamodel.KeySocialUserAll, userID)
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	return batch.Flush(ctx)
}

// ImportPosts loads sentimentdataset.csv: the post hashes, the hashtag,
// platform, country and sentiment indexes, the user post lists and the
// engagement ranking. Posts are numbered sequentially, the dataset has
// no stable post id column.
func (imp *Importer) ImportPosts(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "sentimentdataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic posts", path)
		return imp.importSamplePosts(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	textCol, _ := reader.ResolveColumn("Text", "text", "content")
	timestampCol, _ := reader.ResolveColumn("Timestamp", "timestamp", "date")
	platformCol, _ := reader.ResolveColumn("Platform", "platform")
	countryCol, _ := reader.ResolveColumn("Country", "country")
	likesCol, _ := reader.ResolveColumn("Likes", "likes")
	retweetsCol, _ := reader.ResolveColumn("Retweets", "retweets", "shares")
	sentimentCol, _ := reader.ResolveColumn("Sentiment", "sentiment")
	userCol, _ := reader.ResolveColumn("User", "user_id", "user")
	hashtagsCol, _ := reader.ResolveColumn("Hashtags", "hashtags")

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	agg := newPostAggregates()
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		post := datamodel.Post{
			ID:        strconv.FormatUint(imported+1, 10),
			Text:      strings.TrimSpace(row.Get(textCol)),
			Timestamp: strings.TrimSpace(row.Get(timestampCol)),
			Platform:  normalize(row.Get(platformCol), "unknown"),
			Country:   normalize(row.Get(countryCol), "unknown"),
			Likes:     parseCount(row.Get(likesCol)),
			Retweets:  parseCount(row.Get(retweetsCol)),
			Sentiment: normalize(row.Get(sentimentCol), "neutral"),
			UserID:    strings.TrimSpace(row.Get(userCol)),
		}
		if post.UserID == "" {
			post.UserID = fmt.Sprintf("user_%d", imported%1000)
		}
		post.Hashtags = resolveHashtags(row.Get(hashtagsCol), post.Text)

		queueCreatePost(ctx, batch.Pipe(), post)
		agg.track(post.UserID, post.Hashtags)
		imported++

		if imported%5000 == 0 {
			fmt.Printf("  -> %d posts imported...\n", imported)
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

// queueCreatePost writes one post with all its index memberships. The
// hashtag usage ranking is not touched here, bulk imports count tags in
// memory and flush them once.
func queueCreatePost(ctx context.Context, pipe redis.Pipeliner, post datamodel.Post) {
	pipe.HSet(ctx, datamodel.PostKey(post.ID), post.HashFields())
	for _, tag := range post.Hashtags {
		pipe.SAdd(ctx, datamodel.PostHashtagsKey(post.ID), tag)
		pipe.SAdd(ctx, datamodel.HashtagPostsKey(tag), post.ID)
	}
	pipe.LPush(ctx, datamodel.SocialUserPostsKey(post.UserID), post.ID)
	pipe.SAdd(ctx, datamodel.PlatformPostsKey(post.Platform), post.ID)
	pipe.SAdd(ctx, datamodel.CountryPostsKey(post.Country), post.ID)
	pipe.SAdd(ctx, datamodel.SentimentPostsKey(post.Sentiment), post.ID)
	pipe.SAdd(ctx, datamodel.KeyPostAll, post.ID)
	if engagement := post.Engagement(); engagement > 0 {
		pipe.ZAdd(ctx, datamodel.KeyPostTrending, &redis.Z{Score: float64(engagement), Member: post.ID})
	}
}

// resolveHashtags prefers the dataset's hashtag column, falling back to
// extraction from the post text. Column values are comma or whitespace
// separated, with or without the hash sign.
func resolveHashtags(column, text string) []string {
	column = strings.TrimSpace(column)
	if column == "" {
		return ExtractHashtags(text)
	}
	parts := hashtagSeparator.Split(column, -1)
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.Trim(part, "#"))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// The like and retweet columns hold floats in some dataset releases.
func parseCount(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(v)
	}
	return 0
}
