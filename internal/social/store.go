package social

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Store owns every mutation of the social media data model. A post
// participates in up to five index families (platform, country,
// sentiment, hashtags, user); each write method computes the complete
// delta and applies it as one pipeline.
type Store struct {
	rdb *redis.Client
	mu  sync.Mutex
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags pulls the lowercase hashtags out of a post text, the
// leading hash sign dropped.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(strings.ToLower(text), -1)
	tags := make([]string, 0, len(matches))
	for _, match := range matches {
		tags = append(tags, match[1])
	}
	return tags
}

// TagCount is one entry of the hashtag usage ranking.
type TagCount struct {
	Tag   string
	Count int64
}

// RankedPost is one entry of the engagement ranking.
type RankedPost struct {
	PostID     string
	Engagement float64
}

// IndexCount is the number of posts in one index set.
type IndexCount struct {
	Name  string
	Count int64
}

// EngagementReport is the per-post engagement breakdown, including the
// post's current position in the trending ranking (0-based, -1 when the
// post is not ranked).
type EngagementReport struct {
	Likes      int64
	Retweets   int64
	Engagement int64
	Platform   string
	Sentiment  string
	Rank       int64
}

// CreatePost writes a post with all its index memberships in one batch.
// Hashtags missing on the post are extracted from the text; each tag
// also bumps the hashtag usage ranking.
func (s *Store) CreatePost(ctx context.Context, post datamodel.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.Platform = normalize(post.Platform, "unknown")
	post.Country = normalize(post.Country, "unknown")
	post.Sentiment = normalize(post.Sentiment, "neutral")
	if len(post.Hashtags) == 0 {
		post.Hashtags = ExtractHashtags(post.Text)
	}

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, datamodel.PostKey(post.ID), post.HashFields())
		for _, tag := range post.Hashtags {
			pipe.SAdd(ctx, datamodel.PostHashtagsKey(post.ID), tag)
			pipe.SAdd(ctx, datamodel.HashtagPostsKey(tag), post.ID)
			pipe.ZIncrBy(ctx, datamodel.KeyHashtagTrending, 1, tag)
		}
		pipe.LPush(ctx, datamodel.SocialUserPostsKey(post.UserID), post.ID)
		pipe.HIncrBy(ctx, datamodel.SocialUserKey(post.UserID), "post_count", 1)
		pipe.SAdd(ctx, datamodel.PlatformPostsKey(post.Platform), post.ID)
		pipe.SAdd(ctx, datamodel.CountryPostsKey(post.Country), post.ID)
		pipe.SAdd(ctx, datamodel.SentimentPostsKey(post.Sentiment), post.ID)
		pipe.SAdd(ctx, datamodel.KeyPostAll, post.ID)
		if engagement := post.Engagement(); engagement > 0 {
			pipe.ZAdd(ctx, datamodel.KeyPostTrending, &redis.Z{Score: float64(engagement), Member: post.ID})
		}
		return nil
	})
	if err == nil {
		zap.S().Debugf("Created post %s by user %s", post.ID, post.UserID)
	}
	return err
}

// CreateUser registers a post author.
func (s *Store) CreateUser(ctx context.Context, user datamodel.SocialUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := user.Username
	if username == "" {
		username = user.ID
	}
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, datamodel.SocialUserKey(user.ID), map[string]interface{}{
			"user_id":    user.ID,
			"username":   username,
			"post_count": 0,
			"created_at": user.CreatedAt,
		})
		pipe.SAdd(ctx, datamodel.KeySocialUserAll, user.ID)
		return nil
	})
	return err
}

// Post reads the post hash. found is false for unknown posts.
func (s *Store) Post(ctx context.Context, postID string) (post datamodel.Post, found bool, err error) {
	fields, err := s.rdb.HGetAll(ctx, datamodel.PostKey(postID)).Result()
	if err != nil {
		return datamodel.Post{}, false, err
	}
	if len(fields) == 0 {
		return datamodel.Post{}, false, nil
	}
	return datamodel.PostFromHash(postID, fields), true, nil
}

func (s *Store) PostHashtags(ctx context.Context, postID string) ([]string, error) {
	return s.rdb.SMembers(ctx, datamodel.PostHashtagsKey(postID)).Result()
}

// User reads the raw user hash.
func (s *Store) User(ctx context.Context, userID string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, datamodel.SocialUserKey(userID)).Result()
}

// UserPosts returns the newest post ids of a user.
func (s *Store) UserPosts(ctx context.Context, userID string, limit int64) ([]string, error) {
	return s.rdb.LRange(ctx, datamodel.SocialUserPostsKey(userID), 0, limit-1).Result()
}

// PostsByHashtag samples up to limit posts using a hashtag.
func (s *Store) PostsByHashtag(ctx context.Context, tag string, limit int64) ([]string, error) {
	return s.rdb.SRandMemberN(ctx, datamodel.HashtagPostsKey(strings.ToLower(tag)), limit).Result()
}

func (s *Store) PostsByPlatform(ctx context.Context, platform string, limit int64) ([]string, error) {
	return s.rdb.SRandMemberN(ctx, datamodel.PlatformPostsKey(strings.ToLower(platform)), limit).Result()
}

func (s *Store) PostsByCountry(ctx context.Context, country string, limit int64) ([]string, error) {
	return s.rdb.SRandMemberN(ctx, datamodel.CountryPostsKey(strings.ToLower(country)), limit).Result()
}

func (s *Store) PostsBySentiment(ctx context.Context, sentiment string, limit int64) ([]string, error) {
	return s.rdb.SRandMemberN(ctx, datamodel.SentimentPostsKey(strings.ToLower(sentiment)), limit).Result()
}

// LikePost increments the like counter and refreshes the derived
// engagement score.
func (s *Store) LikePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rdb.HIncrBy(ctx, datamodel.PostKey(postID), "likes", 1).Err(); err != nil {
		return err
	}
	return s.refreshEngagement(ctx, postID)
}

// RetweetPost increments the retweet counter and refreshes the derived
// engagement score.
func (s *Store) RetweetPost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rdb.HIncrBy(ctx, datamodel.PostKey(postID), "retweets", 1).Err(); err != nil {
		return err
	}
	return s.refreshEngagement(ctx, postID)
}

// refreshEngagement recomputes likes + 2*retweets and mirrors it into
// both the post hash and the trending ranking.
func (s *Store) refreshEngagement(ctx context.Context, postID string) error {
	fields, err := s.rdb.HGetAll(ctx, datamodel.PostKey(postID)).Result()
	if err != nil {
		return err
	}
	post := datamodel.PostFromHash(postID, fields)
	engagement := post.Engagement()

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, datamodel.PostKey(postID), "engagement", engagement)
		pipe.ZAdd(ctx, datamodel.KeyPostTrending, &redis.Z{Score: float64(engagement), Member: postID})
		return nil
	})
	return err
}

// UpdatePostSentiment moves the post between sentiment index sets and
// rewrites the hash field, in one batch.
func (s *Store) UpdatePostSentiment(ctx context.Context, postID, newSentiment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldSentiment, err := s.rdb.HGet(ctx, datamodel.PostKey(postID), "sentiment").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	newSentiment = strings.ToLower(newSentiment)

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if oldSentiment != "" {
			pipe.SRem(ctx, datamodel.SentimentPostsKey(oldSentiment), postID)
		}
		pipe.HSet(ctx, datamodel.PostKey(postID), "sentiment", newSentiment)
		pipe.SAdd(ctx, datamodel.SentimentPostsKey(newSentiment), postID)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Post %s sentiment updated to %s", postID, newSentiment)
	}
	return err
}

// DeletePost removes a post and every index membership it holds. The
// memberships are re-derived from the currently stored hash fields and
// hashtag set; each hashtag's usage count is decremented.
func (s *Store) DeletePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, found, err := s.Post(ctx, postID)
	if err != nil {
		return err
	}
	if !found {
		zap.S().Debugf("Post %s not found, nothing to delete", postID)
		return nil
	}
	hashtags, err := s.PostHashtags(ctx, postID)
	if err != nil {
		return err
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if post.UserID != "" {
			pipe.LRem(ctx, datamodel.SocialUserPostsKey(post.UserID), 0, postID)
			pipe.HIncrBy(ctx, datamodel.SocialUserKey(post.UserID), "post_count", -1)
		}
		if post.Platform != "" {
			pipe.SRem(ctx, datamodel.PlatformPostsKey(post.Platform), postID)
		}
		if post.Country != "" {
			pipe.SRem(ctx, datamodel.CountryPostsKey(post.Country), postID)
		}
		if post.Sentiment != "" {
			pipe.SRem(ctx, datamodel.SentimentPostsKey(post.Sentiment), postID)
		}
		for _, tag := range hashtags {
			pipe.SRem(ctx, datamodel.HashtagPostsKey(tag), postID)
			pipe.ZIncrBy(ctx, datamodel.KeyHashtagTrending, -1, tag)
		}
		pipe.ZRem(ctx, datamodel.KeyPostTrending, postID)
		pipe.SRem(ctx, datamodel.KeyPostAll, postID)
		pipe.Del(ctx, datamodel.PostKey(postID), datamodel.PostHashtagsKey(postID))
		return nil
	})
	if err == nil {
		zap.S().Debugf("Deleted post %s and all index entries", postID)
	}
	return err
}

// TrendingHashtags returns the most used hashtags.
func (s *Store) TrendingHashtags(ctx context.Context, n int64) ([]TagCount, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, datamodel.KeyHashtagTrending, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	tags := make([]TagCount, 0, len(entries))
	for _, entry := range entries {
		member, _ := entry.Member.(string)
		tags = append(tags, TagCount{Tag: member, Count: int64(entry.Score)})
	}
	return tags, nil
}

// TrendingPosts returns the posts with the highest engagement.
func (s *Store) TrendingPosts(ctx context.Context, n int64) ([]RankedPost, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, datamodel.KeyPostTrending, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	posts := make([]RankedPost, 0, len(entries))
	for _, entry := range entries {
		member, _ := entry.Member.(string)
		posts = append(posts, RankedPost{PostID: member, Engagement: entry.Score})
	}
	return posts, nil
}

func (s *Store) PostCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeyPostAll).Result()
}

func (s *Store) UserCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeySocialUserAll).Result()
}

// Index names the statistics queries probe. The datasets only ever
// carry these values.
var (
	statPlatforms = []string{"twitter", "instagram", "facebook"}
	statSentiments = []string{
		"positive", "negative", "neutral", "joy", "sadness", "anger",
		"fear", "surprise", "love", "admiration", "excitement", "thrill",
		"contentment",
	}
	statCountries = []string{
		"usa", "uk", "germany", "france", "brazil", "india", "japan",
		"australia", "canada", "spain",
	}
)

// PlatformStats returns the post count per known platform, empty
// platforms omitted.
func (s *Store) PlatformStats(ctx context.Context) ([]IndexCount, error) {
	return s.indexCounts(ctx, statPlatforms, datamodel.PlatformPostsKey, 0)
}

// SentimentStats returns the post count per known sentiment.
func (s *Store) SentimentStats(ctx context.Context) ([]IndexCount, error) {
	return s.indexCounts(ctx, statSentiments, datamodel.SentimentPostsKey, 0)
}

// CountryStats returns the top countries by post count.
func (s *Store) CountryStats(ctx context.Context, limit int) ([]IndexCount, error) {
	return s.indexCounts(ctx, statCountries, datamodel.CountryPostsKey, limit)
}

func (s *Store) indexCounts(ctx context.Context, names []string, key func(string) string, limit int) ([]IndexCount, error) {
	counts := make([]IndexCount, 0, len(names))
	for _, name := range names {
		count, err := s.rdb.SCard(ctx, key(name)).Result()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			counts = append(counts, IndexCount{Name: name, Count: count})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

// SentimentByPlatform breaks the posts of one platform down by their
// sentiment field.
func (s *Store) SentimentByPlatform(ctx context.Context, platform string) (map[string]int64, error) {
	postIDs, err := s.rdb.SMembers(ctx, datamodel.PlatformPostsKey(strings.ToLower(platform))).Result()
	if err != nil {
		return nil, err
	}
	distribution := make(map[string]int64)
	for _, postID := range postIDs {
		sentiment, err := s.rdb.HGet(ctx, datamodel.PostKey(postID), "sentiment").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		distribution[sentiment]++
	}
	return distribution, nil
}

// SearchHashtag returns every post id using a hashtag.
func (s *Store) SearchHashtag(ctx context.Context, tag string) ([]string, error) {
	return s.rdb.SMembers(ctx, datamodel.HashtagPostsKey(strings.ToLower(tag))).Result()
}

// EngagementAnalysis reports the engagement breakdown of one post.
func (s *Store) EngagementAnalysis(ctx context.Context, postID string) (EngagementReport, bool, error) {
	post, found, err := s.Post(ctx, postID)
	if err != nil || !found {
		return EngagementReport{}, false, err
	}

	rank, err := s.rdb.ZRevRank(ctx, datamodel.KeyPostTrending, postID).Result()
	if err == redis.Nil {
		rank = -1
	} else if err != nil {
		return EngagementReport{}, false, err
	}
	return EngagementReport{
		Likes:      post.Likes,
		Retweets:   post.Retweets,
		Engagement: post.Engagement(),
		Platform:   post.Platform,
		Sentiment:  post.Sentiment,
		Rank:       rank,
	}, true, nil
}

// normalize lowercases and trims an index attribute, substituting the
// fallback for empty values.
func normalize(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
