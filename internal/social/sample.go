package social

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Synthetic sample parameters. The generated posts mimic the shape of
// the sentiment dataset, skewed towards a handful of hot hashtags so
// the trending queries return something meaningful.
const (
	samplePostCount = 700
	sampleUserCount = 150
	sampleSeed      = 2023
)

var (
	samplePlatforms       = []string{"twitter", "instagram", "facebook"}
	samplePlatformWeights = []int{5, 3, 2}

	sampleSentiments       = []string{"positive", "negative", "neutral", "joy", "sadness", "anger", "surprise", "love"}
	sampleSentimentWeights = []int{25, 15, 20, 10, 8, 7, 5, 10}

	sampleCountries = []string{"usa", "uk", "germany", "france", "brazil", "india", "japan", "australia", "canada", "spain"}

	sampleHashtags       = []string{"travel", "food", "fitness", "music", "tech", "fashion", "nature", "coffee", "gaming", "art", "books", "sports", "news", "love", "photography"}
	sampleHashtagWeights = []int{12, 10, 8, 9, 11, 6, 5, 7, 8, 4, 3, 6, 5, 9, 7}

	sampleTextTemplates = []string{
		"Just discovered something amazing about #%s today!",
		"Can't stop thinking about #%s, what a day.",
		"Why does nobody talk about #%s more often?",
		"Another great moment for #%s and #%s fans.",
		"Honestly #%s has been a disappointment lately.",
		"Weekend plans: all about #%s.",
	}
)

// samplePosts returns the deterministic synthetic post set.
func samplePosts() []datamodel.Post {
	r := internal.NewSampleRand(sampleSeed)
	posts := make([]datamodel.Post, 0, samplePostCount)
	for i := 1; i <= samplePostCount; i++ {
		tagA := internal.PickWeighted(r, sampleHashtags, sampleHashtagWeights)
		tagB := internal.PickWeighted(r, sampleHashtags, sampleHashtagWeights)
		template := internal.Pick(r, sampleTextTemplates)

		var text string
		hashtags := []string{tagA}
		if countVerb(template) == 2 {
			text = fmt.Sprintf(template, tagA, tagB)
			if tagB != tagA {
				hashtags = append(hashtags, tagB)
			}
		} else {
			text = fmt.Sprintf(template, tagA)
		}

		posts = append(posts, datamodel.Post{
			ID:        fmt.Sprintf("%d", i),
			Text:      text,
			Timestamp: sampleTimestamp(r),
			Platform:  internal.PickWeighted(r, samplePlatforms, samplePlatformWeights),
			Country:   internal.Pick(r, sampleCountries),
			Likes:     int64(r.Intn(500)),
			Retweets:  int64(r.Intn(120)),
			Sentiment: internal.PickWeighted(r, sampleSentiments, sampleSentimentWeights),
			UserID:    fmt.Sprintf("user_%d", r.Intn(sampleUserCount)),
			Hashtags:  hashtags,
		})
	}
	return posts
}

func countVerb(template string) int {
	count := 0
	for i := 0; i+1 < len(template); i++ {
		if template[i] == '%' && template[i+1] == 's' {
			count++
		}
	}
	return count
}

// sampleTimestamp spreads the posts over the first half of 2023.
func sampleTimestamp(r *rand.Rand) string {
	month := 1 + r.Intn(6)
	day := 1 + r.Intn(28)
	hour := r.Intn(24)
	minute := r.Intn(60)
	return fmt.Sprintf("2023-%02d-%02d %02d:%02d:00", month, day, hour, minute)
}

// importSamplePosts loads the synthetic posts through the same write
// path as the csv import.
func (imp *Importer) importSamplePosts(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	agg := newPostAggregates()
	for _, post := range samplePosts() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueCreatePost(ctx, batch.Pipe(), post)
		agg.track(post.UserID, post.Hashtags)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	if err = agg.flush(ctx, batch); err != nil {
		return imported, skipped, err
	}
	return imported, skipped, nil
}
