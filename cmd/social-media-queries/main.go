package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/internal/social"
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
	store := social.NewStore(rdb)

	fmt.Println("==================================================")
	fmt.Println("Social Media Use Case - Queries Demo")
	fmt.Println("==================================================")

	runStatistics(ctx, store)
	runTrending(ctx, store)
	runPostDetails(ctx, store, "1")
	runHashtagSearch(ctx, store, "travel")
	runEngagement(ctx, store, "1")
	runCRUDDemo(ctx, store)
}

func runStatistics(ctx context.Context, store *social.Store) {
	postCount, err := store.PostCount(ctx)
	fatalOn(err)
	userCount, err := store.UserCount(ctx)
	fatalOn(err)
	fmt.Printf("\nTotal posts: %d\n", postCount)
	fmt.Printf("Total users: %d\n", userCount)

	platforms, err := store.PlatformStats(ctx)
	fatalOn(err)
	fmt.Println("\nPosts per platform:")
	for _, platform := range platforms {
		fmt.Printf("  %-12s %6d posts\n", platform.Name, platform.Count)
	}

	sentiments, err := store.SentimentStats(ctx)
	fatalOn(err)
	fmt.Println("\nPosts per sentiment:")
	for _, sentiment := range sentiments {
		fmt.Printf("  %-12s %6d posts\n", sentiment.Name, sentiment.Count)
	}

	countries, err := store.CountryStats(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 countries:")
	for _, country := range countries {
		fmt.Printf("  %-12s %6d posts\n", country.Name, country.Count)
	}
}

func runTrending(ctx context.Context, store *social.Store) {
	hashtags, err := store.TrendingHashtags(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 trending hashtags:")
	for _, tag := range hashtags {
		fmt.Printf("  #%-15s used %d times\n", tag.Tag, tag.Count)
	}

	posts, err := store.TrendingPosts(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 posts by engagement:")
	for _, post := range posts {
		fmt.Printf("  Post %s: engagement %.0f\n", post.PostID, post.Engagement)
	}
}

func runPostDetails(ctx context.Context, store *social.Store, postID string) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Printf("Example: Post Details (ID: %s)\n", postID)
	fmt.Println("--------------------------------------------------")

	post, found, err := store.Post(ctx, postID)
	fatalOn(err)
	if !found {
		fmt.Printf("Post %s not found.\n", postID)
		return
	}
	fmt.Printf("Text: %s\n", post.Text)
	fmt.Printf("User: %s on %s (%s)\n", post.UserID, post.Platform, post.Country)
	fmt.Printf("Sentiment: %s\n", post.Sentiment)
	fmt.Printf("Likes: %d, Retweets: %d\n", post.Likes, post.Retweets)

	hashtags, err := store.PostHashtags(ctx, postID)
	fatalOn(err)
	fmt.Printf("Hashtags: %s\n", strings.Join(hashtags, ", "))
}

func runHashtagSearch(ctx context.Context, store *social.Store, tag string) {
	posts, err := store.SearchHashtag(ctx, tag)
	fatalOn(err)
	fmt.Printf("\nPosts tagged #%s: %d\n", tag, len(posts))
	for i, postID := range posts {
		if i >= 5 {
			break
		}
		fmt.Printf("  Post %s\n", postID)
	}
}

func runEngagement(ctx context.Context, store *social.Store, postID string) {
	report, found, err := store.EngagementAnalysis(ctx, postID)
	fatalOn(err)
	if !found {
		fmt.Printf("\nPost %s not found.\n", postID)
		return
	}
	fmt.Printf("\nEngagement of post %s:\n", postID)
	fmt.Printf("  Likes: %d, Retweets: %d, Engagement: %d\n", report.Likes, report.Retweets, report.Engagement)
	if report.Rank >= 0 {
		fmt.Printf("  Trending rank: #%d\n", report.Rank+1)
	} else {
		fmt.Println("  Not in the trending ranking")
	}
}

func runCRUDDemo(ctx context.Context, store *social.Store) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Println("CRUD Demo")
	fmt.Println("--------------------------------------------------")

	fatalOn(store.CreateUser(ctx, datamodel.SocialUser{
		ID:       "test_user",
		Username: "TestUser123",
	}))
	fatalOn(store.CreatePost(ctx, datamodel.Post{
		ID:        "99999",
		UserID:    "test_user",
		Text:      "Testing Redis for social media! #redis #nosql #testing",
		Platform:  "twitter",
		Country:   "germany",
		Sentiment: "joy",
	}))
	post, _, err := store.Post(ctx, "99999")
	fatalOn(err)
	hashtags, err := store.PostHashtags(ctx, "99999")
	fatalOn(err)
	fmt.Printf("Post 99999: %q\n", post.Text)
	fmt.Printf("Hashtags: %s\n", strings.Join(hashtags, ", "))

	fatalOn(store.LikePost(ctx, "99999"))
	fatalOn(store.LikePost(ctx, "99999"))
	fatalOn(store.RetweetPost(ctx, "99999"))
	post, _, err = store.Post(ctx, "99999")
	fatalOn(err)
	fmt.Printf("After 2 likes and 1 retweet: engagement %d\n", post.Engagement())

	fatalOn(store.DeletePost(ctx, "99999"))
	_, found, err := store.Post(ctx, "99999")
	fatalOn(err)
	fmt.Printf("After delete, post found: %t\n", found)
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
