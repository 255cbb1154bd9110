package datamodel

// Fixed index and ranking keys of the social media data model
const (
	KeyPostAll         = "post:all"
	KeyPostTrending    = "post:trending"
	KeyHashtagTrending = "hashtag:trending"
	KeySocialUserAll   = "social:user:all"
)

// Post is one social media post, stored as a hash under post:<id>.
// Platform, country and sentiment are normalized to lowercase and each
// feeds its own index set.
type Post struct {
	ID        string
	Text      string
	Timestamp string
	Platform  string
	Country   string
	Likes     int64
	Retweets  int64
	Sentiment string
	UserID    string
	Hashtags  []string
}

// Engagement weighs retweets double, a retweet carries the post further
// than a like.
func (p *Post) Engagement() int64 {
	return p.Likes + 2*p.Retweets
}

// HashFields returns the post fields as stored in the post:<id> hash,
// including the derived engagement score.
func (p *Post) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"text":       Truncate(p.Text, 500),
		"timestamp":  p.Timestamp,
		"platform":   p.Platform,
		"country":    p.Country,
		"likes":      p.Likes,
		"retweets":   p.Retweets,
		"sentiment":  p.Sentiment,
		"user_id":    p.UserID,
		"engagement": p.Engagement(),
	}
}

// PostFromHash rebuilds a post from the fields of its hash.
func PostFromHash(id string, fields map[string]string) Post {
	return Post{
		ID:        id,
		Text:      fields["text"],
		Timestamp: fields["timestamp"],
		Platform:  fields["platform"],
		Country:   fields["country"],
		Likes:     parseInt(fields["likes"]),
		Retweets:  parseInt(fields["retweets"]),
		Sentiment: fields["sentiment"],
		UserID:    fields["user_id"],
	}
}

// SocialUser is an author of posts, stored under social:user:<id>.
type SocialUser struct {
	ID        string
	Username  string
	CreatedAt string
}

// PostKey returns post:<id>
func PostKey(id string) string { return "post:" + id }

// PostHashtagsKey returns post:<id>:hashtags
func PostHashtagsKey(id string) string { return "post:" + id + ":hashtags" }

// SocialUserKey returns social:user:<id>
func SocialUserKey(id string) string { return "social:user:" + id }

// SocialUserPostsKey returns social:user:<id>:posts
func SocialUserPostsKey(id string) string { return "social:user:" + id + ":posts" }

// HashtagPostsKey returns hashtag:<tag>:posts, tags are stored lowercase
// without the leading hash sign
func HashtagPostsKey(tag string) string { return "hashtag:" + tag + ":posts" }

// PlatformPostsKey returns platform:<name>:posts
func PlatformPostsKey(platform string) string { return "platform:" + platform + ":posts" }

// CountryPostsKey returns country:<name>:posts
func CountryPostsKey(country string) string { return "country:" + country + ":posts" }

// SentimentPostsKey returns sentiment:<type>:posts
func SentimentPostsKey(sentiment string) string { return "sentiment:" + sentiment + ":posts" }
