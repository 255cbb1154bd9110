// Package overview collects cross-dataset statistics for the
// comparison view. The counts are cheap but touch every dataset, the
// collected result is kept in the tiered statistics cache.
package overview

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Sensor ids of the deployment, readings are counted per sensor zset.
const sensorIDRange = 54

// MoviesStats is the movies dataset summary.
type MoviesStats struct {
	Movies   int64 `json:"movies"`
	Users    int64 `json:"users"`
	TopRated int64 `json:"top_rated"`
	Popular  int64 `json:"popular"`
}

// IoTStats is the sensor dataset summary.
type IoTStats struct {
	Sensors  int64 `json:"sensors"`
	Readings int64 `json:"readings"`
	Alerts   int64 `json:"alerts"`
}

// SocialStats is the social media dataset summary.
type SocialStats struct {
	Posts         int64 `json:"posts"`
	Users         int64 `json:"users"`
	Hashtags      int64 `json:"hashtags"`
	TrendingPosts int64 `json:"trending_posts"`
}

// EcommerceStats is the e-commerce dataset summary.
type EcommerceStats struct {
	Orders    int64 `json:"orders"`
	Customers int64 `json:"customers"`
	Products  int64 `json:"products"`
	Sellers   int64 `json:"sellers"`
}

// Comparison holds the summaries of all four datasets. A dataset that
// was never imported reports zero counts.
type Comparison struct {
	Movies    MoviesStats    `json:"movies"`
	IoT       IoTStats       `json:"iot"`
	Social    SocialStats    `json:"social"`
	Ecommerce EcommerceStats `json:"ecommerce"`
}

// Imported reports which datasets hold data, keyed by dataset name.
func (c Comparison) Imported() map[string]bool {
	return map[string]bool{
		"movies":     c.Movies.Movies > 0,
		"iot":        c.IoT.Sensors > 0,
		"social":     c.Social.Posts > 0,
		"e-commerce": c.Ecommerce.Orders > 0,
	}
}

// Collector gathers the comparison statistics.
type Collector struct {
	rdb *redis.Client
}

func NewCollector(rdb *redis.Client) *Collector {
	return &Collector{rdb: rdb}
}

var comparisonCacheKey = string(internal.AsXXHash([]byte("overview"), []byte("comparison")))

// Collect returns the current comparison, served from the tiered cache
// when a recent collection exists.
func (c *Collector) Collect(ctx context.Context) (Comparison, error) {
	if cached, value := internal.GetTiered(comparisonCacheKey); cached {
		var comparison Comparison
		raw, ok := value.([]byte)
		if ok && json.Unmarshal(raw, &comparison) == nil {
			zap.S().Debugf("Serving cached comparison")
			return comparison, nil
		}
	}

	comparison, err := c.collect(ctx)
	if err != nil {
		return Comparison{}, err
	}

	encoded, err := json.Marshal(comparison)
	if err == nil {
		internal.SetTieredShortTerm(comparisonCacheKey, encoded)
	}
	return comparison, nil
}

func (c *Collector) collect(ctx context.Context) (Comparison, error) {
	var comparison Comparison
	var err error

	if comparison.Movies, err = c.moviesStats(ctx); err != nil {
		return Comparison{}, err
	}
	if comparison.IoT, err = c.iotStats(ctx); err != nil {
		return Comparison{}, err
	}
	if comparison.Social, err = c.socialStats(ctx); err != nil {
		return Comparison{}, err
	}
	if comparison.Ecommerce, err = c.ecommerceStats(ctx); err != nil {
		return Comparison{}, err
	}
	return comparison, nil
}

func (c *Collector) moviesStats(ctx context.Context) (stats MoviesStats, err error) {
	if stats.Movies, err = c.rdb.SCard(ctx, datamodel.KeyMovieAll).Result(); err != nil {
		return stats, err
	}
	if stats.Users, err = c.rdb.SCard(ctx, datamodel.KeyUserAll).Result(); err != nil {
		return stats, err
	}
	if stats.TopRated, err = c.rdb.ZCard(ctx, datamodel.KeyMovieTopRated).Result(); err != nil {
		return stats, err
	}
	stats.Popular, err = c.rdb.ZCard(ctx, datamodel.KeyMoviePopular).Result()
	return stats, err
}

func (c *Collector) iotStats(ctx context.Context) (stats IoTStats, err error) {
	if stats.Sensors, err = c.rdb.SCard(ctx, datamodel.KeySensorAll).Result(); err != nil {
		return stats, err
	}
	if stats.Alerts, err = c.rdb.LLen(ctx, datamodel.KeySensorAlerts).Result(); err != nil {
		return stats, err
	}
	for id := 1; id <= sensorIDRange; id++ {
		count, countErr := c.rdb.ZCard(ctx, datamodel.SensorReadingsKey(id)).Result()
		if countErr != nil {
			return stats, countErr
		}
		stats.Readings += count
	}
	return stats, nil
}

func (c *Collector) socialStats(ctx context.Context) (stats SocialStats, err error) {
	if stats.Posts, err = c.rdb.SCard(ctx, datamodel.KeyPostAll).Result(); err != nil {
		return stats, err
	}
	if stats.Users, err = c.rdb.SCard(ctx, datamodel.KeySocialUserAll).Result(); err != nil {
		return stats, err
	}
	if stats.Hashtags, err = c.rdb.ZCard(ctx, datamodel.KeyHashtagTrending).Result(); err != nil {
		return stats, err
	}
	stats.TrendingPosts, err = c.rdb.ZCard(ctx, datamodel.KeyPostTrending).Result()
	return stats, err
}

func (c *Collector) ecommerceStats(ctx context.Context) (stats EcommerceStats, err error) {
	if stats.Orders, err = c.rdb.SCard(ctx, datamodel.KeyOrderAll).Result(); err != nil {
		return stats, err
	}
	if stats.Customers, err = c.rdb.SCard(ctx, datamodel.KeyCustomerAll).Result(); err != nil {
		return stats, err
	}
	if stats.Products, err = c.rdb.SCard(ctx, datamodel.KeyProductAll).Result(); err != nil {
		return stats, err
	}
	stats.Sellers, err = c.rdb.SCard(ctx, datamodel.KeySellerAll).Result()
	return stats, err
}
