package overview

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func newTestCollector(t *testing.T) (*Collector, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	internal.InitMemcache()
	return NewCollector(client), client
}

func TestCollectCountsAllDatasets(t *testing.T) {
	collector, client := newTestCollector(t)
	testCtx := context.Background()

	require.NoError(t, client.SAdd(testCtx, datamodel.KeyMovieAll, "1", "2").Err())
	require.NoError(t, client.SAdd(testCtx, datamodel.KeyUserAll, "u1").Err())
	require.NoError(t, client.ZAdd(testCtx, datamodel.KeyMovieTopRated, &redis.Z{Score: 4, Member: "1"}).Err())

	require.NoError(t, client.SAdd(testCtx, datamodel.KeySensorAll, "1", "2", "3").Err())
	require.NoError(t, client.LPush(testCtx, datamodel.KeySensorAlerts, "low battery").Err())
	require.NoError(t, client.ZAdd(testCtx, datamodel.SensorReadingsKey(1),
		&redis.Z{Score: 1, Member: "a"}, &redis.Z{Score: 2, Member: "b"}).Err())
	require.NoError(t, client.ZAdd(testCtx, datamodel.SensorReadingsKey(2),
		&redis.Z{Score: 1, Member: "c"}).Err())

	require.NoError(t, client.SAdd(testCtx, datamodel.KeyPostAll, "1").Err())
	require.NoError(t, client.ZAdd(testCtx, datamodel.KeyHashtagTrending, &redis.Z{Score: 3, Member: "go"}).Err())

	require.NoError(t, client.SAdd(testCtx, datamodel.KeyOrderAll, "o1", "o2").Err())
	require.NoError(t, client.SAdd(testCtx, datamodel.KeyCustomerAll, "c1").Err())

	comparison, err := collector.Collect(testCtx)
	require.NoError(t, err)

	assert.Equal(t, MoviesStats{Movies: 2, Users: 1, TopRated: 1}, comparison.Movies)
	assert.Equal(t, IoTStats{Sensors: 3, Readings: 3, Alerts: 1}, comparison.IoT)
	assert.Equal(t, SocialStats{Posts: 1, Hashtags: 1}, comparison.Social)
	assert.Equal(t, EcommerceStats{Orders: 2, Customers: 1}, comparison.Ecommerce)

	imported := comparison.Imported()
	assert.True(t, imported["movies"])
	assert.True(t, imported["iot"])
	assert.True(t, imported["social"])
	assert.True(t, imported["e-commerce"])
}

func TestCollectServesCachedComparison(t *testing.T) {
	collector, client := newTestCollector(t)
	testCtx := context.Background()

	require.NoError(t, client.SAdd(testCtx, datamodel.KeyMovieAll, "1").Err())
	first, err := collector.Collect(testCtx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Movies.Movies)

	// New data within the cache window is not visible yet.
	require.NoError(t, client.SAdd(testCtx, datamodel.KeyMovieAll, "2").Err())
	second, err := collector.Collect(testCtx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Movies.Movies)
}

func TestImportedReportsEmptyDatasets(t *testing.T) {
	collector, _ := newTestCollector(t)

	comparison, err := collector.Collect(context.Background())
	require.NoError(t, err)

	for dataset, imported := range comparison.Imported() {
		assert.False(t, imported, dataset)
	}
}
