package internal

import (
	"fmt"
	"hash/crc32"
	"time"

	"context"
	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var rdb *redis.Client
var ctx = context.Background()
var memCache *cache.Cache

var redisDataExpiration time.Duration
var memoryDataExpiration time.Duration

var redisInitialized bool

// InitCache initializes the two tier statistics cache on top of an
// already connected redis client.
func InitCache(client *redis.Client, dryRun bool) {

	if dryRun {
		zap.S().Infof("Running cache in DRY_RUN mode. This means that cache will not be used") // "... and it stays nil"
		return
	}

	rdb = client

	redisDataExpiration = 12 * time.Hour
	memoryDataExpiration = 10 * time.Second

	memCache = cache.New(memoryDataExpiration, 20*time.Second)
	redisInitialized = true
}

func InitMemcache() {
	memoryDataExpiration = 10 * time.Second
	memCache = cache.New(memoryDataExpiration, 20*time.Second)
	redisInitialized = false
}

func IsRedisAvailable() bool {
	if !redisInitialized {
		zap.S().Warn("Redis is not initialized")
		return false
	}
	if rdb != nil {
		zap.S().Debugf("Checking if redis is available")
		timeout, cancel := context.WithTimeout(ctx, TenSeconds)
		defer cancel()
		statusCmd := rdb.Ping(timeout)

		if statusCmd != nil && statusCmd.Val() == "PONG" {
			zap.S().Debugf("Redis is available")
			return true
		}
		zap.S().Debugf("Redis Error: %s", statusCmd)
	}
	return false
}

// AsHash returns a hash for a given interface
func AsHash(o interface{}) string {
	h := crc32.NewIEEE() // modified for quicker hashing
	// This cannot fail
	_, _ = h.Write([]byte(fmt.Sprintf("%v", o)))

	return fmt.Sprintf("%x", h.Sum(nil))
}

// GetTiered Attempts to get key from memory cache, if fails it falls back to redis
func GetTiered(key string) (cached bool, value interface{}) {
	//Check if in memCache
	value, cached = memCache.Get(key)
	if cached {
		zap.S().Debugf("Found in memcache")
		return
	}

	if !redisInitialized {
		return false, nil
	}

	var err error
	//Check if in redis
	d := time.Now().Add(memoryDataExpiration)
	ctx, cancel := context.WithDeadline(context.Background(), d)
	defer cancel()

	value, err = rdb.Get(ctx, key).Bytes()
	if err != nil {
		zap.S().Debugf("Not found in redis")
		return false, nil
	}
	cached = true
	zap.S().Debugf("Found in redis")

	//Write back to memCache
	memCache.SetDefault(key, value)
	return
}

// SetTiered sets memcache and redis with expiration
func SetTiered(key string, value interface{}, redisExpiration time.Duration) {
	memCache.SetDefault(key, value)
	if redisInitialized {
		rdb.Set(ctx, key, value, redisExpiration)
	}
}

//SetTieredShortTerm is an helper, that calls SetTiered with default memory expiration
func SetTieredShortTerm(key string, value interface{}) {
	SetTiered(key, value, memoryDataExpiration)
}

//SetTieredLongTerm is an helper, that calls SetTiered with default redis expiration
func SetTieredLongTerm(key string, value interface{}) {
	SetTiered(key, value, redisDataExpiration)
}

func SetMemcached(key string, value interface{}) {
	memCache.SetDefault(key, value)
}

func GetMemcached(key string) (value interface{}, found bool) {
	value, found = memCache.Get(key)
	return
}
