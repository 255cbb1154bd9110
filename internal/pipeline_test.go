package internal

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func TestPipelineBatcherFlushesAtBatchSize(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	testCtx := context.Background()
	batch := NewPipelineBatcher(client, 3)

	for i := 0; i < 7; i++ {
		batch.Pipe().SAdd(testCtx, "batcher:test", i)
		assert.NoError(t, batch.MaybeFlush(testCtx))
	}
	// 7 queued commands cross the threshold twice
	assert.Equal(t, uint64(2), batch.Flushes())
	assert.Equal(t, uint64(6), batch.Commands())

	assert.NoError(t, batch.Flush(testCtx))
	assert.Equal(t, uint64(3), batch.Flushes())
	assert.Equal(t, uint64(7), batch.Commands())

	members, err := client.SMembers(testCtx, "batcher:test").Result()
	assert.NoError(t, err)
	assert.Len(t, members, 7)
}

func TestPipelineBatcherFlushWithoutCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	batch := NewPipelineBatcher(client, 10)
	assert.NoError(t, batch.Flush(context.Background()))
	assert.Equal(t, uint64(0), batch.Flushes())
	assert.Equal(t, uint64(0), batch.Commands())
}

func TestPipelineBatcherDefaultsBatchSize(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	batch := NewPipelineBatcher(client, 0)
	assert.Equal(t, DefaultBatchSize, batch.batchSize)
}
