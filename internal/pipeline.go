package internal

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PipelineBatcher queues redis commands and executes them in pipelines of
// a fixed maximum size. Commands are queued on Pipe() and sent once the
// queue reaches the batch size (MaybeFlush) or unconditionally (Flush).
// Pipelines are plain batches, not transactions: a failing command does
// not stop the remaining commands of the same batch.
//
// A PipelineBatcher is not safe for concurrent use. The importers are
// single writers, which is the model this is built for.
type PipelineBatcher struct {
	pipe      redis.Pipeliner
	batchSize int
	flushes   uint64
	commands  uint64
}

func NewPipelineBatcher(client *redis.Client, batchSize int) *PipelineBatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PipelineBatcher{
		pipe:      client.Pipeline(),
		batchSize: batchSize,
	}
}

// Pipe returns the pipeline to queue commands on.
func (b *PipelineBatcher) Pipe() redis.Pipeliner {
	return b.pipe
}

// MaybeFlush executes the pipeline once the queued command count has
// reached the batch size.
func (b *PipelineBatcher) MaybeFlush(ctx context.Context) error {
	if b.pipe.Len() < b.batchSize {
		return nil
	}
	return b.Flush(ctx)
}

// Flush executes all queued commands. The first command error is
// returned, already executed commands of the batch are not rolled back.
func (b *PipelineBatcher) Flush(ctx context.Context) error {
	queued := b.pipe.Len()
	if queued == 0 {
		return nil
	}
	if _, err := b.pipe.Exec(ctx); err != nil {
		return err
	}
	b.commands += uint64(queued)
	b.flushes++
	zap.S().Debugf("Flushed pipeline with %d commands (%d commands in %d batches so far)", queued, b.commands, b.flushes)
	return nil
}

// Commands returns the number of commands executed so far.
func (b *PipelineBatcher) Commands() uint64 {
	return b.commands
}

// Flushes returns the number of pipelines executed so far.
func (b *PipelineBatcher) Flushes() uint64 {
	return b.flushes
}
