package matcher

import (
	"context"
	"iter"

	"go.mongodb.org/mongo-driver/mongo"
)

// Cursor is a lazy, forward-only, single-pass view over a stage's rows.
// Reading the rows again means issuing the stage again.
type Cursor[T any] interface {
	// Next advances to the next row; it blocks on the store when the
	// current batch is exhausted.
	Next(ctx context.Context) bool
	Current() T
	Err() error
	Close(ctx context.Context) error
}

// Collect drains a cursor and closes it.
func Collect[T any](ctx context.Context, cur Cursor[T]) ([]T, error) {
	defer cur.Close(ctx)

	var out []T
	for cur.Next(ctx) {
		out = append(out, cur.Current())
	}
	return out, cur.Err()
}

// First returns the first row of a cursor and closes it. ok is false for an
// empty result.
func First[T any](ctx context.Context, cur Cursor[T]) (row T, ok bool, err error) {
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		return cur.Current(), true, nil
	}
	return row, false, cur.Err()
}

type mongoCursor[T any] struct {
	cur   *mongo.Cursor
	stage string
	val   T
	err   error
}

func newMongoCursor[T any](cur *mongo.Cursor, stage string) *mongoCursor[T] {
	return &mongoCursor[T]{cur: cur, stage: stage}
}

func (c *mongoCursor[T]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		if err := c.cur.Err(); err != nil {
			c.err = queryError(ctx, c.stage, err)
		}
		return false
	}

	var row T
	if err := c.cur.Decode(&row); err != nil {
		c.err = queryError(ctx, c.stage, err)
		return false
	}
	c.val = row
	return true
}

func (c *mongoCursor[T]) Current() T { return c.val }

func (c *mongoCursor[T]) Err() error { return c.err }

func (c *mongoCursor[T]) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

// seqCursor adapts an in-memory flat-map to the Cursor contract.
type seqCursor[T any] struct {
	next func() (T, bool)
	stop func()
	val  T
	err  error
}

func newSeqCursor[T any](seq iter.Seq[T]) *seqCursor[T] {
	next, stop := iter.Pull(seq)
	return &seqCursor[T]{next: next, stop: stop}
}

func (c *seqCursor[T]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		c.stop()
		return false
	}
	row, ok := c.next()
	if !ok {
		return false
	}
	c.val = row
	return true
}

func (c *seqCursor[T]) Current() T { return c.val }

func (c *seqCursor[T]) Err() error { return c.err }

func (c *seqCursor[T]) Close(context.Context) error {
	c.stop()
	return nil
}
