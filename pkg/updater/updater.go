package updater

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hytalede/statistics/pkg/log"
)

// ErrSkip can be returned by an update func to keep the previous data without logging an error.
var ErrSkip = errors.New("update skipped")

type Option[T any] func(*Updater[T])

// OnUpdate registers fn to be called with every successfully fetched value.
func OnUpdate[T any](fn func(T)) Option[T] {
	return func(u *Updater[T]) {
		u.onUpdate = fn
	}
}

// Updater handles periodically updating a data source and caching the results via user supplied func.
type Updater[T any] struct {
	data       T
	updateFn   func() (T, error)
	onUpdate   func(T)
	updateRate time.Duration
	dataMu     *sync.RWMutex
}

func New[T any](updateInterval time.Duration, updateFn func() (T, error), opts ...Option[T]) *Updater[T] {
	updater := &Updater[T]{
		updateFn:   updateFn,
		dataMu:     &sync.RWMutex{},
		updateRate: updateInterval,
	}

	for _, opt := range opts {
		opt(updater)
	}

	return updater
}

func (c *Updater[T]) Data() T { //nolint:ireturn
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()

	return c.data
}

// Update fetches new data once. Failures keep the previous data.
func (c *Updater[T]) Update() {
	newData, errUpdate := c.updateFn()
	if errUpdate != nil {
		if !errors.Is(errUpdate, ErrSkip) {
			slog.Error("Failed to update data source", log.ErrAttr(errUpdate))
		}

		return
	}

	c.dataMu.Lock()
	c.data = newData
	c.dataMu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(newData)
	}
}

// Start updates immediately and then on every interval until ctx is done.
func (c *Updater[T]) Start(ctx context.Context) {
	refreshTimer := time.NewTicker(c.updateRate)
	defer refreshTimer.Stop()

	c.Update()

	for {
		select {
		case <-refreshTimer.C:
			c.Update()
		case <-ctx.Done():
			return
		}
	}
}
