package synchronizer

import (
	"context"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/ulogger"
)

// TopicSync is the bus topic on which blocks that need synchronizing are published.
const TopicSync = "chain:sync"

type SyncEvent struct {
	Block  *model.Block
	PeerID string
}

// SyncSubscription identifies one handler registered with SubscribeSync.
type SyncSubscription struct {
	id uint64
}

// EventBus is an in-process bus carrying sync requests. A single dispatcher is
// registered on the underlying bus and fans events out to the subscriptions,
// so that handlers built from the same function literal stay distinguishable.
type EventBus struct {
	logger ulogger.Logger
	bus    evbus.Bus

	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(event *SyncEvent)
}

func NewEventBus(logger ulogger.Logger) *EventBus {
	return &EventBus{
		logger:   logger,
		bus:      evbus.New(),
		handlers: make(map[uint64]func(event *SyncEvent)),
	}
}

func (e *EventBus) PublishSync(_ context.Context, block *model.Block, peerID string) error {
	if block == nil {
		return errors.NewInvalidArgumentError("[PublishSync] block is nil")
	}

	e.logger.Debugf("[PublishSync][%s] publishing %s from peer %q", block.Hash(), TopicSync, peerID)

	e.bus.Publish(TopicSync, &SyncEvent{Block: block, PeerID: peerID})

	return nil
}

// SubscribeSync calls handler for every sync event off the publishing
// goroutine. Handlers may run concurrently and may publish themselves.
func (e *EventBus) SubscribeSync(handler func(event *SyncEvent)) (*SyncSubscription, error) {
	if handler == nil {
		return nil, errors.NewInvalidArgumentError("[SubscribeSync] handler is nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.handlers) == 0 {
		if err := e.bus.SubscribeAsync(TopicSync, e.dispatch, false); err != nil {
			return nil, errors.NewServiceError("[SubscribeSync] could not subscribe to %s", TopicSync, err)
		}
	}

	e.nextID++
	e.handlers[e.nextID] = handler

	return &SyncSubscription{id: e.nextID}, nil
}

// UnsubscribeSync removes the handler of sub, leaving other subscriptions in place.
func (e *EventBus) UnsubscribeSync(sub *SyncSubscription) error {
	if sub == nil {
		return errors.NewInvalidArgumentError("[UnsubscribeSync] subscription is nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.handlers[sub.id]; !ok {
		return errors.NewServiceError("[UnsubscribeSync] subscription %d is not registered on %s", sub.id, TopicSync)
	}

	delete(e.handlers, sub.id)

	if len(e.handlers) == 0 {
		if err := e.bus.Unsubscribe(TopicSync, e.dispatch); err != nil {
			return errors.NewServiceError("[UnsubscribeSync] could not unsubscribe from %s", TopicSync, err)
		}
	}

	return nil
}

func (e *EventBus) dispatch(event *SyncEvent) {
	e.mu.RLock()
	handlers := make([]func(event *SyncEvent), 0, len(e.handlers))

	for _, handler := range e.handlers {
		handlers = append(handlers, handler)
	}
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// WaitAsync blocks until all dispatched events have been handled.
func (e *EventBus) WaitAsync() {
	e.bus.WaitAsync()
}
