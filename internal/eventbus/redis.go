/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus fans local events out to other instances over Redis
// pub/sub. Dashboards connected to one instance see reservations created
// on another, and cache invalidation reaches every node.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/seatwise/seatwise/internal/events"
)

// originKey marks payloads delivered from a remote node so the bridge
// does not forward them back out.
const originKey = "_origin_node"

// BridgedEvents are the event types replicated across instances. Audit
// events stay node-local: each instance persists only what it saw.
var BridgedEvents = []events.EventType{
	events.EventReservationCreated,
	events.EventReservationConfirmed,
	events.EventReservationSeated,
	events.EventReservationCompleted,
	events.EventReservationCancelled,
	events.EventReservationNoShow,
	events.EventReservationDeclined,
	events.EventWaitlistCheckIn,
	events.EventWaitlistNotified,
	events.EventWaitlistSeated,
	events.EventWaitlistLeft,
	events.EventWaitlistReorder,
	events.EventSettingsUpdated,
	events.EventRestaurantUpdated,
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures int
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxFailures:  5,
	}
}

// RedisBridge replicates selected local bus events across instances.
type RedisBridge struct {
	client *redis.Client
	local  *events.Bus
	logger zerolog.Logger
	nodeID string

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	failCount int
	maxFails  int
	disabled  bool
}

// NewRedisBridge connects to Redis and returns the bridge. A failed
// initial connection is not fatal: the bridge starts disabled and the
// local bus keeps working on its own.
func NewRedisBridge(cfg RedisConfig, nodeID string, local *events.Bus, logger zerolog.Logger) *RedisBridge {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	bridge := &RedisBridge{
		client:   client,
		local:    local,
		logger:   logger.With().Str("component", "eventbus").Logger(),
		nodeID:   nodeID,
		maxFails: cfg.MaxFailures,
	}
	if bridge.maxFails <= 0 {
		bridge.maxFails = DefaultRedisConfig().MaxFailures
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, event bridge disabled")
		bridge.disabled = true
	}

	return bridge
}

// Start begins forwarding in both directions until the context ends.
func (rb *RedisBridge) Start(ctx context.Context) {
	if rb.isDisabled() {
		return
	}

	ctx, rb.cancel = context.WithCancel(ctx)

	for _, eventType := range BridgedEvents {
		sub := rb.local.Subscribe(eventType)
		rb.wg.Add(1)
		go rb.forwardLocal(ctx, eventType, sub)
	}

	pubsub := rb.client.Subscribe(ctx, rb.channelNames()...)
	rb.wg.Add(1)
	go rb.receiveRemote(ctx, pubsub)

	rb.logger.Info().Str("node_id", rb.nodeID).Msg("redis event bridge started")
}

// Close stops the bridge and releases the Redis connection.
func (rb *RedisBridge) Close() error {
	if rb.cancel != nil {
		rb.cancel()
	}
	rb.wg.Wait()
	return rb.client.Close()
}

func (rb *RedisBridge) channelNames() []string {
	names := make([]string, len(BridgedEvents))
	for i, eventType := range BridgedEvents {
		names[i] = "seatwise:events:" + string(eventType)
	}
	return names
}

// forwardLocal publishes locally raised events to Redis. Payloads that
// arrived from another node carry an origin marker and are skipped.
func (rb *RedisBridge) forwardLocal(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	defer rb.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case payload, ok := <-sub:
			if !ok {
				return
			}
			if origin, _ := payload[originKey].(string); origin != "" && origin != rb.nodeID {
				continue
			}
			if rb.isDisabled() {
				continue
			}

			data, err := marshalMessage(eventType, payload, rb.nodeID)
			if err != nil {
				rb.logger.Error().Err(err).Msg("failed to marshal bridge message")
				continue
			}

			pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = rb.client.Publish(pubCtx, "seatwise:events:"+string(eventType), data).Err()
			cancel()
			if err != nil {
				rb.logger.Error().Err(err).
					Str("event_type", string(eventType)).
					Msg("failed to publish to redis")
				rb.recordFailure()
				continue
			}
			rb.recordSuccess()
		}
	}
}

// receiveRemote injects events published by other nodes into the local bus.
func (rb *RedisBridge) receiveRemote(ctx context.Context, pubsub *redis.PubSub) {
	defer rb.wg.Done()
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				rb.logger.Warn().Msg("redis subscription closed")
				rb.recordFailure()
				return
			}

			bridgeMsg, err := unmarshalMessage([]byte(msg.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("failed to unmarshal bridge message")
				continue
			}
			if bridgeMsg.NodeID == rb.nodeID {
				continue
			}

			payload := bridgeMsg.Payload
			if payload == nil {
				payload = events.Payload{}
			}
			payload[originKey] = bridgeMsg.NodeID

			rb.local.Publish(bridgeMsg.EventType, payload)

			rb.logger.Debug().
				Str("event_type", string(bridgeMsg.EventType)).
				Str("source_node", bridgeMsg.NodeID).
				Msg("delivered remote event")
		}
	}
}

func (rb *RedisBridge) isDisabled() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.disabled
}

func (rb *RedisBridge) recordFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failCount++
	if rb.failCount >= rb.maxFails && !rb.disabled {
		rb.logger.Warn().
			Int("fail_count", rb.failCount).
			Msg("redis failure threshold reached, bridge disabled")
		rb.disabled = true
	}
}

func (rb *RedisBridge) recordSuccess() {
	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}

// bridgeMessage is the wire format for cross-node events.
type bridgeMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := bridgeMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
	}
	return json.Marshal(msg)
}

func unmarshalMessage(data []byte) (*bridgeMessage, error) {
	var msg bridgeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal bridge message: %w", err)
	}
	return &msg, nil
}
