package engine

import (
	"container/list"
	"fmt"
)

// DeliveryGuard implements two-tier deduplication of transport delivery keys.
// JetStream and HTTP ingestion are at-least-once; dispute-family events carry
// no transaction-id replay guard of their own, so redelivered messages must
// be caught here before they reach the state machine.
type DeliveryGuard struct {
	// Tier 1: In-memory LRU
	lru *DeliveryLRU

	// Tier 2: Postgres or Redis (injected via interface, nil to disable)
	store DeliveryStore

	// Metrics
	metrics *GuardMetrics
}

// DeliveryStore is the interface for the cold-path dedup lookup.
type DeliveryStore interface {
	IsDuplicate(eventType string, deliveryKey string) (bool, error)
	MarkProcessed(eventType string, deliveryKey string) error
}

func NewDeliveryGuard(capacity int, store DeliveryStore) *DeliveryGuard {
	return &DeliveryGuard{
		lru:     NewDeliveryLRU(capacity),
		store:   store,
		metrics: NewGuardMetrics(),
	}
}

// IsDuplicate checks whether a delivery key has been processed (two-tier lookup).
func (g *DeliveryGuard) IsDuplicate(eventType string, deliveryKey string) bool {
	compositeKey := fmt.Sprintf("%s:%s", eventType, deliveryKey)

	// Tier 1: LRU check (hot path)
	if g.lru.Contains(compositeKey) {
		g.metrics.RecordDuplicate(eventType, "lru")
		return true
	}

	// Tier 2: backing store check (cold path)
	if g.store != nil {
		isDup, err := g.store.IsDuplicate(eventType, deliveryKey)
		if err != nil {
			// Log error but don't fail - conservative: assume not duplicate
			// This prevents a store issue from blocking event processing
			g.metrics.RecordTier2Error()
			return false
		}

		if isDup {
			g.metrics.RecordDuplicate(eventType, "store")
			// Add to LRU so we don't hit the store again
			g.lru.Add(compositeKey)
			return true
		}
	}

	return false
}

// MarkProcessed records a delivery key after the event is consumed.
func (g *DeliveryGuard) MarkProcessed(eventType string, deliveryKey string) {
	compositeKey := fmt.Sprintf("%s:%s", eventType, deliveryKey)
	g.lru.Add(compositeKey)

	if g.store != nil {
		if err := g.store.MarkProcessed(eventType, deliveryKey); err != nil {
			g.metrics.RecordTier2Error()
		}
	}
}

// GetMetrics returns metrics for monitoring
func (g *DeliveryGuard) GetMetrics() *GuardMetrics {
	return g.metrics
}

// --- LRU Implementation ---

// DeliveryLRU is an LRU cache for delivery keys.
// Not thread-safe; only accessed from the single-threaded engine loop.
type DeliveryLRU struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List

	evictions int64 // For metrics
}

type lruEntry struct {
	key string
}

func NewDeliveryLRU(capacity int) *DeliveryLRU {
	return &DeliveryLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Contains checks if key exists (promotes to front)
func (lru *DeliveryLRU) Contains(key string) bool {
	elem, exists := lru.cache[key]
	if exists {
		lru.lruList.MoveToFront(elem)
		return true
	}
	return false
}

// Add inserts a key (or promotes if exists)
func (lru *DeliveryLRU) Add(key string) {
	if elem, exists := lru.cache[key]; exists {
		lru.lruList.MoveToFront(elem)
		return
	}

	entry := &lruEntry{key: key}
	elem := lru.lruList.PushFront(entry)
	lru.cache[key] = elem

	if lru.lruList.Len() > lru.capacity {
		lru.evictOldest()
	}
}

func (lru *DeliveryLRU) evictOldest() {
	elem := lru.lruList.Back()
	if elem != nil {
		lru.lruList.Remove(elem)
		entry := elem.Value.(*lruEntry)
		delete(lru.cache, entry.key)
		lru.evictions++
	}
}

// Size returns current number of entries
func (lru *DeliveryLRU) Size() int {
	return lru.lruList.Len()
}

// Evictions returns total evictions (for metrics)
func (lru *DeliveryLRU) Evictions() int64 {
	return lru.evictions
}

// --- Metrics ---

// GuardMetrics tracks dedup stats.
// Not thread-safe; only accessed from the single-threaded engine loop.
type GuardMetrics struct {
	duplicatesLRU   map[string]int64 // event_type -> count
	duplicatesStore map[string]int64
	tier2Errors     int64
}

func NewGuardMetrics() *GuardMetrics {
	return &GuardMetrics{
		duplicatesLRU:   make(map[string]int64),
		duplicatesStore: make(map[string]int64),
	}
}

func (m *GuardMetrics) RecordDuplicate(eventType string, tier string) {
	if tier == "lru" {
		m.duplicatesLRU[eventType]++
	} else {
		m.duplicatesStore[eventType]++
	}
}

func (m *GuardMetrics) RecordTier2Error() {
	m.tier2Errors++
}

func (m *GuardMetrics) GetDuplicates(eventType string) (lru int64, store int64) {
	return m.duplicatesLRU[eventType], m.duplicatesStore[eventType]
}

func (m *GuardMetrics) GetTier2Errors() int64 {
	return m.tier2Errors
}
