// Package audit emits a tamper-evident event trail for committed
// partitions. Events for one principal form a hash chain; an altered or
// removed event breaks every hash after it.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hotspotlabs/hotspot/internal/storage"
)

// Event is one audit record.
type Event struct {
	Version   string    `json:"version"`
	EventType string    `json:"event_type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	Partition PartitionInfo `json:"partition"`
	Producer  ProducerInfo  `json:"producer"`
	Chain     ChainInfo     `json:"chain"`
}

// PartitionInfo identifies the partition the event attests to.
type PartitionInfo struct {
	Principal string `json:"principal"`
	Key       string `json:"key"`
	SourceKey string `json:"source_key"`
	RowCount  int64  `json:"row_count"`
	ByteSize  int64  `json:"byte_size"`
	Checksum  string `json:"checksum"`
}

// ProducerInfo identifies the software that produced the partition.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha"`
}

// ChainInfo links events within one principal's chain.
type ChainInfo struct {
	PrevEventHash string `json:"prev_event_hash"`
	EventHash     string `json:"event_hash"`
}

// ComputeEventHash hashes the canonical JSON form of an event, excluding
// the event_hash field itself.
func ComputeEventHash(evt *Event) string {
	evtCopy := *evt
	evtCopy.Chain.EventHash = ""

	canonical, err := json.Marshal(evtCopy)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// GenerateEventID creates a unique event ID.
func GenerateEventID() string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	return "evt_" + hex.EncodeToString(hash[:8])
}

// Emitter writes chained audit events through the object store. Chain
// heads persist alongside the events, so a restarted emitter continues
// each principal's chain where it left off.
type Emitter struct {
	store    storage.ObjectStore
	prefix   string
	producer ProducerInfo

	mu    sync.Mutex
	heads map[string]string // principal -> last event hash
	now   func() time.Time
}

// NewEmitter creates an Emitter writing under the given key prefix.
func NewEmitter(store storage.ObjectStore, prefix string, producer ProducerInfo) *Emitter {
	return &Emitter{
		store:    store,
		prefix:   prefix,
		producer: producer,
		heads:    make(map[string]string),
		now:      time.Now,
	}
}

func (e *Emitter) headKey(principal string) string {
	return e.prefix + "chain/" + principal
}

func (e *Emitter) eventKey(principal, eventID string) string {
	return e.prefix + principal + "/" + eventID + ".json"
}

// head returns the current chain head for a principal, loading the
// persisted head on first use. Caller holds e.mu.
func (e *Emitter) head(ctx context.Context, principal string) (string, error) {
	if h, ok := e.heads[principal]; ok {
		return h, nil
	}

	data, err := e.store.Read(ctx, e.headKey(principal))
	if errors.Is(err, storage.ErrNotFound) {
		e.heads[principal] = ""
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load chain head for %s: %w", principal, err)
	}

	h := string(data)
	e.heads[principal] = h
	return h, nil
}

// EmitPartition appends an event to the principal's chain.
func (e *Emitter) EmitPartition(ctx context.Context, part PartitionInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, err := e.head(ctx, part.Principal)
	if err != nil {
		return err
	}

	evt := Event{
		Version:   "1.0",
		EventType: "plays_partition",
		EventID:   GenerateEventID(),
		Timestamp: e.now().UTC(),
		Partition: part,
		Producer:  e.producer,
		Chain:     ChainInfo{PrevEventHash: prev},
	}
	evt.Chain.EventHash = ComputeEventHash(&evt)

	data, err := json.MarshalIndent(evt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	if err := e.store.Write(ctx, e.eventKey(part.Principal, evt.EventID), data, "application/json"); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	if err := e.store.Write(ctx, e.headKey(part.Principal), []byte(evt.Chain.EventHash), "text/plain"); err != nil {
		return fmt.Errorf("update chain head: %w", err)
	}

	e.heads[part.Principal] = evt.Chain.EventHash
	return nil
}
