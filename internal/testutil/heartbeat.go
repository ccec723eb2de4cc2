package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/nacionmx/unified-bot/internal/model"
)

// Heartbeats is an in-memory HeartbeatStore. Err, when set, fails every call.
type Heartbeats struct {
	mu   sync.Mutex
	rows map[string]model.Heartbeat
	err  error

	touches    int
	keepAlives int
	pings      int
}

func NewHeartbeats() *Heartbeats {
	return &Heartbeats{rows: make(map[string]model.Heartbeat)}
}

// SetErr makes every later call fail with err, or succeed again when nil.
func (h *Heartbeats) SetErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Seed stores a row as another process would have left it.
func (h *Heartbeats) Seed(id, instanceID string, last time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	row := model.Heartbeat{ID: id, LastHeartbeat: last}
	if instanceID != "" {
		row.InstanceID = &instanceID
	}
	h.rows[id] = row
}

// Row returns a copy of the stored row.
func (h *Heartbeats) Row(id string) (model.Heartbeat, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	row, ok := h.rows[id]
	return row, ok
}

// Touches counts successful heartbeat refreshes.
func (h *Heartbeats) Touches() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.touches
}

func (h *Heartbeats) KeepAlives() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keepAlives
}

func (h *Heartbeats) Pings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pings
}

func (h *Heartbeats) Get(_ context.Context, id string) (*model.Heartbeat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	row, ok := h.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (h *Heartbeats) TryClaim(_ context.Context, id, instanceID string, now, staleBefore time.Time) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return false, h.err
	}
	row, ok := h.rows[id]
	if ok && row.InstanceID != nil && *row.InstanceID != instanceID && !row.LastHeartbeat.Before(staleBefore) {
		return false, nil
	}
	status := "running"
	h.rows[id] = model.Heartbeat{ID: id, InstanceID: &instanceID, LastHeartbeat: now, StartedAt: &now, Status: &status}
	return true, nil
}

func (h *Heartbeats) Touch(_ context.Context, id, instanceID string, now time.Time) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return false, h.err
	}
	row, ok := h.rows[id]
	if !ok || row.InstanceID == nil || *row.InstanceID != instanceID {
		return false, nil
	}
	row.LastHeartbeat = now
	h.rows[id] = row
	h.touches++
	return true, nil
}

func (h *Heartbeats) Release(_ context.Context, id, instanceID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	row, ok := h.rows[id]
	if !ok || row.InstanceID == nil || *row.InstanceID != instanceID {
		return nil
	}
	status := "stopped"
	h.rows[id] = model.Heartbeat{ID: id, LastHeartbeat: time.Unix(0, 0).UTC(), StartedAt: row.StartedAt, Status: &status}
	return nil
}

func (h *Heartbeats) Clear(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	row, ok := h.rows[id]
	if !ok {
		return nil
	}
	row.LastHeartbeat = time.Unix(0, 0).UTC()
	h.rows[id] = row
	return nil
}

func (h *Heartbeats) KeepAlive(_ context.Context, id string, now time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	status := "keep_alive"
	h.rows[id] = model.Heartbeat{ID: id, LastHeartbeat: now, Status: &status}
	h.keepAlives++
	return nil
}

func (h *Heartbeats) Ping(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.pings++
	return nil
}
