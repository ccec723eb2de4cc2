package model

import "time"

// Heartbeat is a bot_heartbeats row. A nil InstanceID means the lock is free.
type Heartbeat struct {
	ID            string     `db:"id"`
	InstanceID    *string    `db:"instance_id"`
	LastHeartbeat time.Time  `db:"last_heartbeat"`
	StartedAt     *time.Time `db:"started_at"`
	Status        *string    `db:"status"`
}
