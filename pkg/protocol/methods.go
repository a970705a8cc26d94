// Package protocol defines the RPC methods and wire records exchanged by the
// replicas, detectors, membership service, replication manager and clients.
package protocol

// RPC method names.
const (
	MethodRegister      = "register"
	MethodStatus        = "status"
	MethodMembership    = "membership"
	MethodSelectPrimary = "select_primary"
	MethodSelectBackup  = "select_backup"
	MethodGet           = "get"
	MethodIncrease      = "increase"
	MethodDecrease      = "decrease"
	MethodHeartbeat     = "heartbeat"
	MethodCheckpoint    = "send_checkpoint"
	MethodRecover       = "recover"
)

// Status is a detector's classification of its replica.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusAlive      Status = "alive"
	StatusWarn       Status = "warn"
	StatusFailed     Status = "failed"
)

// Role is a replica's replication role.
type Role string

const (
	RolePrimary Role = "primary"
	RoleBackup  Role = "backup"
)

// Mode is the replication configuration, fixed per deployment.
type Mode string

const (
	// ModeActive: every replica serves clients; no roles are assigned.
	ModeActive Mode = "active"
	// ModePassive: only the elected primary serves clients and checkpoints
	// its state to the backups.
	ModePassive Mode = "passive"
)
