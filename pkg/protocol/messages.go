package protocol

// Ack is the generic acknowledgement.
type Ack struct {
	OK bool `json:"ok"`
}

// RegisterRequest announces a detector to the GFD.
type RegisterRequest struct {
	LFDID    string `json:"lfd_id" validate:"required"`
	ServerID string `json:"server_id" validate:"required"`
	// LFDAddr is where the detector serves recover; optional.
	LFDAddr string `json:"lfd_addr,omitempty"`
}

// StatusRequest reports a detector's latest classification.
type StatusRequest struct {
	LFDID    string `json:"lfd_id" validate:"required"`
	ServerID string `json:"server_id" validate:"required"`
	Status   Status `json:"status" validate:"required,oneof=alive warn failed"`
}

// MembershipRequest carries the full ordered membership list.
type MembershipRequest struct {
	Membership []string `json:"membership" validate:"dive,required"`
}

// RoleRequest asks a replica to take a role; the method name selects which.
type RoleRequest struct {
	From string `json:"from,omitempty"`
}

// RoleResponse confirms a role assignment.
type RoleResponse struct {
	ReplicaID string `json:"replica_id"`
	Role      Role   `json:"role"`
}

// ClientRequest is the body of get, increase and decrease.
type ClientRequest struct {
	ClientID      string `json:"client_id" validate:"required"`
	RequestNumber int64  `json:"request_num" validate:"min=0"`
}

// CounterResponse answers a client operation.
type CounterResponse struct {
	Counter   int64  `json:"counter"`
	ReplicaID string `json:"replica_id"`
	Primary   bool   `json:"primary"`
}

// HeartbeatRequest probes a replica. Clients send their client id as LFDID.
type HeartbeatRequest struct {
	LFDID string `json:"lfd_id" validate:"required"`
}

// HeartbeatResponse is always ok=true from a live replica.
type HeartbeatResponse struct {
	OK        bool   `json:"ok"`
	ReplicaID string `json:"replica_id"`
}

// CheckpointRequest pushes the primary's state to a backup.
type CheckpointRequest struct {
	PrimaryID          string `json:"primary_id" validate:"required"`
	State              int64  `json:"state"`
	CheckpointSequence int64  `json:"checkpoint_num" validate:"min=1"`
}

// CheckpointResponse acknowledges an applied checkpoint.
type CheckpointResponse struct {
	OK        bool   `json:"ok"`
	ReplicaID string `json:"replica_id"`
}

// RecoverRequest asks a detector to restart its replica.
type RecoverRequest struct {
	ServerID string `json:"server_id" validate:"required"`
}
