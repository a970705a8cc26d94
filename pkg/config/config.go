// Package config loads the cluster topology shared by every daemon.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-counter/pkg/protocol"
)

// Config is the whole deployment: topology plus per-component timing.
type Config struct {
	Mode      protocol.Mode     `yaml:"mode" validate:"required,oneof=active passive"`
	Replicas  []ReplicaConfig   `yaml:"replicas" validate:"required,min=1,dive"`
	Detectors []DetectorConfig  `yaml:"detectors" validate:"dive"`
	GFD       GFDConfig         `yaml:"gfd"`
	RM        RMConfig          `yaml:"rm"`
	Replica   ReplicaSettings   `yaml:"replica"`
	LFD       LFDSettings       `yaml:"lfd"`
	Client    ClientSettings    `yaml:"client"`
	Transport TransportSettings `yaml:"transport"`
	Log       LogSettings       `yaml:"log"`
}

// ReplicaConfig is one replica of the topology.
type ReplicaConfig struct {
	protocol.ReplicaIdentity `yaml:",inline"`
	// Primary is the starting role in passive mode before the RM speaks.
	Primary   bool   `yaml:"primary"`
	AdminAddr string `yaml:"admin_addr,omitempty"`
}

// DetectorConfig is one local failure detector, paired with one replica.
type DetectorConfig struct {
	ID                string `yaml:"id" validate:"required"`
	ReplicaID         string `yaml:"replica_id" validate:"required"`
	protocol.Endpoint `yaml:",inline"`
	AdminAddr         string `yaml:"admin_addr,omitempty"`
}

// GFDConfig locates the global failure detector and sets its timing.
type GFDConfig struct {
	protocol.Endpoint `yaml:",inline"`
	Timeout           time.Duration `yaml:"timeout"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	// TriggerRecovery sends recover to a replica's detectors when the
	// replica leaves membership.
	TriggerRecovery bool `yaml:"trigger_recovery"`
	// PollInterval bounds how long the serve loop blocks between sweeps.
	// Defaults to replica.poll_interval.
	PollInterval time.Duration `yaml:"poll_interval"`
	AdminAddr    string        `yaml:"admin_addr,omitempty"`
}

// RMConfig locates the replication manager.
type RMConfig struct {
	protocol.Endpoint `yaml:",inline"`
	// PollInterval defaults to replica.poll_interval.
	PollInterval time.Duration `yaml:"poll_interval"`
	AdminAddr    string        `yaml:"admin_addr,omitempty"`
}

// ReplicaSettings apply to every replica.
type ReplicaSettings struct {
	CheckpointFreq time.Duration `yaml:"checkpoint_freq"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// LFDSettings apply to every detector.
type LFDSettings struct {
	HeartbeatFreq   time.Duration `yaml:"heartbeat_freq"`
	Timeout         time.Duration `yaml:"timeout"`
	RegisterBackoff time.Duration `yaml:"register_backoff"`
	// RecoveryCommand is run to restart a failed replica; "{server_id}" in
	// any argument is replaced with the replica id. Empty disables recovery.
	RecoveryCommand []string `yaml:"recovery_command,omitempty"`
}

// ClientSettings apply to every client.
type ClientSettings struct {
	Timeout           time.Duration `yaml:"timeout"`
	DiscoveryInterval time.Duration `yaml:"discovery_interval"`
	// RequestInterval paces the non-interactive client loop.
	RequestInterval time.Duration `yaml:"request_interval"`
}

// TransportSettings select the socket backend and RPC limits.
type TransportSettings struct {
	Backend           string        `yaml:"backend" validate:"omitempty,oneof=mangos zmq"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	CompressThreshold int           `yaml:"compress_threshold"`
}

// LogSettings are the defaults for every daemon; flags override them.
type LogSettings struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	Dir    string `yaml:"dir,omitempty"`
}

// Load reads, defaults and validates a topology file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates YAML topology bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
