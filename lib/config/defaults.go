package config

import (
	"time"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = oops.New("configuration validation failed")

// Reassembly and delivery mode names.
const (
	ReassemblySequenced  = "sequenced"
	ReassemblyPermissive = "permissive"

	DeliverySync  = "sync"
	DeliveryAsync = "async"

	EncryptionNone       = "none"
	EncryptionPassphrase = "passphrase"
	EncryptionKeyFile    = "keyfile"
)

// ConfigDefaults contains all default configuration values for nmsd.
type ConfigDefaults struct {
	NMS        NMSDefaults
	Encryption EncryptionDefaults
	UDP        UDPDefaults
}

// NMSDefaults contains default values for the message service.
type NMSDefaults struct {
	// MTU caps the raw message size below the interface MTUs. 0 uses the
	// smallest interface MTU.
	// Default: 1472 (one Ethernet frame of UDP payload)
	MTU int

	// MaxAggregationPeriod is the minimum spacing between two immediate
	// SAcks to the same peer. 0 acknowledges every reliable receipt.
	// Default: 50ms
	MaxAggregationPeriod time.Duration

	// RetransmissionTimeout is the base retransmission timeout.
	// Default: 1 second
	RetransmissionTimeout time.Duration

	// MaxRetransmissions drops an unacknowledged message after this many
	// resends. 0 retransmits forever. Must fit in 8 bits.
	// Default: 10
	MaxRetransmissions int

	// RetransmitCycles is how many SAck passes the background loop runs per
	// retransmission pass.
	// Default: 4
	RetransmitCycles int

	// SAckSilenceMultiple stops acknowledging a peer that has been silent
	// for this many retransmission timeouts. 0 never stops.
	// Default: 10
	SAckSilenceMultiple int

	// ReassemblyMode is "sequenced" or "permissive".
	// Default: "sequenced"
	ReassemblyMode string

	// DeliveryMode is "sync" or "async".
	// Default: "async"
	DeliveryMode string

	// DeliveryPollInterval bounds how long the async delivery worker waits
	// before re-checking for shutdown.
	// Default: 100ms
	DeliveryPollInterval time.Duration

	// QueueLengthDecay is how often stale neighbor queue lengths are reset.
	// Default: 10 seconds
	QueueLengthDecay time.Duration

	// RebroadcastRate limits manycast rebroadcasts per second. 0 is
	// unlimited.
	// Default: 0
	RebroadcastRate float64

	// DefaultTTL is used when a transmission does not set one.
	// Default: 1
	DefaultTTL int

	// Instrumentation enables per-message debug logging.
	// Default: false
	Instrumentation bool
}

// EncryptionDefaults contains default values for payload encryption.
type EncryptionDefaults struct {
	// Mode is "none", "passphrase" or "keyfile".
	// Default: "none"
	Mode string

	Passphrase string

	KeyFile string
}

// UDPDefaults contains default values for the UDP interface.
type UDPDefaults struct {
	// Default: "0.0.0.0"
	ListenAddress string

	// Default: 4900
	Port int

	// LocalAddress overrides address discovery.
	// Default: "" (first non-loopback IPv4 address)
	LocalAddress string

	// Device names the network device used for multicast.
	// Default: "" (system choice)
	Device string

	// Default: "" (derived from the local network)
	BroadcastAddress string

	// Default: none
	MulticastGroups []string

	// Default: 1
	MulticastTTL int

	// Default: false
	Loopback bool
}

// Defaults returns the default configuration.
func Defaults() ConfigDefaults {
	return ConfigDefaults{
		NMS: NMSDefaults{
			MTU:                   1472,
			MaxAggregationPeriod:  50 * time.Millisecond,
			RetransmissionTimeout: time.Second,
			MaxRetransmissions:    10,
			RetransmitCycles:      4,
			SAckSilenceMultiple:   10,
			ReassemblyMode:        ReassemblySequenced,
			DeliveryMode:          DeliveryAsync,
			DeliveryPollInterval:  100 * time.Millisecond,
			QueueLengthDecay:      10 * time.Second,
			RebroadcastRate:       0,
			DefaultTTL:            1,
			Instrumentation:       false,
		},
		Encryption: EncryptionDefaults{
			Mode: EncryptionNone,
		},
		UDP: UDPDefaults{
			ListenAddress:   "0.0.0.0",
			Port:            4900,
			MulticastGroups: []string{},
			MulticastTTL:    1,
		},
	}
}

func newValidationError(format string, args ...any) error {
	return oops.Wrapf(ErrInvalidConfig, format, args...)
}

func validateNMS(c *NMSConfig) error {
	switch {
	case c.MTU != 0 && c.MTU < MinMTU:
		return newValidationError("nms.mtu must be 0 or at least %d, got %d", MinMTU, c.MTU)
	case c.MaxAggregationPeriod < 0:
		return newValidationError("nms.max_aggregation_period must not be negative")
	case c.RetransmissionTimeout < MinRetransmissionTimeout:
		return newValidationError("nms.retransmission_timeout must be at least %s", MinRetransmissionTimeout)
	case c.MaxRetransmissions < 0 || c.MaxRetransmissions > 0xFF:
		return newValidationError("nms.max_retransmissions must be in 0..255, got %d", c.MaxRetransmissions)
	case c.RetransmitCycles < 1:
		return newValidationError("nms.retransmit_cycles must be at least 1")
	case c.SAckSilenceMultiple < 0:
		return newValidationError("nms.sack_silence_multiple must not be negative")
	case c.ReassemblyMode != ReassemblySequenced && c.ReassemblyMode != ReassemblyPermissive:
		return newValidationError("nms.reassembly_mode %q is not sequenced or permissive", c.ReassemblyMode)
	case c.DeliveryMode != DeliverySync && c.DeliveryMode != DeliveryAsync:
		return newValidationError("nms.delivery_mode %q is not sync or async", c.DeliveryMode)
	case c.DeliveryMode == DeliveryAsync && c.DeliveryPollInterval <= 0:
		return newValidationError("nms.delivery_poll_interval must be positive in async mode")
	case c.QueueLengthDecay < 0:
		return newValidationError("nms.queue_length_decay must not be negative")
	case c.RebroadcastRate < 0:
		return newValidationError("nms.rebroadcast_rate must not be negative")
	case c.DefaultTTL < 0 || c.DefaultTTL > 0xFF:
		return newValidationError("nms.default_ttl must be in 0..255, got %d", c.DefaultTTL)
	}
	return nil
}

func validateEncryption(e EncryptionConfig) error {
	switch e.Mode {
	case EncryptionNone, "":
	case EncryptionPassphrase:
		if e.Passphrase == "" {
			return newValidationError("encryption.passphrase is required in passphrase mode")
		}
	case EncryptionKeyFile:
		if e.KeyFile == "" {
			return newValidationError("encryption.key_file is required in keyfile mode")
		}
	default:
		return newValidationError("encryption.mode %q is not none, passphrase or keyfile", e.Mode)
	}
	return nil
}

func validateUDP(u UDPConfig) error {
	if u.Port < 1 || u.Port > 0xFFFF {
		return newValidationError("udp.port must be in 1..65535, got %d", u.Port)
	}
	if u.MulticastTTL < 0 || u.MulticastTTL > 0xFF {
		return newValidationError("udp.multicast_ttl must be in 0..255, got %d", u.MulticastTTL)
	}
	return nil
}

// Validate checks every section of c.
func (c *NMSConfig) Validate() error {
	validators := []func() error{
		func() error { return validateNMS(c) },
		func() error { return validateEncryption(c.Encryption) },
		func() error { return validateUDP(c.UDP) },
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			log.WithError(err).WithField("at", "(NMSConfig) Validate").Error("configuration validation failed")
			return err
		}
	}
	log.WithFields(logger.Fields{
		"at":     "(NMSConfig) Validate",
		"reason": "all_validators_passed",
	}).Debug("configuration validated")
	return nil
}
