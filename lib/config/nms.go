package config

import (
	"slices"
	"time"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/samber/oops"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// MinMTU leaves room for a version 2 header and a useful payload.
	MinMTU = message.HeaderLenV2 + 32
	// MinRetransmissionTimeout is the smallest accepted base timeout.
	MinRetransmissionTimeout = 10 * time.Millisecond
)

// NMSConfig is the effective configuration of one message service.
type NMSConfig struct {
	MTU                   int
	MaxAggregationPeriod  time.Duration
	RetransmissionTimeout time.Duration
	MaxRetransmissions    int
	RetransmitCycles      int
	SAckSilenceMultiple   int
	ReassemblyMode        string
	DeliveryMode          string
	DeliveryPollInterval  time.Duration
	QueueLengthDecay      time.Duration
	RebroadcastRate       float64
	DefaultTTL            int
	Instrumentation       bool

	Encryption EncryptionConfig
	UDP        UDPConfig
}

// EncryptionConfig selects how the group key is obtained.
type EncryptionConfig struct {
	Mode       string
	Passphrase string
	KeyFile    string
}

// UDPConfig configures the nmsd UDP interface.
type UDPConfig struct {
	ListenAddress    string
	Port             int
	LocalAddress     string
	Device           string
	BroadcastAddress string
	MulticastGroups  []string
	MulticastTTL     int
	Loopback         bool
}

// DefaultNMSConfig returns the defaults as an NMSConfig.
func DefaultNMSConfig() *NMSConfig {
	d := Defaults()
	return &NMSConfig{
		MTU:                   d.NMS.MTU,
		MaxAggregationPeriod:  d.NMS.MaxAggregationPeriod,
		RetransmissionTimeout: d.NMS.RetransmissionTimeout,
		MaxRetransmissions:    d.NMS.MaxRetransmissions,
		RetransmitCycles:      d.NMS.RetransmitCycles,
		SAckSilenceMultiple:   d.NMS.SAckSilenceMultiple,
		ReassemblyMode:        d.NMS.ReassemblyMode,
		DeliveryMode:          d.NMS.DeliveryMode,
		DeliveryPollInterval:  d.NMS.DeliveryPollInterval,
		QueueLengthDecay:      d.NMS.QueueLengthDecay,
		RebroadcastRate:       d.NMS.RebroadcastRate,
		DefaultTTL:            d.NMS.DefaultTTL,
		Instrumentation:       d.NMS.Instrumentation,
		Encryption: EncryptionConfig{
			Mode:       d.Encryption.Mode,
			Passphrase: d.Encryption.Passphrase,
			KeyFile:    d.Encryption.KeyFile,
		},
		UDP: UDPConfig{
			ListenAddress:    d.UDP.ListenAddress,
			Port:             d.UDP.Port,
			LocalAddress:     d.UDP.LocalAddress,
			Device:           d.UDP.Device,
			BroadcastAddress: d.UDP.BroadcastAddress,
			MulticastGroups:  slices.Clone(d.UDP.MulticastGroups),
			MulticastTTL:     d.UDP.MulticastTTL,
			Loopback:         d.UDP.Loopback,
		},
	}
}

// NewNMSConfigFromViper reads the current viper settings.
func NewNMSConfigFromViper() *NMSConfig {
	return &NMSConfig{
		MTU:                   viper.GetInt("nms.mtu"),
		MaxAggregationPeriod:  viper.GetDuration("nms.max_aggregation_period"),
		RetransmissionTimeout: viper.GetDuration("nms.retransmission_timeout"),
		MaxRetransmissions:    viper.GetInt("nms.max_retransmissions"),
		RetransmitCycles:      viper.GetInt("nms.retransmit_cycles"),
		SAckSilenceMultiple:   viper.GetInt("nms.sack_silence_multiple"),
		ReassemblyMode:        viper.GetString("nms.reassembly_mode"),
		DeliveryMode:          viper.GetString("nms.delivery_mode"),
		DeliveryPollInterval:  viper.GetDuration("nms.delivery_poll_interval"),
		QueueLengthDecay:      viper.GetDuration("nms.queue_length_decay"),
		RebroadcastRate:       viper.GetFloat64("nms.rebroadcast_rate"),
		DefaultTTL:            viper.GetInt("nms.default_ttl"),
		Instrumentation:       viper.GetBool("nms.instrumentation"),
		Encryption: EncryptionConfig{
			Mode:       viper.GetString("encryption.mode"),
			Passphrase: viper.GetString("encryption.passphrase"),
			KeyFile:    viper.GetString("encryption.key_file"),
		},
		UDP: UDPConfig{
			ListenAddress:    viper.GetString("udp.listen_address"),
			Port:             viper.GetInt("udp.port"),
			LocalAddress:     viper.GetString("udp.local_address"),
			Device:           viper.GetString("udp.device"),
			BroadcastAddress: viper.GetString("udp.broadcast_address"),
			MulticastGroups:  viper.GetStringSlice("udp.multicast_groups"),
			MulticastTTL:     viper.GetInt("udp.multicast_ttl"),
			Loopback:         viper.GetBool("udp.loopback"),
		},
	}
}

// SAckSilence is how long a peer may stay quiet before we stop
// acknowledging it.
func (c *NMSConfig) SAckSilence() time.Duration {
	return time.Duration(c.SAckSilenceMultiple) * c.RetransmissionTimeout
}

type yamlDocument struct {
	NMS struct {
		MTU                   int     `yaml:"mtu"`
		MaxAggregationPeriod  string  `yaml:"max_aggregation_period"`
		RetransmissionTimeout string  `yaml:"retransmission_timeout"`
		MaxRetransmissions    int     `yaml:"max_retransmissions"`
		RetransmitCycles      int     `yaml:"retransmit_cycles"`
		SAckSilenceMultiple   int     `yaml:"sack_silence_multiple"`
		ReassemblyMode        string  `yaml:"reassembly_mode"`
		DeliveryMode          string  `yaml:"delivery_mode"`
		DeliveryPollInterval  string  `yaml:"delivery_poll_interval"`
		QueueLengthDecay      string  `yaml:"queue_length_decay"`
		RebroadcastRate       float64 `yaml:"rebroadcast_rate"`
		DefaultTTL            int     `yaml:"default_ttl"`
		Instrumentation       bool    `yaml:"instrumentation"`
	} `yaml:"nms"`
	Encryption struct {
		Mode       string `yaml:"mode"`
		Passphrase string `yaml:"passphrase,omitempty"`
		KeyFile    string `yaml:"key_file,omitempty"`
	} `yaml:"encryption"`
	UDP struct {
		ListenAddress    string   `yaml:"listen_address"`
		Port             int      `yaml:"port"`
		LocalAddress     string   `yaml:"local_address,omitempty"`
		Device           string   `yaml:"device,omitempty"`
		BroadcastAddress string   `yaml:"broadcast_address,omitempty"`
		MulticastGroups  []string `yaml:"multicast_groups"`
		MulticastTTL     int      `yaml:"multicast_ttl"`
		Loopback         bool     `yaml:"loopback"`
	} `yaml:"udp"`
}

// redacted replaces secrets in the YAML rendering.
const redacted = "<redacted>"

// YAML renders c in config file form. The passphrase is redacted.
func (c *NMSConfig) YAML() ([]byte, error) {
	var doc yamlDocument
	doc.NMS.MTU = c.MTU
	doc.NMS.MaxAggregationPeriod = c.MaxAggregationPeriod.String()
	doc.NMS.RetransmissionTimeout = c.RetransmissionTimeout.String()
	doc.NMS.MaxRetransmissions = c.MaxRetransmissions
	doc.NMS.RetransmitCycles = c.RetransmitCycles
	doc.NMS.SAckSilenceMultiple = c.SAckSilenceMultiple
	doc.NMS.ReassemblyMode = c.ReassemblyMode
	doc.NMS.DeliveryMode = c.DeliveryMode
	doc.NMS.DeliveryPollInterval = c.DeliveryPollInterval.String()
	doc.NMS.QueueLengthDecay = c.QueueLengthDecay.String()
	doc.NMS.RebroadcastRate = c.RebroadcastRate
	doc.NMS.DefaultTTL = c.DefaultTTL
	doc.NMS.Instrumentation = c.Instrumentation

	doc.Encryption.Mode = c.Encryption.Mode
	if c.Encryption.Passphrase != "" {
		doc.Encryption.Passphrase = redacted
	}
	doc.Encryption.KeyFile = c.Encryption.KeyFile

	doc.UDP.ListenAddress = c.UDP.ListenAddress
	doc.UDP.Port = c.UDP.Port
	doc.UDP.LocalAddress = c.UDP.LocalAddress
	doc.UDP.Device = c.UDP.Device
	doc.UDP.BroadcastAddress = c.UDP.BroadcastAddress
	doc.UDP.MulticastGroups = c.UDP.MulticastGroups
	if doc.UDP.MulticastGroups == nil {
		doc.UDP.MulticastGroups = []string{}
	}
	doc.UDP.MulticastTTL = c.UDP.MulticastTTL
	doc.UDP.Loopback = c.UDP.Loopback

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, oops.Wrapf(err, "rendering configuration")
	}
	return out, nil
}
