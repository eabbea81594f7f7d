package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestDefaultsRoundTrip verifies that every key registered by setDefaults
// is read back by NewNMSConfigFromViper under the same name.
func TestDefaultsRoundTrip(t *testing.T) {
	viper.Reset()
	setDefaults()

	assert.Equal(t, DefaultNMSConfig(), NewNMSConfigFromViper())
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, DefaultNMSConfig().Validate())
}

func TestViperOverrides(t *testing.T) {
	viper.Reset()
	setDefaults()
	viper.Set("nms.retransmission_timeout", "250ms")
	viper.Set("nms.max_retransmissions", 3)
	viper.Set("nms.delivery_mode", DeliverySync)
	viper.Set("udp.multicast_groups", []string{"239.1.2.3"})

	cfg := NewNMSConfigFromViper()
	assert.Equal(t, 250*time.Millisecond, cfg.RetransmissionTimeout)
	assert.Equal(t, 3, cfg.MaxRetransmissions)
	assert.Equal(t, DeliverySync, cfg.DeliveryMode)
	assert.Equal(t, []string{"239.1.2.3"}, cfg.UDP.MulticastGroups)
	assert.Equal(t, 10*250*time.Millisecond, cfg.SAckSilence())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *NMSConfig)
	}{
		{"max retransmissions above 8 bits", func(c *NMSConfig) { c.MaxRetransmissions = 256 }},
		{"negative max retransmissions", func(c *NMSConfig) { c.MaxRetransmissions = -1 }},
		{"tiny timeout", func(c *NMSConfig) { c.RetransmissionTimeout = time.Millisecond }},
		{"tiny mtu", func(c *NMSConfig) { c.MTU = 20 }},
		{"zero cycles", func(c *NMSConfig) { c.RetransmitCycles = 0 }},
		{"bad reassembly mode", func(c *NMSConfig) { c.ReassemblyMode = "random" }},
		{"bad delivery mode", func(c *NMSConfig) { c.DeliveryMode = "later" }},
		{"async without poll interval", func(c *NMSConfig) { c.DeliveryPollInterval = 0 }},
		{"negative rebroadcast rate", func(c *NMSConfig) { c.RebroadcastRate = -1 }},
		{"ttl above 8 bits", func(c *NMSConfig) { c.DefaultTTL = 300 }},
		{"passphrase mode without passphrase", func(c *NMSConfig) { c.Encryption.Mode = EncryptionPassphrase }},
		{"keyfile mode without file", func(c *NMSConfig) { c.Encryption.Mode = EncryptionKeyFile }},
		{"unknown encryption mode", func(c *NMSConfig) { c.Encryption.Mode = "rot13" }},
		{"port zero", func(c *NMSConfig) { c.UDP.Port = 0 }},
		{"multicast ttl", func(c *NMSConfig) { c.UDP.MulticastTTL = 256 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultNMSConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := DefaultNMSConfig()
	cfg.MTU = 0
	cfg.MaxRetransmissions = 0
	cfg.DeliveryMode = DeliverySync
	cfg.DeliveryPollInterval = 0
	assert.NoError(t, cfg.Validate(), "zero mtu, unlimited retransmissions and sync delivery are valid")
}

func TestYAMLRedactsPassphrase(t *testing.T) {
	cfg := DefaultNMSConfig()
	cfg.Encryption.Mode = EncryptionPassphrase
	cfg.Encryption.Passphrase = "hunter2"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "1s", doc["nms"]["retransmission_timeout"])
	assert.Equal(t, redacted, doc["encryption"]["passphrase"])
	assert.Equal(t, 4900, doc["udp"]["port"])
}

func TestInitConfigCreatesAndReadsFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(func() { CfgFile = "" })

	dir := t.TempDir()
	path := filepath.Join(dir, "nmsd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nms:\n  max_retransmissions: 7\nudp:\n  port: 5000\n"), 0o600))

	CfgFile = path
	require.NoError(t, InitConfig())
	cfg := NewNMSConfigFromViper()
	assert.Equal(t, 7, cfg.MaxRetransmissions)
	assert.Equal(t, 5000, cfg.UDP.Port)
	assert.Equal(t, time.Second, cfg.RetransmissionTimeout, "unset keys keep their defaults")

	viper.Reset()
	CfgFile = filepath.Join(dir, "missing.yaml")
	assert.Error(t, InitConfig())
}

func TestInitConfigWritesDefaultFile(t *testing.T) {
	viper.Reset()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	require.NoError(t, InitConfig())
	_, err := os.Stat(filepath.Join(home, GONMS_BASE_DIR, "config.yaml"))
	assert.NoError(t, err)
}
