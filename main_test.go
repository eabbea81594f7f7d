package main

import (
	"testing"

	"github.com/go-i2p/go-nms/lib/config"
	gaes "github.com/go-i2p/go-nms/lib/crypto/aes"
	"github.com/go-i2p/go-nms/lib/nms/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupKeyBytes(t *testing.T) {
	raw, err := groupKeyBytes(config.EncryptionConfig{Mode: config.EncryptionNone})
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = groupKeyBytes(config.EncryptionConfig{Mode: config.EncryptionPassphrase, Passphrase: "pw"})
	require.NoError(t, err)
	want, err := gaes.NewGroupKeyFromPassphrase("pw")
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), raw)

	_, err = groupKeyBytes(config.EncryptionConfig{Mode: config.EncryptionKeyFile, KeyFile: t.TempDir() + "/missing"})
	assert.Error(t, err)
}

func TestFormatDelivery(t *testing.T) {
	line := formatDelivery(&service.Delivery{
		Interface:  "udp0",
		SourceAddr: 0x0A000001,
		DestAddr:   0xFFFFFFFF,
		MsgType:    3,
		SessionID:  9,
		MsgID:      4,
		TTL:        1,
		Data:       []byte("hi"),
	})
	assert.Contains(t, line, "10.0.0.1 -> 255.255.255.255 manycast")
	assert.Contains(t, line, `data="hi"`)
}

func TestRootCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["listen"])
	assert.True(t, names["send"])
	assert.True(t, names["config"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, sendCmd.Flags().Lookup("reliable"))
}
