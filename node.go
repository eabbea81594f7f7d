package main

import (
	"fmt"

	"github.com/go-i2p/go-nms/lib/config"
	gaes "github.com/go-i2p/go-nms/lib/crypto/aes"
	"github.com/go-i2p/go-nms/lib/nms/iface"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/service"
	"github.com/go-i2p/go-nms/lib/util"
	"github.com/go-i2p/logger"
)

// node is one UDP interface with a message service bound to it.
type node struct {
	cfg *config.NMSConfig
	udp *iface.UDPInterface
	svc *service.Service
}

// openNode reads the effective configuration and starts a service on a
// UDP interface. Both are registered with util.RegisterCloser.
func openNode() (*node, error) {
	cfg := config.NewNMSConfigFromViper()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	udp, err := iface.NewUDP(iface.UDPConfig{
		Name:             "udp0",
		ListenAddress:    cfg.UDP.ListenAddress,
		Port:             cfg.UDP.Port,
		LocalAddress:     cfg.UDP.LocalAddress,
		Device:           cfg.UDP.Device,
		BroadcastAddress: cfg.UDP.BroadcastAddress,
		MulticastGroups:  cfg.UDP.MulticastGroups,
		MulticastTTL:     cfg.UDP.MulticastTTL,
		Loopback:         cfg.UDP.Loopback,
		MTU:              cfg.MTU,
	})
	if err != nil {
		return nil, err
	}
	util.RegisterCloser(udp)

	svc, err := service.New(cfg, udp)
	if err != nil {
		return nil, err
	}
	util.RegisterCloser(svc)
	if err := svc.Start(); err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"at":      "openNode",
		"address": message.AddrString(udp.Address()),
		"port":    cfg.UDP.Port,
		"session": svc.SessionID(),
	}).Debug("node ready")
	return &node{cfg: cfg, udp: udp, svc: svc}, nil
}

// groupKeyBytes resolves the configured group key to raw bytes, nil when
// encryption is off.
func groupKeyBytes(e config.EncryptionConfig) ([]byte, error) {
	var (
		k   *gaes.GroupKey
		err error
	)
	switch e.Mode {
	case config.EncryptionPassphrase:
		k, err = gaes.NewGroupKeyFromPassphrase(e.Passphrase)
	case config.EncryptionKeyFile:
		k, err = gaes.LoadGroupKeyFile(e.KeyFile)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k.Bytes(), nil
}

func formatDelivery(d *service.Delivery) string {
	kind := "manycast"
	if d.Unicast {
		kind = "unicast"
	}
	return fmt.Sprintf("%s %s -> %s %s type=%d session=%d id=%d hops=%d/%d metadata=%q data=%q",
		d.Interface, message.AddrString(d.SourceAddr), message.AddrString(d.DestAddr), kind,
		d.MsgType, d.SessionID, d.MsgID, d.HopCount, d.TTL, d.Metadata, d.Data)
}
