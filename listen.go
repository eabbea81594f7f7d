package main

import (
	"context"
	"fmt"

	"github.com/go-i2p/go-nms/lib/config"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/service"
	"github.com/go-i2p/go-nms/lib/util"
	"github.com/go-i2p/go-nms/lib/util/signals"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listenTypes []uint

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Receive messages and print them",
	Long: `Start the service on the configured UDP interface and print every
delivered message. SIGHUP re-reads the configuration and applies the
retransmission timeout and group key; SIGINT or SIGTERM stops.`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().UintSliceVar(&listenTypes, "type", nil, "message types to print (default all)")
}

func runListen(cmd *cobra.Command, _ []string) error {
	defer util.CloseAll()
	n, err := openNode()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := service.ListenerFunc(func(d *service.Delivery) error {
		_, err := fmt.Fprintln(out, formatDelivery(d))
		return err
	})
	types := listenTypes
	if len(types) == 0 {
		for t := uint(0); t <= 0xFF; t++ {
			types = append(types, t)
		}
	}
	for _, t := range types {
		if t > 0xFF {
			return oops.Errorf("message type %d does not fit in 8 bits", t)
		}
		n.svc.RegisterHandlerCallback(uint8(t), printer)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go signals.Handle()
	defer signals.StopHandle()
	reloadID := signals.RegisterReloadHandler(func() { reload(n.svc) })
	defer signals.DeregisterReloadHandler(reloadID)
	stopID := signals.RegisterInterruptHandler(func() { cancel() })
	defer signals.DeregisterInterruptHandler(stopID)

	fmt.Fprintf(out, "listening on %s port %d, session %d\n",
		message.AddrString(n.udp.Address()), n.cfg.UDP.Port, n.svc.SessionID())
	err = n.udp.Serve(ctx, n.svc)
	logPeers(n.svc)
	return err
}

func logPeers(svc *service.Service) {
	for _, p := range svc.Peers() {
		log.WithFields(logger.Fields{
			"at":       "logPeers",
			"peer":     message.AddrString(p.Addr),
			"session":  p.SessionID,
			"unicast":  p.Unicast,
			"manycast": p.Manycast,
		}).Info("peer summary")
	}
}

func reload(svc *service.Service) {
	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).WithField("at", "reload").Warn("could not re-read config, keeping current settings")
		return
	}
	cfg := config.NewNMSConfigFromViper()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).WithField("at", "reload").Warn("reloaded config is invalid")
		return
	}
	if err := svc.SetRetransmissionTimeout(cfg.RetransmissionTimeout); err != nil {
		log.WithError(err).WithField("at", "reload").Warn("retransmission timeout rejected")
	}
	key, err := groupKeyBytes(cfg.Encryption)
	if err != nil {
		log.WithError(err).WithField("at", "reload").Warn("group key could not be loaded")
		return
	}
	if err := svc.ChangeEncryptionKey(key); err != nil {
		log.WithError(err).WithField("at", "reload").Warn("group key rejected")
		return
	}
	log.WithFields(logger.Fields{
		"at":       "reload",
		"timeout":  cfg.RetransmissionTimeout,
		"key_hash": svc.EncryptionKeyHash(),
	}).Info("configuration reloaded")
}
