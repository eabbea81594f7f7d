package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/service"
	"github.com/go-i2p/go-nms/lib/util"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

var ErrNotAcknowledged = oops.New("message not acknowledged in time")

var sendOpts struct {
	to        string
	msgType   uint8
	reliable  bool
	expedited bool
	ttl       uint8
	metadata  string
	noEncrypt bool
	wait      time.Duration
}

var sendCmd = &cobra.Command{
	Use:   "send [data...]",
	Short: "Send one message",
	Long: `Send the arguments, joined by spaces, as one message. With --reliable
the command waits until the destination acknowledged every fragment.`,
	RunE: runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.to, "to", "", "destination address (unicast, broadcast or multicast)")
	f.Uint8Var(&sendOpts.msgType, "type", 0, "message type")
	f.BoolVar(&sendOpts.reliable, "reliable", false, "acknowledge and retransmit")
	f.BoolVar(&sendOpts.expedited, "expedited", false, "skip the interface queue")
	f.Uint8Var(&sendOpts.ttl, "ttl", 0, "manycast hop limit (0 uses nms.default_ttl)")
	f.StringVar(&sendOpts.metadata, "metadata", "", "metadata sent ahead of the data")
	f.BoolVar(&sendOpts.noEncrypt, "no-encrypt", false, "send in the clear even with a group key")
	f.DurationVar(&sendOpts.wait, "wait", 10*time.Second, "how long to wait for the acknowledgment")
	_ = sendCmd.MarkFlagRequired("to")
}

func runSend(cmd *cobra.Command, args []string) error {
	dest, err := message.ParseAddr(sendOpts.to)
	if err != nil {
		return oops.Wrapf(err, "--to %q", sendOpts.to)
	}

	defer util.CloseAll()
	n, err := openNode()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendOpts.wait)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- n.udp.Serve(ctx, n.svc) }()

	mi := service.MessageInfo{
		MsgType:  sendOpts.msgType,
		Metadata: []byte(sendOpts.metadata),
		Data:     []byte(strings.Join(args, " ")),
	}
	if sendOpts.noEncrypt {
		mi.Hints = append(mi.Hints, service.HintNoEncrypt)
	}
	tr := service.TransmissionInfo{
		DestAddr:  dest,
		Reliable:  sendOpts.reliable,
		Expedited: sendOpts.expedited,
		TTL:       sendOpts.ttl,
	}
	if err := n.svc.TransmitMessage(tr, mi); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !sendOpts.reliable || message.IsManycast(dest) {
		fmt.Fprintf(out, "sent %d bytes to %s\n", len(mi.Data), message.AddrString(dest))
		return nil
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for n.svc.UnackedCount(dest) > 0 {
		select {
		case <-ctx.Done():
			return oops.Wrapf(ErrNotAcknowledged, "%d fragments pending after %s",
				n.svc.UnackedCount(dest), sendOpts.wait)
		case err := <-serveErr:
			if err != nil {
				return err
			}
			return ErrNotAcknowledged
		case <-ticker.C:
		}
	}
	fmt.Fprintf(out, "sent %d bytes to %s, acknowledged\n", len(mi.Data), message.AddrString(dest))
	return nil
}
