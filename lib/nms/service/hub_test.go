package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-i2p/go-nms/lib/config"
	"github.com/go-i2p/go-nms/lib/nms/iface"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubNode struct {
	ifc *iface.MemoryInterface
	svc *Service
}

func startNode(t *testing.T, ctx context.Context, hub *iface.Hub, name string, addr uint32, cfg *config.NMSConfig) hubNode {
	t.Helper()
	ifc, err := hub.Attach(name, addr, 1500)
	require.NoError(t, err)
	svc, err := New(cfg, ifc)
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = ifc.Serve(ctx, svc)
	}()
	t.Cleanup(func() {
		svc.Close()
		ifc.Close()
		wg.Wait()
	})
	return hubNode{ifc: ifc, svc: svc}
}

func hubConfig() *config.NMSConfig {
	cfg := config.DefaultNMSConfig()
	cfg.RetransmissionTimeout = 40 * time.Millisecond
	cfg.DeliveryPollInterval = 10 * time.Millisecond
	cfg.Encryption = config.EncryptionConfig{Mode: config.EncryptionPassphrase, Passphrase: "hub test"}
	return cfg
}

func TestHub_ReliableRecoversFromLoss(t *testing.T) {
	for _, lost := range []uint16{0, 1} {
		t.Run(fmt.Sprintf("lose id %d", lost), func(t *testing.T) {
			reliableRecoversFromLoss(t, lost)
		})
	}
}

func reliableRecoversFromLoss(t *testing.T, lost uint16) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := iface.NewHub(testBroadcast)
	var dropped atomic.Bool
	hub.SetDropFunc(func(from, to uint32, raw []byte) bool {
		m, err := message.Parse(raw)
		if err != nil || m.ChunkType == message.ChunkSAck {
			return false
		}
		return from == addrA && m.MsgID == lost && dropped.CompareAndSwap(false, true)
	})

	a := startNode(t, ctx, hub, "a0", addrA, hubConfig())
	b := startNode(t, ctx, hub, "b0", addrB, hubConfig())

	var mu sync.Mutex
	var got [][]byte
	b.svc.RegisterHandlerCallback(testMsgType, ListenerFunc(func(d *Delivery) error {
		mu.Lock()
		got = append(got, d.Data)
		mu.Unlock()
		return nil
	}))

	payloads := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, p := range payloads {
		require.NoError(t, a.svc.TransmitMessage(
			TransmissionInfo{DestAddr: addrB, Reliable: true},
			MessageInfo{MsgType: testMsgType, Data: p},
		))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(payloads)
	}, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return a.svc.UnackedCount(addrB) == 0
	}, 3*time.Second, 10*time.Millisecond)

	assert.True(t, dropped.Load())
	mu.Lock()
	assert.Equal(t, payloads, got, "sequenced delivery keeps send order")
	mu.Unlock()
	assert.GreaterOrEqual(t, a.svc.Stats().Retransmitted, uint64(1))
	assert.Equal(t, a.svc.EncryptionKeyHash(), b.svc.EncryptionKeyHash())
}

func TestHub_BroadcastFloodsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := iface.NewHub(testBroadcast)
	cfg := hubConfig()
	cfg.DefaultTTL = 3

	nodes := []hubNode{
		startNode(t, ctx, hub, "a0", addrA, cfg),
		startNode(t, ctx, hub, "b0", addrB, cfg),
		startNode(t, ctx, hub, "c0", addrC, cfg),
	}
	var counts [3]atomic.Int32
	for i := 1; i < len(nodes); i++ {
		nodes[i].svc.RegisterHandlerCallback(testMsgType, ListenerFunc(func(d *Delivery) error {
			counts[i].Add(1)
			return nil
		}))
	}

	require.NoError(t, nodes[0].svc.BroadcastMessage(
		TransmissionInfo{DestAddr: testBroadcast},
		MessageInfo{MsgType: testMsgType, Data: []byte("to all")},
	))

	require.Eventually(t, func() bool {
		return counts[1].Load() == 1 && counts[2].Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	// rebroadcast copies from peers must be suppressed as duplicates
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), counts[1].Load())
	assert.Equal(t, int32(1), counts[2].Load())
}
