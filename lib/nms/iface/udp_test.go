package iface

import (
	"context"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	c, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer c.Close()
	return c.LocalAddr().(*net.UDPAddr).Port
}

func TestNewUDP_Validation(t *testing.T) {
	_, err := NewUDP(UDPConfig{Port: 0})
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = NewUDP(UDPConfig{Port: 9000, MulticastTTL: 300})
	assert.ErrorIs(t, err, ErrInvalidHopLimit)

	_, err = NewUDP(UDPConfig{Port: 9000, LocalAddress: "127.0.0.1", MulticastGroups: []string{"10.0.0.1"}})
	assert.ErrorIs(t, err, ErrInvalidGroup)
}

func TestBroadcastAddress_FromNetwork(t *testing.T) {
	_, ipnet, err := net.ParseCIDR("192.168.4.17/24")
	require.NoError(t, err)
	ipnet.IP = net.IPv4(192, 168, 4, 17).To4()

	b, err := broadcastAddress(UDPConfig{}, ipnet)
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.255", message.AddrString(b))

	b, err = broadcastAddress(UDPConfig{BroadcastAddress: "10.1.255.255"}, ipnet)
	require.NoError(t, err)
	assert.Equal(t, "10.1.255.255", message.AddrString(b))
}

func TestUDPInterface_Loopback(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("binding 127.0.0.2 requires linux loopback semantics")
	}
	port := freeUDPPort(t)

	a, err := NewUDP(UDPConfig{Name: "a", ListenAddress: "127.0.0.1", LocalAddress: "127.0.0.1", Port: port})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewUDP(UDPConfig{Name: "b", ListenAddress: "127.0.0.2", LocalAddress: "127.0.0.2", Port: port})
	require.NoError(t, err)
	defer b.Close()

	got := make(chan []byte, 1)
	senders := make(chan uint32, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Serve(ctx, ReceiverFunc(func(raw []byte, in Interface, sender uint32) error {
		got <- raw
		senders <- sender
		return nil
	}))

	dest, err := message.ParseAddr("127.0.0.2")
	require.NoError(t, err)
	require.NoError(t, a.Send([]byte("datagram"), dest, false))

	select {
	case raw := <-got:
		assert.Equal(t, []byte("datagram"), raw)
		assert.Equal(t, a.Address(), <-senders)
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not received")
	}

	assert.ErrorIs(t, a.Send(make([]byte, DefaultUDPMTU+1), dest, false), ErrFrameTooLarge)
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Send([]byte("x"), dest, false), ErrClosed)
}
