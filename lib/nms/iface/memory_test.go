package iface

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = uint32(0x0a000001)
	addrB = uint32(0x0a000002)
	addrC = uint32(0x0a000003)
	bcast = uint32(0x0a0000ff)
)

func receiveWithin(t *testing.T, m *MemoryInterface) ([]byte, uint32) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	raw, from, err := m.Receive(ctx)
	require.NoError(t, err)
	return raw, from
}

func TestHub_Unicast(t *testing.T) {
	h := NewHub(bcast)
	a, err := h.Attach("a", addrA, 100)
	require.NoError(t, err)
	b, err := h.Attach("b", addrB, 100)
	require.NoError(t, err)
	c, err := h.Attach("c", addrC, 100)
	require.NoError(t, err)

	require.NoError(t, a.Send([]byte("hello"), addrB, false))
	raw, from := receiveWithin(t, b)
	assert.Equal(t, []byte("hello"), raw)
	assert.Equal(t, addrA, from)
	assert.Zero(t, c.QueueLength())

	// unknown destination is silently lost
	assert.NoError(t, a.Send([]byte("x"), 0x0a000009, false))
}

func TestHub_Broadcast(t *testing.T) {
	h := NewHub(bcast)
	a, _ := h.Attach("a", addrA, 100)
	b, _ := h.Attach("b", addrB, 100)
	c, _ := h.Attach("c", addrC, 100)

	require.NoError(t, a.Send([]byte("all"), bcast, false))
	for _, m := range []*MemoryInterface{b, c} {
		raw, _ := receiveWithin(t, m)
		assert.Equal(t, []byte("all"), raw)
	}
	assert.Zero(t, a.QueueLength(), "sender does not hear itself")

	require.NoError(t, a.Send([]byte("group"), 0xE0000001, false))
	assert.Equal(t, uint8(1), b.QueueLength())
	assert.Equal(t, uint8(1), c.QueueLength())
}

func TestHub_FramesAreCopied(t *testing.T) {
	h := NewHub(0)
	a, _ := h.Attach("a", addrA, 100)
	b, _ := h.Attach("b", addrB, 100)

	buf := []byte("abc")
	require.NoError(t, a.Send(buf, addrB, false))
	buf[0] = 'z'
	raw, _ := receiveWithin(t, b)
	assert.Equal(t, []byte("abc"), raw)
}

func TestHub_DropFunc(t *testing.T) {
	h := NewHub(bcast)
	a, _ := h.Attach("a", addrA, 100)
	b, _ := h.Attach("b", addrB, 100)
	c, _ := h.Attach("c", addrC, 100)

	h.SetDropFunc(func(from, to uint32, raw []byte) bool { return to == addrB })
	require.NoError(t, a.Send([]byte("x"), bcast, false))
	assert.Zero(t, b.QueueLength())
	assert.Equal(t, uint8(1), c.QueueLength())

	h.SetDropFunc(nil)
	require.NoError(t, a.Send([]byte("y"), addrB, false))
	assert.Equal(t, uint8(1), b.QueueLength())
}

func TestHub_AttachErrors(t *testing.T) {
	h := NewHub(0)
	_, err := h.Attach("a", addrA, 0)
	assert.ErrorIs(t, err, ErrInvalidMTU)

	_, err = h.Attach("a", addrA, 10)
	require.NoError(t, err)
	_, err = h.Attach("again", addrA, 10)
	assert.ErrorIs(t, err, ErrDuplicateAddr)
}

func TestMemoryInterface_SendLimits(t *testing.T) {
	h := NewHub(0)
	a, _ := h.Attach("a", addrA, 4)
	assert.ErrorIs(t, a.Send([]byte("too long"), addrB, false), ErrFrameTooLarge)

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Send([]byte("x"), addrB, false), ErrClosed)

	// the address is free again after Close
	_, err := h.Attach("a2", addrA, 4)
	assert.NoError(t, err)
}

func TestMemoryInterface_Serve(t *testing.T) {
	h := NewHub(0)
	a, _ := h.Attach("a", addrA, 100)
	b, _ := h.Attach("b", addrB, 100)

	got := make(chan string, 4)
	r := ReceiverFunc(func(raw []byte, in Interface, sender uint32) error {
		assert.Equal(t, "b", in.Name())
		assert.Equal(t, addrA, sender)
		got <- string(raw)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx, r) }()

	require.NoError(t, a.Send([]byte("one"), addrB, true))
	require.NoError(t, a.Send([]byte("two"), addrB, false))
	assert.Equal(t, "one", <-got)
	assert.Equal(t, "two", <-got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
