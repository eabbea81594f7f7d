package iface

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/net/ipv4"
)

const (
	// DefaultUDPMTU fits one datagram in a 1500 byte Ethernet frame.
	DefaultUDPMTU = 1472
	// readPoll bounds how long Serve blocks before re-checking its context.
	readPoll = 250 * time.Millisecond
)

// UDPConfig describes a UDPInterface.
type UDPConfig struct {
	Name string
	// ListenAddress is the local bind address. Empty binds all addresses.
	ListenAddress string
	Port          int
	// LocalAddress overrides the address we advertise as our source.
	LocalAddress string
	// Device names the network device used for multicast and for
	// discovering LocalAddress and the broadcast address.
	Device           string
	BroadcastAddress string
	// MulticastGroups are joined on start. Limited broadcast traffic is
	// sent to the first group when any are configured.
	MulticastGroups []string
	MulticastTTL    int
	Loopback        bool
	MTU             int
}

// UDPInterface carries network messages in UDP datagrams.
type UDPInterface struct {
	cfg       UDPConfig
	conn      *net.UDPConn
	pc        *ipv4.PacketConn
	dev       *net.Interface
	local     uint32
	broadcast uint32
	groups    []net.IP
	mtu       int

	inFlight  atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ Interface = (*UDPInterface)(nil)

// NewUDP opens the socket and joins the configured multicast groups.
func NewUDP(cfg UDPConfig) (*UDPInterface, error) {
	if cfg.Port <= 0 || cfg.Port > 0xFFFF {
		return nil, ErrInvalidPort
	}
	if cfg.MulticastTTL < 0 || cfg.MulticastTTL > 0xFF {
		return nil, ErrInvalidHopLimit
	}
	if cfg.MTU <= 0 {
		cfg.MTU = DefaultUDPMTU
	}
	if cfg.Name == "" {
		cfg.Name = "udp" + strconv.Itoa(cfg.Port)
	}

	var groups []net.IP
	for _, g := range cfg.MulticastGroups {
		ip := net.ParseIP(g).To4()
		if ip == nil || !ip.IsMulticast() {
			return nil, oops.Wrapf(ErrInvalidGroup, "group %q", g)
		}
		groups = append(groups, ip)
	}

	var dev *net.Interface
	if cfg.Device != "" {
		d, err := net.InterfaceByName(cfg.Device)
		if err != nil {
			return nil, oops.Wrapf(err, "looking up device %s", cfg.Device)
		}
		dev = d
	}

	local, ipnet, err := localAddress(cfg, dev)
	if err != nil {
		return nil, err
	}
	broadcast, err := broadcastAddress(cfg, ipnet)
	if err != nil {
		return nil, err
	}

	laddr := &net.UDPAddr{Port: cfg.Port}
	if cfg.ListenAddress != "" {
		laddr.IP = net.ParseIP(cfg.ListenAddress)
		if laddr.IP == nil {
			return nil, oops.Wrapf(message.ErrBadAddress, "listen address %q", cfg.ListenAddress)
		}
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, oops.Wrapf(err, "listening on %s", laddr)
	}

	u := &UDPInterface{
		cfg:       cfg,
		conn:      conn,
		pc:        ipv4.NewPacketConn(conn),
		dev:       dev,
		local:     local,
		broadcast: broadcast,
		groups:    groups,
		mtu:       cfg.MTU,
	}
	if err := u.setupMulticast(); err != nil {
		conn.Close()
		return nil, err
	}

	log.WithFields(logger.Fields{
		"at":        "NewUDP",
		"name":      cfg.Name,
		"listen":    laddr.String(),
		"local":     message.AddrString(local),
		"broadcast": message.AddrString(broadcast),
		"groups":    cfg.MulticastGroups,
	}).Debug("udp interface ready")
	return u, nil
}

func (u *UDPInterface) setupMulticast() error {
	dev := u.dev
	if len(u.groups) == 0 {
		return nil
	}
	if dev != nil {
		if err := u.pc.SetMulticastInterface(dev); err != nil {
			return oops.Wrapf(err, "setting multicast interface")
		}
	}
	if u.cfg.MulticastTTL > 0 {
		if err := u.pc.SetMulticastTTL(u.cfg.MulticastTTL); err != nil {
			return oops.Wrapf(err, "setting multicast ttl")
		}
	}
	if err := u.pc.SetMulticastLoopback(u.cfg.Loopback); err != nil {
		return oops.Wrapf(err, "setting multicast loopback")
	}
	for _, g := range u.groups {
		if err := u.pc.JoinGroup(dev, &net.UDPAddr{IP: g}); err != nil {
			return oops.Wrapf(err, "joining group %s", g)
		}
	}
	return nil
}

func localAddress(cfg UDPConfig, dev *net.Interface) (uint32, *net.IPNet, error) {
	if cfg.LocalAddress != "" {
		addr, err := message.ParseAddr(cfg.LocalAddress)
		if err != nil {
			return 0, nil, oops.Wrapf(err, "local address %q", cfg.LocalAddress)
		}
		return addr, nil, nil
	}

	var candidates []net.Interface
	if dev != nil {
		candidates = []net.Interface{*dev}
	} else {
		all, err := net.Interfaces()
		if err != nil {
			return 0, nil, oops.Wrapf(err, "listing interfaces")
		}
		candidates = all
	}
	for _, ifi := range candidates {
		if dev == nil && (ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0) {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return message.AddrFromIP(ipnet.IP), ipnet, nil
			}
		}
	}
	return 0, nil, ErrNoLocalAddress
}

func broadcastAddress(cfg UDPConfig, ipnet *net.IPNet) (uint32, error) {
	if cfg.BroadcastAddress != "" {
		addr, err := message.ParseAddr(cfg.BroadcastAddress)
		if err != nil {
			return 0, oops.Wrapf(err, "broadcast address %q", cfg.BroadcastAddress)
		}
		return addr, nil
	}
	if ipnet == nil || len(ipnet.Mask) != net.IPv4len {
		return 0, nil
	}
	ip := message.AddrFromIP(ipnet.IP)
	mask := message.AddrFromIP(net.IP(ipnet.Mask))
	return ip | ^mask, nil
}

func (u *UDPInterface) Name() string             { return u.cfg.Name }
func (u *UDPInterface) Address() uint32          { return u.local }
func (u *UDPInterface) BroadcastAddress() uint32 { return u.broadcast }
func (u *UDPInterface) MTU() int                 { return u.mtu }

// QueueLength returns the number of sends currently inside the kernel call.
func (u *UDPInterface) QueueLength() uint8 {
	return saturate(int(u.inFlight.Load()))
}

// target maps a network message destination to a UDP address.
func (u *UDPInterface) target(dest uint32) *net.UDPAddr {
	ip := message.IPFromAddr(dest)
	if dest == message.BroadcastAddr && len(u.groups) > 0 {
		ip = u.groups[0]
	}
	return &net.UDPAddr{IP: ip, Port: u.cfg.Port}
}

// Send writes raw as one datagram.
func (u *UDPInterface) Send(raw []byte, dest uint32, expedited bool) error {
	if u.closed.Load() {
		return ErrClosed
	}
	if len(raw) > u.mtu {
		return ErrFrameTooLarge
	}
	u.inFlight.Add(1)
	defer u.inFlight.Add(-1)

	to := u.target(dest)
	if _, err := u.pc.WriteTo(raw, nil, to); err != nil {
		return oops.Wrapf(err, "sending %d bytes to %s", len(raw), to)
	}
	return nil
}

// Serve reads datagrams and passes them to r until ctx ends or the
// interface is closed, both of which return nil.
func (u *UDPInterface) Serve(ctx context.Context, r Receiver) error {
	buf := make([]byte, message.MaxMessageLen)
	for {
		if ctx.Err() != nil || u.closed.Load() {
			return nil
		}
		if err := u.pc.SetReadDeadline(time.Now().Add(readPoll)); err != nil {
			if u.closed.Load() {
				return nil
			}
			return oops.Wrapf(err, "setting read deadline")
		}
		n, _, src, err := u.pc.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if u.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return oops.Wrapf(err, "reading from %s", u.cfg.Name)
		}

		var sender uint32
		if ua, ok := src.(*net.UDPAddr); ok {
			sender = message.AddrFromIP(ua.IP)
		}
		raw := append([]byte(nil), buf[:n]...)
		if err := r.MessageArrived(raw, u, sender); err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"at":     "(UDPInterface) Serve",
				"name":   u.cfg.Name,
				"sender": message.AddrString(sender),
				"bytes":  n,
			}).Debug("receiver rejected datagram")
		}
	}
}

// Close leaves the multicast groups and closes the socket.
func (u *UDPInterface) Close() error {
	var err error
	u.closeOnce.Do(func() {
		u.closed.Store(true)
		for _, g := range u.groups {
			_ = u.pc.LeaveGroup(u.dev, &net.UDPAddr{IP: g})
		}
		err = u.conn.Close()
	})
	return err
}
