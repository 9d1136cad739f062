//go:build linux

package rudp

import (
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxBatch wraps sendmmsg/recvmmsg for the Linux batch path (§4.7):
// one syscall moves up to a full batch of datagrams instead of one.
type linuxBatch struct{}

func newPlatformBatch() (batchSender, batchReceiver) {
	b := linuxBatch{}
	return b, b
}

func htons(port uint16) uint16 {
	return (port << 8) | (port >> 8)
}

func sockaddrInet4(addr *net.UDPAddr) (*unix.RawSockaddrInet4, error) {
	ip4 := addr.IP.To4()
	if ip4 == nil {
		return nil, ErrIPv6Unsupported
	}
	sa := &unix.RawSockaddrInet4{Family: unix.AF_INET, Port: htons(uint16(addr.Port))}
	copy(sa.Addr[:], ip4)
	return sa, nil
}

// SendBatch sends frames to dst via a single sendmmsg(2) call. IPv6
// destinations are rejected per §4.7.
func (linuxBatch) SendBatch(conn *net.UDPConn, dst *net.UDPAddr, frames [][]byte) (int, error) {
	if len(frames) == 0 {
		return 0, nil
	}
	sa, err := sockaddrInet4(dst)
	if err != nil {
		return 0, err
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	msgs := make([]unix.Mmsghdr, len(frames))
	iovs := make([]unix.Iovec, len(frames))
	sent := 0
	var sendErr error

	ctrlErr := raw.Write(func(fd uintptr) bool {
		for i, frame := range frames {
			if len(frame) > 0 {
				iovs[i].Base = &frame[0]
			}
			iovs[i].SetLen(len(frame))
			msgs[i].Hdr.Name = (*byte)(unsafe.Pointer(sa))
			msgs[i].Hdr.Namelen = unix.SizeofSockaddrInet4
			msgs[i].Hdr.Iov = &iovs[i]
			msgs[i].Hdr.SetIovlen(1)
		}
		n, err := unix.Sendmmsg(int(fd), msgs, 0)
		sent, sendErr = n, err
		return true
	})
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return sent, sendErr
}

// ReceiveBatch reads up to len(buf) datagrams via a single recvmmsg(2)
// call. Zero-length receive is success, not an error (§4.7).
func (linuxBatch) ReceiveBatch(conn *net.UDPConn, max int, buf [][]byte) (int, []*net.UDPAddr, error) {
	if max <= 0 || len(buf) == 0 {
		return 0, nil, nil
	}
	if max > len(buf) {
		max = len(buf)
	}

	msgs := make([]unix.Mmsghdr, max)
	iovs := make([]unix.Iovec, max)
	addrs := make([]unix.RawSockaddrInet4, max)

	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, nil, err
	}

	var n int
	var recvErr error
	ctrlErr := raw.Read(func(fd uintptr) bool {
		for i := range msgs {
			if len(buf[i]) > 0 {
				iovs[i].Base = &buf[i][0]
			}
			iovs[i].SetLen(len(buf[i]))
			msgs[i].Hdr.Name = (*byte)(unsafe.Pointer(&addrs[i]))
			msgs[i].Hdr.Namelen = unix.SizeofSockaddrInet4
			msgs[i].Hdr.Iov = &iovs[i]
			msgs[i].Hdr.SetIovlen(1)
		}
		got, err := unix.Recvmmsg(int(fd), msgs, unix.MSG_DONTWAIT, nil)
		n, recvErr = got, err
		return true
	})
	if ctrlErr != nil {
		return 0, nil, ctrlErr
	}
	if recvErr == unix.EAGAIN || recvErr == unix.EWOULDBLOCK {
		return 0, nil, nil
	}
	if recvErr != nil {
		return 0, nil, recvErr
	}

	froms := make([]*net.UDPAddr, n)
	for i := 0; i < n; i++ {
		port := (addrs[i].Port >> 8) | (addrs[i].Port << 8)
		froms[i] = &net.UDPAddr{IP: net.IPv4(addrs[i].Addr[0], addrs[i].Addr[1], addrs[i].Addr[2], addrs[i].Addr[3]), Port: int(port)}
		buf[i] = buf[i][:msgs[i].Len]
	}
	return n, froms, nil
}
