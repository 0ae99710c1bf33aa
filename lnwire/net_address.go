package lnwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// addrDescriptor tags the type of the address that follows it in a
// serialized address list, per the four transports the protocol knows how
// to advertise.
type addrDescriptor byte

const (
	addrDescriptorIPv4    addrDescriptor = 1
	addrDescriptorIPv6    addrDescriptor = 2
	addrDescriptorOnionV2 addrDescriptor = 3
	addrDescriptorOnionV3 addrDescriptor = 4
)

const (
	onionV2Len = 10
	onionV3Len = 35
)

// OnionAddr is a Tor hidden-service address that net.Addr doesn't natively
// model, distinguished by its encoded pubkey/checksum length (10 bytes for
// a v2 onion, 35 for v3).
type OnionAddr struct {
	OnionService string
	Port         int
	V3           bool
}

func (o *OnionAddr) Network() string { return "onion" }
func (o *OnionAddr) String() string  { return fmt.Sprintf("%s:%d", o.OnionService, o.Port) }

func writeNetAddrs(w io.Writer, addrs []net.Addr) error {
	var buf []byte
	for _, addr := range addrs {
		encoded, err := encodeNetAddr(addr)
		if err != nil {
			return err
		}
		buf = append(buf, encoded...)
	}
	return writeElement(w, buf)
}

func encodeNetAddr(addr net.Addr) ([]byte, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		if ip4 := a.IP.To4(); ip4 != nil {
			out := make([]byte, 0, 7)
			out = append(out, byte(addrDescriptorIPv4))
			out = append(out, ip4...)
			var port [2]byte
			binary.BigEndian.PutUint16(port[:], uint16(a.Port))
			return append(out, port[:]...), nil
		}

		out := make([]byte, 0, 19)
		out = append(out, byte(addrDescriptorIPv6))
		out = append(out, a.IP.To16()...)
		var port [2]byte
		binary.BigEndian.PutUint16(port[:], uint16(a.Port))
		return append(out, port[:]...), nil

	case *OnionAddr:
		descriptor := addrDescriptorOnionV2
		svcLen := onionV2Len
		if a.V3 {
			descriptor = addrDescriptorOnionV3
			svcLen = onionV3Len
		}
		svc := []byte(a.OnionService)
		if len(svc) != svcLen {
			return nil, fmt.Errorf("onion service identifier must be %d bytes, got %d",
				svcLen, len(svc))
		}
		out := make([]byte, 0, 1+svcLen+2)
		out = append(out, byte(descriptor))
		out = append(out, svc...)
		var port [2]byte
		binary.BigEndian.PutUint16(port[:], uint16(a.Port))
		return append(out, port[:]...), nil

	default:
		return nil, fmt.Errorf("unsupported net.Addr implementation: %T", addr)
	}
}

func readNetAddrs(r io.Reader) ([]net.Addr, error) {
	var buf []byte
	if err := readElement(r, &buf); err != nil {
		return nil, err
	}

	var addrs []net.Addr
	br := bytes.NewReader(buf)

	for br.Len() > 0 {
		var descriptor [1]byte
		if _, err := io.ReadFull(br, descriptor[:]); err != nil {
			return nil, err
		}

		switch addrDescriptor(descriptor[0]) {
		case addrDescriptorIPv4:
			var ip [4]byte
			if _, err := io.ReadFull(br, ip[:]); err != nil {
				return nil, err
			}
			port, err := readPort(br)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, &net.TCPAddr{IP: net.IP(ip[:]), Port: port})

		case addrDescriptorIPv6:
			var ip [16]byte
			if _, err := io.ReadFull(br, ip[:]); err != nil {
				return nil, err
			}
			port, err := readPort(br)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, &net.TCPAddr{IP: net.IP(ip[:]), Port: port})

		case addrDescriptorOnionV2:
			svc := make([]byte, onionV2Len)
			if _, err := io.ReadFull(br, svc); err != nil {
				return nil, err
			}
			port, err := readPort(br)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, &OnionAddr{OnionService: string(svc), Port: port})

		case addrDescriptorOnionV3:
			svc := make([]byte, onionV3Len)
			if _, err := io.ReadFull(br, svc); err != nil {
				return nil, err
			}
			port, err := readPort(br)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, &OnionAddr{OnionService: string(svc), Port: port, V3: true})

		default:
			return nil, fmt.Errorf("unknown address descriptor %d", descriptor[0])
		}
	}

	return addrs, nil
}

func readPort(r io.Reader) (int, error) {
	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(port[:])), nil
}
