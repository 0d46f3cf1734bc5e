// Package wire 实现测速协议的二进制编解码
//
// 所有报文均为大端序定长头：
//
//	Offer   [cookie:u32][type:u8=0x2][udp_port:u16][tcp_port:u16]          9 字节
//	Request [cookie:u32][type:u8=0x3][payload_size:u64]                   13 字节
//	Segment [cookie:u32][type:u8=0x4][total:u64][index:u64] + payload    21 字节头
package wire

import (
	"encoding/binary"

	"speedtest-core/internal/constants"
	coreerrors "speedtest-core/internal/core/errors"
)

// MessageType 报文类型标签
type MessageType byte

const (
	TypeOffer   MessageType = 0x2
	TypeRequest MessageType = 0x3
	TypeSegment MessageType = 0x4
)

// String 返回类型名称
func (t MessageType) String() string {
	switch t {
	case TypeOffer:
		return "Offer"
	case TypeRequest:
		return "Request"
	case TypeSegment:
		return "Payload"
	default:
		return "Unknown"
	}
}

// 报文长度
const (
	prefixSize        = 5
	OfferSize         = prefixSize + 2 + 2
	RequestSize       = prefixSize + 8
	SegmentHeaderSize = prefixSize + 8 + 8
)

// Offer 响应端广播的服务端点
type Offer struct {
	UDPPort uint16
	TCPPort uint16
}

// Request 客户端请求一次 UDP 传输
type Request struct {
	PayloadSize uint64
}

// Segment UDP 传输中的一个编号分片
type Segment struct {
	TotalSegments uint64
	SegmentIndex  uint64
	Payload       []byte
}

func putPrefix(buf []byte, t MessageType) {
	binary.BigEndian.PutUint32(buf[0:4], constants.MagicCookie)
	buf[4] = byte(t)
}

// checkPrefix 校验魔数和类型标签
func checkPrefix(buf []byte, t MessageType) error {
	if cookie := binary.BigEndian.Uint32(buf[0:4]); cookie != constants.MagicCookie {
		return coreerrors.Newf(coreerrors.CodeMalformedMessage, "bad magic cookie 0x%08X", cookie)
	}
	if got := MessageType(buf[4]); got != t {
		return coreerrors.Newf(coreerrors.CodeMalformedMessage, "unexpected message type 0x%X, want %s", byte(got), t)
	}
	return nil
}

// EncodeOffer 编码 Offer
func EncodeOffer(o Offer) []byte {
	buf := make([]byte, OfferSize)
	putPrefix(buf, TypeOffer)
	binary.BigEndian.PutUint16(buf[5:7], o.UDPPort)
	binary.BigEndian.PutUint16(buf[7:9], o.TCPPort)
	return buf
}

// DecodeOffer 解码 Offer，长度必须正好为 9 字节
func DecodeOffer(buf []byte) (Offer, error) {
	if len(buf) != OfferSize {
		return Offer{}, coreerrors.Newf(coreerrors.CodeMalformedMessage, "offer length %d, want %d", len(buf), OfferSize)
	}
	if err := checkPrefix(buf, TypeOffer); err != nil {
		return Offer{}, err
	}
	return Offer{
		UDPPort: binary.BigEndian.Uint16(buf[5:7]),
		TCPPort: binary.BigEndian.Uint16(buf[7:9]),
	}, nil
}

// EncodeRequest 编码 Request
func EncodeRequest(r Request) []byte {
	buf := make([]byte, RequestSize)
	putPrefix(buf, TypeRequest)
	binary.BigEndian.PutUint64(buf[5:13], r.PayloadSize)
	return buf
}

// DecodeRequest 解码 Request，长度必须正好为 13 字节
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) != RequestSize {
		return Request{}, coreerrors.Newf(coreerrors.CodeMalformedMessage, "request length %d, want %d", len(buf), RequestSize)
	}
	if err := checkPrefix(buf, TypeRequest); err != nil {
		return Request{}, err
	}
	return Request{PayloadSize: binary.BigEndian.Uint64(buf[5:13])}, nil
}

// AppendSegmentHeader 将分片头追加到 dst，发送端可复用缓冲区
func AppendSegmentHeader(dst []byte, total, index uint64) []byte {
	dst = binary.BigEndian.AppendUint32(dst, constants.MagicCookie)
	dst = append(dst, byte(TypeSegment))
	dst = binary.BigEndian.AppendUint64(dst, total)
	return binary.BigEndian.AppendUint64(dst, index)
}

// EncodeSegment 编码 Segment
func EncodeSegment(s Segment) []byte {
	buf := make([]byte, 0, SegmentHeaderSize+len(s.Payload))
	buf = AppendSegmentHeader(buf, s.TotalSegments, s.SegmentIndex)
	return append(buf, s.Payload...)
}

// DecodeSegment 解码 Segment，返回的 Payload 引用 buf 的底层数组
func DecodeSegment(buf []byte) (Segment, error) {
	if len(buf) < SegmentHeaderSize {
		return Segment{}, coreerrors.Newf(coreerrors.CodeMalformedMessage, "segment length %d below header size %d", len(buf), SegmentHeaderSize)
	}
	if err := checkPrefix(buf, TypeSegment); err != nil {
		return Segment{}, err
	}
	seg := Segment{
		TotalSegments: binary.BigEndian.Uint64(buf[5:13]),
		SegmentIndex:  binary.BigEndian.Uint64(buf[13:21]),
		Payload:       buf[SegmentHeaderSize:],
	}
	if seg.SegmentIndex >= seg.TotalSegments {
		return Segment{}, coreerrors.Newf(coreerrors.CodeMalformedMessage, "segment index %d out of range (total %d)", seg.SegmentIndex, seg.TotalSegments)
	}
	return seg, nil
}

// SegmentCount 计算 payloadSize 按 chunkSize 切分后的分片数
func SegmentCount(payloadSize uint64, chunkSize int) uint64 {
	if chunkSize <= 0 || payloadSize == 0 {
		return 0
	}
	c := uint64(chunkSize)
	return payloadSize/c + min(payloadSize%c, 1)
}

// SegmentLength 返回第 index 个分片的负载长度
func SegmentLength(payloadSize uint64, chunkSize int, index uint64) int {
	c := uint64(chunkSize)
	start := index * c
	if start >= payloadSize {
		return 0
	}
	return int(min(c, payloadSize-start))
}
