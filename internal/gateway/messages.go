package gateway

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/fenrir-labs/matcher/internal/matcher"
)

// MessageType tags an incoming wire frame.
type MessageType uint16

const (
	NewOrder MessageType = iota
	CancelOrder
	LogBook
)

// ReportType tags an outgoing wire frame.
type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
)

var (
	ErrInvalidMessageType = errors.New("gateway: invalid message type")
	ErrMessageTooShort    = errors.New("gateway: message too short")
)

// Wire layout, all big-endian:
//
//	BaseHeaderLen        = 2  (MessageType)
//	NewOrderBodyLen       = 8 (OrderID) + 1 (Side) + 1 (OrderType) + 1 (TifKind)
//	                        + 8 (ExpiresAtMs) + 8 (Price float64) + 8 (Qty float64)
//	CancelOrderBodyLen    = 8 (OrderID)
const (
	BaseHeaderLen      = 2
	NewOrderBodyLen    = 8 + 1 + 1 + 1 + 8 + 8 + 8
	CancelOrderBodyLen = 8
)

// NewOrderMsg is a parsed NewOrder frame, still in human decimal units
// — Scales conversion happens at the call site so the wire format
// doesn't need to know a symbol's tick/lot size.
type NewOrderMsg struct {
	OrderID     uint64
	Side        matcher.Side
	OrderType   matcher.OrderType
	TifKind     matcher.TifKind
	ExpiresAtMs int64
	Price       float64
	Qty         float64
}

// CancelOrderMsg is a parsed CancelOrder frame.
type CancelOrderMsg struct {
	OrderID uint64
}

// ParseMessage decodes one complete frame (no length prefix: the
// gateway reads a fixed maxRecvSize buffer per read, matching the
// teacher's single-read-per-message framing).
func ParseMessage(buf []byte) (MessageType, any, error) {
	if len(buf) < BaseHeaderLen {
		return 0, nil, ErrMessageTooShort
	}
	typ := MessageType(binary.BigEndian.Uint16(buf[0:2]))
	body := buf[2:]
	switch typ {
	case NewOrder:
		m, err := parseNewOrder(body)
		return typ, m, err
	case CancelOrder:
		m, err := parseCancelOrder(body)
		return typ, m, err
	case LogBook:
		return typ, nil, nil
	default:
		return 0, nil, ErrInvalidMessageType
	}
}

func parseNewOrder(b []byte) (NewOrderMsg, error) {
	if len(b) < NewOrderBodyLen {
		return NewOrderMsg{}, ErrMessageTooShort
	}
	return NewOrderMsg{
		OrderID:     binary.BigEndian.Uint64(b[0:8]),
		Side:        matcher.Side(b[8]),
		OrderType:   matcher.OrderType(b[9]),
		TifKind:     matcher.TifKind(b[10]),
		ExpiresAtMs: int64(binary.BigEndian.Uint64(b[11:19])),
		Price:       math.Float64frombits(binary.BigEndian.Uint64(b[19:27])),
		Qty:         math.Float64frombits(binary.BigEndian.Uint64(b[27:35])),
	}, nil
}

func parseCancelOrder(b []byte) (CancelOrderMsg, error) {
	if len(b) < CancelOrderBodyLen {
		return CancelOrderMsg{}, ErrMessageTooShort
	}
	return CancelOrderMsg{OrderID: binary.BigEndian.Uint64(b[0:8])}, nil
}

// EncodeNewOrder serializes a NewOrderMsg, for the CLI client.
func EncodeNewOrder(m NewOrderMsg) []byte {
	buf := make([]byte, BaseHeaderLen+NewOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	binary.BigEndian.PutUint64(buf[2:10], m.OrderID)
	buf[10] = byte(m.Side)
	buf[11] = byte(m.OrderType)
	buf[12] = byte(m.TifKind)
	binary.BigEndian.PutUint64(buf[13:21], uint64(m.ExpiresAtMs))
	binary.BigEndian.PutUint64(buf[21:29], math.Float64bits(m.Price))
	binary.BigEndian.PutUint64(buf[29:37], math.Float64bits(m.Qty))
	return buf
}

// EncodeCancelOrder serializes a CancelOrderMsg, for the CLI client.
func EncodeCancelOrder(m CancelOrderMsg) []byte {
	buf := make([]byte, BaseHeaderLen+CancelOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], m.OrderID)
	return buf
}

// EncodeLogBook serializes a bare LogBook frame, for the CLI client.
func EncodeLogBook() []byte {
	buf := make([]byte, BaseHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(LogBook))
	return buf
}

// Report is one outgoing wire frame: either an execution event or an
// error string. Fixed header followed by the (possibly empty) error text.
//
//	reportFixedLen  = 1 (ReportType) + 1 (EventKind) + 1 (Side) + 1 (bool flags)
//	                  + 8*4 (OrderID/TakerOrderID/MakerOrderID/Qty-as-bits)
//	                  + 8 (Price bits) + 4 (ErrStrLen)
type Report struct {
	Type           ReportType
	EventKind      matcher.EventKind
	Side           matcher.Side
	TakerCompleted bool
	MakerCompleted bool
	FullyCancelled bool
	OrderID        uint64
	TakerOrderID   uint64
	MakerOrderID   uint64
	Qty            float64
	Price          float64
	Err            string
}

const reportFixedLen = 1 + 1 + 1 + 1 + 8 + 8 + 8 + 8 + 8 + 4

// Serialize encodes r as a length-prefixed-by-convention fixed header
// plus the trailing error string.
func (r Report) Serialize() []byte {
	buf := make([]byte, reportFixedLen+len(r.Err))
	buf[0] = byte(r.Type)
	buf[1] = byte(r.EventKind)
	buf[2] = byte(r.Side)
	var flags byte
	if r.TakerCompleted {
		flags |= 1
	}
	if r.MakerCompleted {
		flags |= 2
	}
	if r.FullyCancelled {
		flags |= 4
	}
	buf[3] = flags
	binary.BigEndian.PutUint64(buf[4:12], r.OrderID)
	binary.BigEndian.PutUint64(buf[12:20], r.TakerOrderID)
	binary.BigEndian.PutUint64(buf[20:28], r.MakerOrderID)
	binary.BigEndian.PutUint64(buf[28:36], math.Float64bits(r.Qty))
	binary.BigEndian.PutUint64(buf[36:44], math.Float64bits(r.Price))
	binary.BigEndian.PutUint32(buf[44:48], uint32(len(r.Err)))
	copy(buf[48:], r.Err)
	return buf
}

// DecodeReport parses a frame produced by Serialize, for the CLI client.
func DecodeReport(buf []byte) (Report, error) {
	if len(buf) < reportFixedLen {
		return Report{}, ErrMessageTooShort
	}
	r := Report{
		Type:      ReportType(buf[0]),
		EventKind: matcher.EventKind(buf[1]),
		Side:      matcher.Side(buf[2]),
	}
	flags := buf[3]
	r.TakerCompleted = flags&1 != 0
	r.MakerCompleted = flags&2 != 0
	r.FullyCancelled = flags&4 != 0
	r.OrderID = binary.BigEndian.Uint64(buf[4:12])
	r.TakerOrderID = binary.BigEndian.Uint64(buf[12:20])
	r.MakerOrderID = binary.BigEndian.Uint64(buf[20:28])
	r.Qty = math.Float64frombits(binary.BigEndian.Uint64(buf[28:36]))
	r.Price = math.Float64frombits(binary.BigEndian.Uint64(buf[36:44]))
	errLen := binary.BigEndian.Uint32(buf[44:48])
	if len(buf) < reportFixedLen+int(errLen) {
		return Report{}, ErrMessageTooShort
	}
	r.Err = string(buf[reportFixedLen : reportFixedLen+int(errLen)])
	return r, nil
}
