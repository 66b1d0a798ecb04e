// Package transport is the binary wire protocol collaborator: it decodes
// incoming orders into engine.SubmitOrderInput and encodes
// engine.SubmissionResult/trade events back onto the wire. It never touches
// book or engine internals directly.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageType identifies a client request frame.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

// ReportType identifies a server response frame.
type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
)

var (
	ErrInvalidMessageType = errors.New("transport: invalid message type")
	ErrMessageTooShort    = errors.New("transport: message too short")
)

// NewOrderRequest is the decoded wire form of a new-order frame. Quantity
// and Price travel as canonical decimal strings, never binary floats.
type NewOrderRequest struct {
	Symbol    string
	OrderType string
	Side      string
	Quantity  string
	Price     string // empty for market orders
	OrderID   string // empty lets the engine assign one
}

// CancelOrderRequest is the decoded wire form of a cancel frame.
type CancelOrderRequest struct {
	Symbol  string
	OrderID string
}

func readLenPrefixed(buf []byte, offset int) (string, int, error) {
	if offset+2 > len(buf) {
		return "", 0, ErrMessageTooShort
	}
	n := int(binary.BigEndian.Uint16(buf[offset : offset+2]))
	offset += 2
	if offset+n > len(buf) {
		return "", 0, ErrMessageTooShort
	}
	return string(buf[offset : offset+n]), offset + n, nil
}

func appendLenPrefixed(buf []byte, s string) []byte {
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(s)))
	buf = append(buf, lenBuf...)
	return append(buf, s...)
}

var orderTypeCodes = map[byte]string{0: "market", 1: "limit", 2: "ioc", 3: "fok"}
var orderTypeBytes = map[string]byte{"market": 0, "limit": 1, "ioc": 2, "fok": 3}
var sideCodes = map[byte]string{0: "buy", 1: "sell"}
var sideBytes = map[string]byte{"buy": 0, "sell": 1}

// DecodeMessage parses a raw frame into a typed request, or a heartbeat
// with both requests nil.
func DecodeMessage(frame []byte) (MessageType, *NewOrderRequest, *CancelOrderRequest, error) {
	if len(frame) < 2 {
		return 0, nil, nil, ErrMessageTooShort
	}
	typ := MessageType(binary.BigEndian.Uint16(frame[0:2]))
	body := frame[2:]

	switch typ {
	case Heartbeat:
		return Heartbeat, nil, nil, nil
	case NewOrder:
		req, err := decodeNewOrder(body)
		return NewOrder, req, nil, err
	case CancelOrder:
		req, err := decodeCancelOrder(body)
		return CancelOrder, nil, req, err
	default:
		return 0, nil, nil, ErrInvalidMessageType
	}
}

func decodeNewOrder(body []byte) (*NewOrderRequest, error) {
	if len(body) < 2 {
		return nil, ErrMessageTooShort
	}
	typCode, sideCode := body[0], body[1]
	orderType, ok := orderTypeCodes[typCode]
	if !ok {
		return nil, fmt.Errorf("%w: order type %d", ErrInvalidMessageType, typCode)
	}
	side, ok := sideCodes[sideCode]
	if !ok {
		return nil, fmt.Errorf("%w: side %d", ErrInvalidMessageType, sideCode)
	}

	offset := 2
	symbol, offset, err := readLenPrefixed(body, offset)
	if err != nil {
		return nil, err
	}
	qty, offset, err := readLenPrefixed(body, offset)
	if err != nil {
		return nil, err
	}
	price, offset, err := readLenPrefixed(body, offset)
	if err != nil {
		return nil, err
	}
	orderID, _, err := readLenPrefixed(body, offset)
	if err != nil {
		return nil, err
	}

	return &NewOrderRequest{
		Symbol:    symbol,
		OrderType: orderType,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		OrderID:   orderID,
	}, nil
}

func decodeCancelOrder(body []byte) (*CancelOrderRequest, error) {
	symbol, offset, err := readLenPrefixed(body, 0)
	if err != nil {
		return nil, err
	}
	orderID, _, err := readLenPrefixed(body, offset)
	if err != nil {
		return nil, err
	}
	return &CancelOrderRequest{Symbol: symbol, OrderID: orderID}, nil
}

// EncodeNewOrder builds a NewOrder wire frame; used by the CLI client.
func EncodeNewOrder(req NewOrderRequest) ([]byte, error) {
	typCode, ok := orderTypeBytes[req.OrderType]
	if !ok {
		return nil, fmt.Errorf("%w: order type %q", ErrInvalidMessageType, req.OrderType)
	}
	sideCode, ok := sideBytes[req.Side]
	if !ok {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidMessageType, req.Side)
	}

	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(NewOrder))
	buf = append(buf, typCode, sideCode)
	buf = appendLenPrefixed(buf, req.Symbol)
	buf = appendLenPrefixed(buf, req.Quantity)
	buf = appendLenPrefixed(buf, req.Price)
	buf = appendLenPrefixed(buf, req.OrderID)
	return buf, nil
}

// EncodeCancelOrder builds a CancelOrder wire frame; used by the CLI client.
func EncodeCancelOrder(req CancelOrderRequest) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(CancelOrder))
	buf = appendLenPrefixed(buf, req.Symbol)
	buf = appendLenPrefixed(buf, req.OrderID)
	return buf
}

// Report is the wire form of an execution or error report sent back to a
// client.
type Report struct {
	Type         ReportType
	OrderID      string
	Status       string
	Symbol       string
	Price        string
	Quantity     string
	CounterAccnt string
	Err          string
}

// Encode serializes a Report onto the wire.
func (r Report) Encode() []byte {
	buf := make([]byte, 1)
	buf[0] = byte(r.Type)
	buf = appendLenPrefixed(buf, r.OrderID)
	buf = appendLenPrefixed(buf, r.Status)
	buf = appendLenPrefixed(buf, r.Symbol)
	buf = appendLenPrefixed(buf, r.Price)
	buf = appendLenPrefixed(buf, r.Quantity)
	buf = appendLenPrefixed(buf, r.CounterAccnt)
	buf = appendLenPrefixed(buf, r.Err)
	return buf
}

// DecodeReport parses a Report frame; used by the CLI client.
func DecodeReport(frame []byte) (Report, error) {
	if len(frame) < 1 {
		return Report{}, ErrMessageTooShort
	}
	r := Report{Type: ReportType(frame[0])}
	offset := 1
	var err error
	if r.OrderID, offset, err = readLenPrefixed(frame, offset); err != nil {
		return Report{}, err
	}
	if r.Status, offset, err = readLenPrefixed(frame, offset); err != nil {
		return Report{}, err
	}
	if r.Symbol, offset, err = readLenPrefixed(frame, offset); err != nil {
		return Report{}, err
	}
	if r.Price, offset, err = readLenPrefixed(frame, offset); err != nil {
		return Report{}, err
	}
	if r.Quantity, offset, err = readLenPrefixed(frame, offset); err != nil {
		return Report{}, err
	}
	if r.CounterAccnt, offset, err = readLenPrefixed(frame, offset); err != nil {
		return Report{}, err
	}
	if r.Err, _, err = readLenPrefixed(frame, offset); err != nil {
		return Report{}, err
	}
	return r, nil
}
