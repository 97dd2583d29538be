package network

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Packet is one framed message: 2-byte message id, 2-byte payload length,
// JSON payload.
type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

// ErrMalformedFrame is returned for frames whose declared payload length
// does not match the bytes actually received.
var ErrMalformedFrame = errors.New("malformed frame")

type Connection interface {
	Send(msgID uint16, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadPacket() (*Packet, error)
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

func (c *WSConnection) Send(msgID uint16, data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

// ParsePacket decodes one framed message. The declared length must match
// the payload exactly: trailing or missing bytes mean a broken or hostile
// client and fail the whole read.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < 4 {
		return nil, ErrMalformedFrame
	}

	msgID := binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])

	if int(length) != len(data)-4 {
		return nil, ErrMalformedFrame
	}

	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   data[4:],
	}, nil
}

// ReadPacket blocks for the next frame. With a heartbeat interval set, each
// received frame pushes the read deadline out by twice the interval, so a
// connection that stops talking times out instead of lingering.
func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return ParsePacket(data)
}

func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
