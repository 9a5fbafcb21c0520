package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"courier/internal/services"
)

// RecordSize is the fixed on-wire size of one message record. Records stay
// well under PIPE_BUF so concurrent writers never interleave.
const RecordSize = 512

const (
	headerSize = 6
	maxPayload = RecordSize - headerSize
)

// recordMagic marks the start of a well-formed record.
const recordMagic uint32 = 0x434F5552

// Kind identifies the message type.
type Kind string

const (
	KindBackupStart      Kind = "backup-start"
	KindBackupComplete   Kind = "backup-complete"
	KindTransferStart    Kind = "transfer-start"
	KindTransferComplete Kind = "transfer-complete"
	KindError            Kind = "error"
)

// Status summarizes how a reported operation went.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Message is the payload of one record. Sender and SentAt are stamped by
// Send; callers fill the rest.
type Message struct {
	Kind   Kind      `json:"kind"`
	Sender int       `json:"sender"`
	Status Status    `json:"status,omitempty"`
	Note   string    `json:"note,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// Channel is a duplex non-blocking record pipe. It is safe for concurrent
// use; a record fits in one atomic pipe write.
type Channel struct {
	mu     sync.RWMutex
	path   string
	fd     int
	closed bool
}

// Open creates the named pipe at path if needed and opens it read-write and
// non-blocking. Opening read-write keeps a reader attached, so sends never
// fail for want of a peer and reads report an empty pipe instead of EOF.
func Open(path string) (*Channel, error) {
	if err := unix.Mkfifo(path, 0o666); err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, fmt.Errorf("create fifo %s: %w", path, err)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open fifo %s: %w", path, err)
	}
	return &Channel{path: path, fd: fd}, nil
}

// Path returns the pipe location.
func (c *Channel) Path() string {
	return c.path
}

// Send stamps msg with this process identity and writes it as one record.
// A short or failed write, including a full pipe, is a channel write error.
func (c *Channel) Send(msg Message) error {
	msg.Sender = os.Getpid()
	msg.SentAt = time.Now().UTC()

	payload, err := json.Marshal(msg)
	if err != nil {
		return services.Wrap(services.ErrChannelWrite, "ipc", "encode message", string(msg.Kind), err)
	}
	if len(payload) > maxPayload {
		return services.Wrap(services.ErrChannelWrite, "ipc", "encode message", string(msg.Kind),
			fmt.Errorf("payload %d bytes exceeds %d", len(payload), maxPayload))
	}

	record := make([]byte, RecordSize)
	binary.BigEndian.PutUint32(record[0:4], recordMagic)
	binary.BigEndian.PutUint16(record[4:headerSize], uint16(len(payload)))
	copy(record[headerSize:], payload)

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return services.Wrap(services.ErrChannelWrite, "ipc", "write record", string(msg.Kind), os.ErrClosed)
	}

	n, err := writeRetry(c.fd, record)
	if err != nil {
		return services.Wrap(services.ErrChannelWrite, "ipc", "write record", string(msg.Kind), err)
	}
	if n != RecordSize {
		return services.Wrap(services.ErrChannelWrite, "ipc", "write record", string(msg.Kind),
			fmt.Errorf("short write: %d of %d bytes", n, RecordSize))
	}
	return nil
}

// Receive reads one record if available. An empty pipe returns (nil, nil).
// A read that yields anything other than one whole well-formed record is a
// channel framing error.
func (c *Channel) Receive() (*Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, services.Wrap(services.ErrChannelFraming, "ipc", "read record", "", os.ErrClosed)
	}

	buf := make([]byte, RecordSize)
	n, err := readRetry(c.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrChannelFraming, "ipc", "read record", "", err)
	}
	if n == 0 {
		return nil, nil
	}
	if n != RecordSize {
		return nil, services.Wrap(services.ErrChannelFraming, "ipc", "read record", "",
			fmt.Errorf("partial record: %d of %d bytes", n, RecordSize))
	}
	if magic := binary.BigEndian.Uint32(buf[0:4]); magic != recordMagic {
		return nil, services.Wrap(services.ErrChannelFraming, "ipc", "read record", "",
			fmt.Errorf("bad record magic 0x%08X", magic))
	}
	length := int(binary.BigEndian.Uint16(buf[4:headerSize]))
	if length > maxPayload {
		return nil, services.Wrap(services.ErrChannelFraming, "ipc", "read record", "",
			fmt.Errorf("payload length %d exceeds %d", length, maxPayload))
	}

	var msg Message
	if err := json.Unmarshal(buf[headerSize:headerSize+length], &msg); err != nil {
		return nil, services.Wrap(services.ErrChannelFraming, "ipc", "decode message", "", err)
	}
	return &msg, nil
}

// Close closes the pipe descriptor. The pipe itself stays on disk until
// Remove.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

// Remove deletes the pipe from the filesystem.
func (c *Channel) Remove() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func writeRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Write(fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

func readRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}
