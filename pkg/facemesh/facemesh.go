package facemesh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"OcularBiomarker/pkg/landmark"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrInvalidImage = errors.New("landmark provider could not decode the image")
	ErrUnavailable  = errors.New("landmark provider unavailable")
)

const DefaultURL = "ws://localhost:8000/api/v1/facemesh/ws"

type Face struct {
	Landmarks []landmark.Point `json:"landmarks"`
}

// Detection is the provider's answer for one frame. No faces means no face
// was found, which is not an error.
type Detection struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Faces  []Face `json:"faces"`
	Error  string `json:"error,omitempty"`
}

// First returns the mesh of the first detected face.
func (d *Detection) First() ([]landmark.Point, bool) {
	if d == nil || len(d.Faces) == 0 {
		return nil, false
	}
	return d.Faces[0].Landmarks, true
}

type ILandmarkProvider interface {
	Detect(ctx context.Context, image []byte) (*Detection, error)
	IsConnected() bool
	Close()
}

type Options struct {
	URL              string
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration
}

func (o *Options) defaults() {
	if o.URL == "" {
		o.URL = DefaultURL
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
}

// webSocketClient keeps a single connection to the face-mesh service. The
// mutex guards conn and also serialises request/response roundtrips, since
// the protocol has no request ids.
type webSocketClient struct {
	opts   Options
	log    *logrus.Logger
	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

func New(opts Options, logger *logrus.Logger) ILandmarkProvider {
	opts.defaults()

	c := &webSocketClient{
		opts: opts,
		log:  logger,
		done: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.connectInBackground()

	return c
}

func (c *webSocketClient) connectInBackground() {
	defer c.wg.Done()

	c.mu.Lock()
	err := c.connectLocked(context.Background())
	c.mu.Unlock()

	if err != nil {
		c.log.WithFields(logrus.Fields{"url": c.opts.URL, "error": err.Error()}).
			Warn("Initial connection to face mesh service failed, will retry on demand")
		return
	}
	c.log.WithField("url", c.opts.URL).Info("Connected to face mesh service")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// connectLocked dials a fresh connection. The caller holds c.mu.
func (c *webSocketClient) connectLocked(ctx context.Context) error {
	if c.closed {
		return fmt.Errorf("%w: client closed", ErrUnavailable)
	}
	if c.conn != nil {
		return nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = c.opts.HandshakeTimeout

	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %v", ErrUnavailable, c.opts.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.opts.WriteTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Debug("Error sending pong")
		}
		return nil
	})

	c.conn = conn

	c.wg.Add(1)
	go c.keepAlive(conn)

	return nil
}

// dropLocked closes conn if it is still the current connection.
func (c *webSocketClient) dropLocked(conn *websocket.Conn) {
	if c.conn == conn {
		c.conn = nil
	}
	_ = conn.Close()
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.opts.WriteTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("Ping to face mesh service failed, marking connection as dead")
			c.dropLocked(conn)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// Detect sends one encoded image as a binary frame and waits for the
// landmark answer. Deadlines come from ctx when it has one, otherwise from
// the configured timeouts.
func (c *webSocketClient) Detect(ctx context.Context, image []byte) (*Detection, error) {
	if len(image) == 0 {
		return nil, ErrInvalidImage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	conn := c.conn

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
		_ = conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	_ = conn.SetWriteDeadline(deadline(ctx, c.opts.WriteTimeout))
	c.log.WithField("bytes", len(image)).Debug("Sending frame to face mesh service")
	if err := conn.WriteMessage(websocket.BinaryMessage, image); err != nil {
		c.dropLocked(conn)
		return nil, c.wrap(ctx, "error sending frame", err)
	}

	_ = conn.SetReadDeadline(deadline(ctx, c.opts.ReadTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked(conn)
		return nil, c.wrap(ctx, "error reading landmarks", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	var result Detection
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling landmarks: %v", ErrUnavailable, err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidImage, result.Error)
	}

	c.log.WithField("faces", len(result.Faces)).Debug("Received landmarks from face mesh service")
	return &result, nil
}

func (c *webSocketClient) wrap(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", msg, ctxErr)
	}
	// the socket deadline can fire just before ctx notices its own
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return fmt.Errorf("%s: %w", msg, context.DeadlineExceeded)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, msg, err)
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *webSocketClient) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	if c.conn != nil {
		c.dropLocked(c.conn)
	}
	c.mu.Unlock()

	c.wg.Wait()
}
