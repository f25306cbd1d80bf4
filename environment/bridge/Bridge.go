// Package bridge implements an environment backed by a bot running
// inside the game. The bot connects to the bridge over a websocket,
// and the bridge then drives it one command at a time: each reset or
// action command is answered by the bot with the resulting observation.
//
// Commands sent to the bot are JSON objects
//
//	{"type": "reset"}
//	{"type": "act", "action": 3}
//
// and each is answered with
//
//	{"observation": [x, y, status], "reward": -1.0, "done": false}
//
// The observation may be empty when the game is between matches.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/op/go-logging"

	"github.com/samuelfneumann/dotarl/environment"
	ts "github.com/samuelfneumann/dotarl/timestep"
)

var log = logging.MustGetLogger("dotarl.bridge")

const (
	writeWait      = 5 * time.Second
	pingPeriod     = 20 * time.Second
	maxMessageSize = 1 << 16
)

// ErrClosed is returned when the bridge is used after it was closed
var ErrClosed = errors.New("bridge closed")

// Config describes a Bridge
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ObservationSize int           `mapstructure:"observation_size" yaml:"observation_size"`
	NumActions      int           `mapstructure:"num_actions" yaml:"num_actions"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	StepTimeout     time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`

	// Episodes are cut off after EpisodeSteps steps if positive
	EpisodeSteps int `mapstructure:"episode_steps" yaml:"episode_steps"`
}

// DefaultConfig returns the default Bridge configuration
func DefaultConfig() Config {
	return Config{
		Addr:            ":8086",
		ObservationSize: 3,
		NumActions:      16,
		ConnectTimeout:  5 * time.Minute,
		StepTimeout:     30 * time.Second,
	}
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	if c.ObservationSize < 1 || c.NumActions < 1 {
		return fmt.Errorf("validate: need positive observation size and "+
			"number of actions, have %v and %v", c.ObservationSize,
			c.NumActions)
	}
	if c.ConnectTimeout <= 0 || c.StepTimeout <= 0 {
		return fmt.Errorf("validate: timeouts must be positive")
	}
	return nil
}

type command struct {
	Type   string `json:"type"`
	Action *int   `json:"action,omitempty"`
}

type reply struct {
	Observation []float64 `json:"observation"`
	Reward      float64   `json:"reward"`
	Done        bool      `json:"done"`
}

// Bridge is an environment.Closer driving a bot in the game
type Bridge struct {
	config Config
	router *mux.Router
	ender  environment.Ender

	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	closed   chan struct{}
	once     sync.Once

	mu       sync.Mutex
	conn     *websocket.Conn
	connDone chan struct{} // Closed when conn is dropped

	// Only used by the goroutine stepping the environment
	step    ts.TimeStep
	started bool
}

// New returns a new Bridge. The Bridge does not listen for bots until
// it is served with ListenAndServe or through Handler.
func New(c Config) (*Bridge, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	b := &Bridge{
		config: c,
		conns:  make(chan *websocket.Conn, 1),
		closed: make(chan struct{}),
	}
	if c.EpisodeSteps > 0 {
		b.ender = environment.NewStepLimit(c.EpisodeSteps)
	}

	b.router = mux.NewRouter()
	b.router.HandleFunc("/bot", b.serveBot)
	b.router.HandleFunc("/healthz", b.serveHealth).Methods(http.MethodGet)
	return b, nil
}

// Handler returns the HTTP handler bots connect to
func (b *Bridge) Handler() http.Handler {
	return b.router
}

// ListenAndServe serves the bridge on the configured address until ctx
// is cancelled
func (b *Bridge) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", b.config.Addr)
	if err != nil {
		return fmt.Errorf("listenAndServe: %w", err)
	}
	server := &http.Server{Handler: b.router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			writeWait)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infof("waiting for bot on %v", listener.Addr())
	if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listenAndServe: %w", err)
	}
	return nil
}

// serveBot upgrades a bot connection to a websocket. Only one bot can
// wait to be used at a time.
func (b *Bridge) serveBot(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("could not upgrade bot connection: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	select {
	case b.conns <- conn:
		log.Infof("bot connected from %v", r.RemoteAddr)
	default:
		log.Warningf("rejecting bot from %v, another bot is waiting",
			r.RemoteAddr)
		closeConn(conn, websocket.CloseTryAgainLater, "bot already waiting")
	}
}

func (b *Bridge) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

// Reset resets the game and returns the first step of a new episode
func (b *Bridge) Reset() (ts.TimeStep, error) {
	r, err := b.send(command{Type: "reset"})
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	b.step = ts.New(ts.First, 0, r.Observation, 0)
	b.started = true
	return b.step, nil
}

// Execute takes action in the game
func (b *Bridge) Execute(action int) (ts.TimeStep, error) {
	if !b.started {
		return ts.TimeStep{}, fmt.Errorf("execute: environment must be " +
			"reset before executing actions")
	}
	if b.step.Last() {
		return ts.TimeStep{}, fmt.Errorf("execute: episode is over")
	}
	if action < 0 || action >= b.config.NumActions {
		return ts.TimeStep{}, fmt.Errorf("execute: illegal action %v", action)
	}

	r, err := b.send(command{Type: "act", Action: &action})
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("execute: %w", err)
	}

	stepType := ts.Mid
	if r.Done {
		stepType = ts.Last
	}
	step := ts.New(stepType, r.Reward, r.Observation, b.step.Number+1)
	if b.ender != nil {
		b.ender.End(&step)
	}

	b.step = step
	return step, nil
}

// send sends a command to the bot and waits for its reply, waiting for
// a bot to connect first if needed. The connection is dropped on any
// error, since errors on websocket reads are permanent.
func (b *Bridge) send(c command) (reply, error) {
	conn, err := b.connection()
	if err != nil {
		return reply{}, err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(c); err != nil {
		b.drop()
		return reply{}, fmt.Errorf("could not send %v command: %w", c.Type,
			err)
	}

	var r reply
	_ = conn.SetReadDeadline(time.Now().Add(b.config.StepTimeout))
	if err := conn.ReadJSON(&r); err != nil {
		b.drop()
		return reply{}, fmt.Errorf("could not read reply to %v command: %w",
			c.Type, err)
	}

	if len(r.Observation) != 0 && len(r.Observation) != b.config.ObservationSize {
		return reply{}, fmt.Errorf("bot sent observation of size %v, want %v",
			len(r.Observation), b.config.ObservationSize)
	}
	return r, nil
}

// connection returns the connected bot, waiting for one to connect if
// needed
func (b *Bridge) connection() (*websocket.Conn, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	timer := time.NewTimer(b.config.ConnectTimeout)
	defer timer.Stop()
	select {
	case conn := <-b.conns:
		b.mu.Lock()
		defer b.mu.Unlock()
		b.conn = conn
		b.connDone = make(chan struct{})
		go keepAlive(conn, b.connDone)
		return conn, nil
	case <-b.closed:
		return nil, ErrClosed
	case <-timer.C:
		return nil, fmt.Errorf("no bot connected within %v",
			b.config.ConnectTimeout)
	}
}

func (b *Bridge) drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		close(b.connDone)
		b.conn.Close()
		b.conn = nil
	}
}

// keepAlive pings conn until done is closed, so that a bot left idle
// while the agent learns is not disconnected
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	pinger := channerics.NewTicker(done, pingPeriod)
	for {
		select {
		case <-done:
			return
		case _, ok := <-pinger:
			if !ok {
				return
			}
			err := conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(writeWait))
			if err != nil {
				log.Debugf("could not ping bot: %v", err)
				return
			}
		}
	}
}

// Close disconnects the bot. Close may be called concurrently with
// Reset and Execute to abort them.
func (b *Bridge) Close() error {
	b.once.Do(func() {
		close(b.closed)

		b.mu.Lock()
		if b.conn != nil {
			close(b.connDone)
			closeConn(b.conn, websocket.CloseNormalClosure, "")
			b.conn = nil
		}
		b.mu.Unlock()

		select {
		case conn := <-b.conns:
			closeConn(conn, websocket.CloseNormalClosure, "")
		default:
		}
	})
	return nil
}

// ObservationSpec returns the observation specification of the
// environment
func (b *Bridge) ObservationSpec() environment.Spec {
	return environment.NewSpec(b.config.ObservationSize,
		environment.Observation, environment.Continuous)
}

// ActionSpec returns the action specification of the environment
func (b *Bridge) ActionSpec() environment.Spec {
	return environment.NewSpec(b.config.NumActions, environment.Action,
		environment.Discrete)
}

func closeConn(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	conn.Close()
}
