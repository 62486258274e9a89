package view

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dshills/pdevs/devs"
)

// wsSample is the JSON frame broadcast to every connected client.
type wsSample struct {
	Time   devs.Time `json:"t"`
	Source string    `json:"source"`
	Port   string    `json:"port"`
	Tag    string    `json:"tag"`
	Data   any       `json:"data"`
}

// WSSink broadcasts observation samples to every connected WebSocket client
// over a single HTTP endpoint, grounded on the broadcast-fan-out shape of
// the teacher's pack's fastview.ViewBuilder (niceyeti-tabular), using
// channerics.OrDone to let subscriber departure and sink shutdown both
// unblock the fan-out loop.
type WSSink struct {
	addr string
	path string

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	samples chan wsSample
	done    chan struct{}

	server   *http.Server
	listener net.Listener
	group    *errgroup.Group
	closed   bool
}

type wsClient struct {
	conn *websocket.Conn
	out  chan wsSample
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewWSSink returns a sink that serves a WebSocket endpoint at path on addr
// (e.g. ":8089"), broadcasting every WriteRow call to all subscribers.
func NewWSSink(addr, path string) *WSSink {
	return &WSSink{
		addr:    addr,
		path:    path,
		clients: make(map[*wsClient]struct{}),
		samples: make(chan wsSample, 256),
		done:    make(chan struct{}),
	}
}

func (w *WSSink) Open(map[string]any) error {
	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("devs/view: listen %s: %w", w.addr, err)
	}
	w.listener = ln

	router := mux.NewRouter()
	router.HandleFunc(w.path, w.handleWS)
	w.server = &http.Server{Handler: router}

	g, ctx := errgroup.WithContext(context.Background())
	w.group = g
	g.Go(func() error {
		err := w.server.Serve(ln)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		w.broadcastLoop(ctx)
		return nil
	})
	return nil
}

func (w *WSSink) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn, out: make(chan wsSample, 64)}

	w.mu.Lock()
	w.clients[client] = struct{}{}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.clients, client)
		w.mu.Unlock()
		_ = conn.Close()
	}()

	for sample := range channerics.OrDone[wsSample](w.done, client.out) {
		if err := conn.WriteJSON(sample); err != nil {
			return
		}
	}
}

// broadcastLoop drains w.samples and fans each one out to every connected
// client, stopping when w.done closes; ctx is checked after each sample, so
// a cancelled ctx stops the loop once the next sample has been fanned out.
func (w *WSSink) broadcastLoop(ctx context.Context) {
	for sample := range channerics.OrDone[wsSample](w.done, w.samples) {
		w.mu.Lock()
		for client := range w.clients {
			select {
			case client.out <- sample:
			default:
				// slow subscriber, drop the sample rather than block the sink
			}
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (w *WSSink) WriteRow(t devs.Time, source, port string, value devs.Value) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("devs/view: wssink on %s is closed", w.addr)
	}
	w.mu.Unlock()

	sample := wsSample{Time: t, Source: source, Port: port, Tag: value.Tag, Data: value.Data}
	select {
	case w.samples <- sample:
	default:
		return fmt.Errorf("devs/view: wssink on %s: broadcast queue full", w.addr)
	}
	return nil
}

func (w *WSSink) Flush() error { return nil }

func (w *WSSink) Close() (devs.FinalArtifact, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return w.addr, nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	if w.server != nil {
		_ = w.server.Shutdown(context.Background())
	}
	var err error
	if w.group != nil {
		err = w.group.Wait()
	}
	return w.addr, err
}
