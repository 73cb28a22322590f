package app

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"

	"github.com/relabs-tech/sign_glove/internal/config"
	"github.com/relabs-tech/sign_glove/internal/orientation"
)

//go:embed static
var staticFiles embed.FS

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64

	serviceType   = "_signglove._tcp"
	serviceDomain = "local."
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// relay keeps the newest records from MQTT and fans them out to websocket
// clients.
type relay struct {
	mu       sync.RWMutex
	latest   json.RawMessage
	pose     orientation.Pose
	havePose bool

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newRelay() *relay {
	return &relay{clients: make(map[*wsClient]struct{})}
}

// ingest records one payload from the record topic.
func (rl *relay) ingest(payload []byte) {
	r, kind, err := decodeRecord(payload)
	if err != nil {
		log.Printf("web: %v", err)
		return
	}

	msg := append([]byte(nil), payload...)
	rl.mu.Lock()
	rl.latest = msg
	if kind == kindGesture {
		rl.pose = orientation.ComputePoseFromAccel(r.Ax, r.Ay, r.Az)
		rl.havePose = true
	}
	rl.mu.Unlock()

	rl.broadcast(msg)
}

func (rl *relay) broadcast(msg []byte) {
	rl.clientsMu.Lock()
	defer rl.clientsMu.Unlock()
	for c := range rl.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; it catches up with the next record.
		}
	}
}

func (rl *relay) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		rl.mu.RLock()
		latest := rl.latest
		rl.mu.RUnlock()

		if latest == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(latest)
	})

	mux.HandleFunc("/api/orientation", func(w http.ResponseWriter, r *http.Request) {
		rl.mu.RLock()
		defer rl.mu.RUnlock()

		if !rl.havePose {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rl.pose); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws", rl.serveWS)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

func (rl *relay) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, sendBufferSize)}

	rl.clientsMu.Lock()
	rl.clients[c] = struct{}{}
	n := len(rl.clients)
	rl.clientsMu.Unlock()
	log.Printf("web: websocket client %s connected (%d total)", r.RemoteAddr, n)

	go rl.writePump(c)
	rl.readPump(c)
}

// readPump only watches for the peer going away.
func (rl *relay) readPump(c *wsClient) {
	defer func() {
		rl.clientsMu.Lock()
		delete(rl.clients, c)
		rl.clientsMu.Unlock()
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket read: %v", err)
			}
			return
		}
	}
}

func (rl *relay) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RunWeb serves the dashboard and relays the record topic until ctx is done.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("web: MQTT_BROKER is not set")
	}
	rl := newRelay()

	client := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, func(c mqtt.Client) {
		token := c.Subscribe(cfg.TopicRecords, 0, func(_ mqtt.Client, msg mqtt.Message) {
			rl.ingest(msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			log.Printf("web: subscribe %s: %v", cfg.TopicRecords, token.Error())
			return
		}
		log.Printf("web: subscribed to MQTT topic %s", cfg.TopicRecords)
	})
	defer client.Disconnect(250)

	if cfg.WebAdvertise {
		host, _ := os.Hostname()
		server, err := zeroconf.Register(host+"-glove", serviceType, serviceDomain, cfg.WebServerPort,
			[]string{"path=/", "api=/api/latest"}, nil)
		if err != nil {
			log.Printf("web: mDNS advertisement failed: %v", err)
		} else {
			log.Printf("web: advertising %s on %s", serviceType, serviceDomain)
			defer server.Shutdown()
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: rl.handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
