// Command basicd is an optional network host: it exposes one BASIC
// session per WebSocket connection, the way the teacher's terminal
// package serves its console over a gorilla/websocket connection
// (antibyte-retroterm/pkg/terminal/websocket.go), trimmed to plain text
// in, text out instead of the teacher's typed shared.Message envelope.
package main

import (
	"bytes"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/retroterm/corebasic/basic"
	"github.com/retroterm/corebasic/corelog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// wsStream adapts a websocket.Conn to io.Writer (each Write becomes one
// text frame) and io.Reader (each Read blocks for the next text frame).
type wsStream struct {
	conn    *websocket.Conn
	pending bytes.Buffer
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Read(p []byte) (int, error) {
	for s.pending.Len() == 0 {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		s.pending.Write(msg)
		s.pending.WriteByte('\n')
	}
	return s.pending.Read(p)
}

func handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	stream := &wsStream{conn: conn}
	env := basic.New(nil, stream, stream)
	log.Printf("session %s connected", env.SessionID)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("session %s closed: %v", env.SessionID, err)
			return
		}

		exit, err := env.Dispatch(string(msg), stream)
		if err != nil {
			stream.Write([]byte(err.Error() + "\n"))
		}
		if exit {
			return
		}
	}
}

func main() {
	addr := flag.String("addr", ":8765", "listen address")
	debug := flag.Bool("debug", false, "enable corelog debug output on stderr")
	flag.Parse()
	corelog.SetEnabled(*debug)

	http.HandleFunc("/basic", handleSession)
	log.Printf("basicd listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
