package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sunaba.world/internal/protocol"
	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/world"
)

// Server accepts observer/editor connections. Clients complete a
// HELLO/WELCOME handshake, then receive CHUNKS frames as the world
// changes and may submit ACT frames with edit ops. Edits are forwarded
// to the loop's queues and applied at tick boundaries, so the server
// never touches world state directly.
type Server struct {
	loop   *world.Loop
	mats   *material.Registry
	params protocol.WorldParams
	log    *log.Logger

	upgrader websocket.Upgrader

	// OnEdit, when set, observes every accepted edit op. Used for the
	// edit audit log.
	OnEdit func(client string, op protocol.EditOp)

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	name string
	out  chan []byte
}

func NewServer(loop *world.Loop, mats *material.Registry, params protocol.WorldParams, logger *log.Logger) *Server {
	return &Server{
		loop:   loop,
		mats:   mats,
		params: params,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: make(map[*client]struct{}),
	}
}

// Broadcast queues a frame for every connected client. Slow clients
// drop their oldest pending frame rather than stalling the caller.
func (s *Server) Broadcast(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
			select {
			case <-c.out:
			default:
			}
			select {
			case c.out <- b:
			default:
			}
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		name, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.log.Printf("client %q connected from %s", name, conn.RemoteAddr())

		c := &client{conn: conn, name: name, out: make(chan []byte, 32)}
		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for b := range c.out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		s.readLoop(conn, c)

		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		close(c.out)
		<-done
		s.log.Printf("client %q disconnected", name)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}
	if hello.ClientName == "" {
		hello.ClientName = "observer"
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldParams:     s.params,
		Materials: protocol.PaletteRef{
			Digest:  s.mats.PaletteDigest(),
			Count:   s.mats.Len(),
			Palette: s.mats.Palette(),
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return hello.ClientName, true
}

func (s *Server) readLoop(conn *websocket.Conn, c *client) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			s.sendError(c, protocol.ErrProtoBadRequest, "malformed frame")
			continue
		}
		if base.Type != protocol.TypeAct {
			continue
		}
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil {
			s.sendError(c, protocol.ErrProtoBadRequest, "malformed ACT")
			continue
		}
		if act.ProtocolVersion != protocol.Version {
			s.sendError(c, protocol.ErrProtoBadRequest, "bad protocol_version")
			continue
		}
		for _, op := range act.Ops {
			s.applyOp(c, op)
		}
	}
}

func (s *Server) applyOp(c *client, op protocol.EditOp) {
	switch op.Op {
	case "set_pixel":
		id, ok := s.mats.ByName(op.Material)
		if !ok {
			s.sendError(c, protocol.ErrBadMaterial, "unknown material "+op.Material)
			return
		}
		s.loop.Edits() <- world.Edit{X: op.X, Y: op.Y, Material: id}
		if s.OnEdit != nil {
			s.OnEdit(c.name, op)
		}
	case "add_heat":
		s.loop.Heat() <- world.HeatEdit{X: op.X, Y: op.Y, Amount: op.Amount}
		if s.OnEdit != nil {
			s.OnEdit(c.name, op)
		}
	default:
		s.sendError(c, protocol.ErrBadOp, "unknown op "+op.Op)
	}
}

// sendError queues an error frame on the client's own writer; the connection
// has a single writing goroutine, so nothing writes to it directly here.
func (s *Server) sendError(c *client, code, msg string) {
	b, err := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: msg})
	if err != nil {
		return
	}
	select {
	case c.out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
