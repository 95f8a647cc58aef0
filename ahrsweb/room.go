// Package ahrsweb streams attitude snapshots to websocket clients so a
// browser can monitor the fusion pipeline live.
//
// Client-Server structure adapted from Mat Ryer's Go Blueprints examples,
// see https://github.com/matryer/goblueprints
package ahrsweb

import (
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Room struct {
	// forward is a channel that holds incoming messages
	// that should be forwarded to the connected clients.
	forward chan []byte
	// join is a channel for clients wishing to join the room.
	join chan *client
	// leave is a channel for clients wishing to leave the room.
	leave chan *client
	// clients holds all current clients in this room.
	clients map[*client]bool
}

// NewRoom makes a new room that is ready to go.
func NewRoom() *Room {
	return &Room{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
	}
}

// Forward queues a message for delivery to every connected client.
func (r *Room) Forward(msg []byte) {
	r.forward <- msg
}

func (r *Room) Run() {
	for {
		select {
		case client := <-r.join:
			r.clients[client] = true
			log.Debug("ahrsweb: new client joined")
		case client := <-r.leave:
			delete(r.clients, client)
			close(client.send)
			log.Debug("ahrsweb: client left")
		case msg := <-r.forward:
			// forward message to all clients
			for client := range r.clients {
				select {
				case client.send <- msg:
				default:
					log.Debug("ahrsweb: dropped message to slow client")
				}
			}
		}
	}
}

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.WithError(err).Error("ahrsweb: websocket upgrade failed")
		return
	}
	client := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		room:   r,
	}
	r.join <- client
	defer func() { r.leave <- client }()
	go client.write()
	client.read()
}
