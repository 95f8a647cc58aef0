package ahrsweb

import (
	"github.com/gorilla/websocket"
)

// client represents a single connected websocket viewer.
type client struct {
	// socket is the websocket for this client.
	socket *websocket.Conn
	// send is a channel on which messages are queued for this client.
	send chan []byte
	// room is the room this client is in.
	room *Room
}

func (c *client) read() {
	defer c.socket.Close()
	for {
		// Viewers don't send anything meaningful; reading just detects
		// disconnects.
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
