package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection and blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, inbound InboundFunc) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Send: make(chan []byte, 256), inbound: inbound}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
