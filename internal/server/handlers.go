// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the connection, creates a session for it, and
// hands the client to the hub, which launches the pump goroutines.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := manager.Create()
	client := NewClient(conn, hub, session, r.RemoteAddr)
	hub.Register() <- client
}

// HealthHandler provides a simple health check endpoint.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "CityChat server is running!")
}

// TestPageHandler serves an HTML page for exercising the relay by hand:
// connect, share a location (or type coordinates), and chat with everyone
// resolved to the same city.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>CityChat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 220px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>CityChat Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
        <button id="locateButton" onclick="shareLocation()" disabled>Share location</button>
        <input type="text" id="latInput" placeholder="latitude">
        <input type="text" id="lonInput" placeholder="longitude">
        <button id="joinButton" onclick="joinRoom()" disabled>Join room</button>
    </div>

    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');

        function addMessage(text, color) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = color || 'gray';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            const statusDiv = document.getElementById('status');
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            document.getElementById('locateButton').disabled = !connected;
            document.getElementById('joinButton').disabled = !connected;
            document.getElementById('connectButton').textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = function() { addMessage('Connected to CityChat'); updateStatus(true); };
            ws.onclose = function() { addMessage('Connection closed'); updateStatus(false); ws = null; };
            ws.onmessage = function(event) {
                const evt = JSON.parse(event.data);
                switch (evt.type) {
                case 'joined_room':
                    addMessage('Joined room: ' + evt.data.room, 'blue');
                    messageInput.disabled = false;
                    document.getElementById('sendButton').disabled = false;
                    break;
                case 'user_count_update':
                    addMessage('Users in room: ' + evt.data.count, 'blue');
                    break;
                case 'receive_message':
                    addMessage(evt.data.timestamp + ' ' + evt.data.text, 'green');
                    break;
                case 'error':
                    addMessage('Error: ' + evt.data.message, 'red');
                    break;
                }
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) { ws.close(); } else { connect(); }
        }

        function join(lat, lon) {
            ws.send(JSON.stringify({type: 'join_room', data: {latitude: lat, longitude: lon}}));
        }

        function shareLocation() {
            navigator.geolocation.getCurrentPosition(function(pos) {
                join(pos.coords.latitude, pos.coords.longitude);
            }, function() { addMessage('Geolocation denied', 'red'); });
        }

        function joinRoom() {
            join(parseFloat(document.getElementById('latInput').value),
                 parseFloat(document.getElementById('lonInput').value));
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: 'send_message', data: {text: text}}));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Warn("writing test page response", "error", err)
	}
}
