package server

import (
	"fmt"
	"net/http"
)

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "linechat server is running!")
}

// TestPageHandler serves a browser client for the websocket gateway. Every
// frame received is shown as one chat line.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>linechat WebSocket Test</title>
    <style>
        body { font-family: monospace; margin: 20px; }
        #lines {
            border: 1px solid #ccc;
            height: 360px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            white-space: pre-wrap;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 360px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>linechat WebSocket Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="lineInput" placeholder="Type a line or /help" disabled>
        <button id="sendButton" onclick="sendLine()" disabled>Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>

    <div id="lines"></div>

    <script>
        let ws = null;
        const linesDiv = document.getElementById('lines');
        const lineInput = document.getElementById('lineInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text) {
            const el = document.createElement('div');
            el.textContent = text;
            linesDiv.appendChild(el);
            linesDiv.scrollTop = linesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            lineInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() { updateStatus(true); };
            ws.onmessage = function(event) { addLine(event.data); };
            ws.onclose = function() {
                addLine('-- connection closed --');
                updateStatus(false);
                ws = null;
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendLine() {
            const line = lineInput.value;
            if (line && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(line);
                lineInput.value = '';
            }
        }

        lineInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendLine();
            }
        });
    </script>
</body>
</html>`
