package jobs

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"dla-grow/internal/sims/dla"
)

// Message types exchanged as JSON text frames.
const (
	TypeHello  = "HELLO"
	TypeJob    = "JOB"
	TypeIdle   = "IDLE"
	TypeResult = "RESULT"
)

// Message is the single envelope of the job protocol. A worker opens with
// HELLO; the server answers JOB or IDLE; the worker returns RESULT carrying
// either an encoded results.Result payload or an error string.
type Message struct {
	Type    string      `json:"type"`
	Worker  string      `json:"worker,omitempty"`
	JobID   string      `json:"job_id,omitempty"`
	Config  *dla.Config `json:"config,omitempty"`
	Payload []byte      `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

const writeWait = 30 * time.Second

func writeJSON(conn *websocket.Conn, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func readJSON(conn *websocket.Conn) (Message, error) {
	var m Message
	_, b, err := conn.ReadMessage()
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}
