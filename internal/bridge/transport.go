package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// HTTPPoster posts each message to a host endpoint.
type HTTPPoster struct {
	Endpoint string
	Token    string
	Client   *http.Client
	OnReply  func(Reply)
}

func (p *HTTPPoster) Post(ctx context.Context, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("post %s: status %d", msg.Action, resp.StatusCode)
	}
	var reply Reply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMessageLength)).Decode(&reply); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if p.OnReply != nil {
		p.OnReply(reply)
	}
	return nil
}

const wsWriteWait = 10 * time.Second

// WSPoster writes each message as a text frame on one websocket connection
// and reads the host's reply to it.
type WSPoster struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	OnReply func(Reply)
}

// DialWS connects to a host websocket endpoint.
func DialWS(ctx context.Context, url string, header http.Header) (*WSPoster, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &WSPoster{conn: conn}, nil
}

func (p *WSPoster) Post(ctx context.Context, msg Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	deadline := time.Now().Add(wsWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = p.conn.SetWriteDeadline(deadline)
	if err := p.conn.WriteJSON(msg); err != nil {
		return err
	}
	_ = p.conn.SetReadDeadline(deadline)
	var reply Reply
	if err := p.conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if p.OnReply != nil {
		p.OnReply(reply)
	}
	return nil
}

func (p *WSPoster) Close() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(time.Second),
	)
	return p.conn.Close()
}
