package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/avolkov/directline/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "bearer token from /api/auth/login")
	to := flag.String("to", "", "recipient user ID")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+*token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	// First frame after connect is the online roster.
	var roster proto.Outbound
	if err := wsjson.Read(ctx, conn, &roster); err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	fmt.Printf("connected, got %s\n", roster.Type)

	if *to == "" {
		return nil
	}

	payload, err := json.Marshal(proto.SendData{To: *to, Content: *text})
	if err != nil {
		return fmt.Errorf("marshal send: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessageSend, Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		var outbound struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		switch outbound.Type {
		case proto.OutboundTypeMessageSent:
			fmt.Printf("acknowledged: %s\n", outbound.Data)
			return nil
		case proto.OutboundTypeMessageError:
			return fmt.Errorf("send failed: %s", outbound.Data)
		default:
			// presence chatter, keep waiting for the ack
		}
	}
}
