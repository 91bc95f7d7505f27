package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/avolkov/directline/internal/proto"
)

// Minimal interactive DM client: every stdin line is sent to -to.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "bearer token from /api/auth/login")
	to := flag.String("to", "", "recipient user ID")
	flag.Parse()

	if *token == "" || *to == "" {
		return fmt.Errorf("-token and -to are required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+*token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	go func() {
		for {
			var outbound struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			}
			if err := wsjson.Read(ctx, conn, &outbound); err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Printf("read: %v", err)
				}
				cancel()
				return
			}

			switch outbound.Type {
			case proto.OutboundTypeMessageReceive:
				var msg proto.MessagePayload
				if err := json.Unmarshal(outbound.Data, &msg); err == nil {
					fmt.Printf("[%s] %s\n", msg.From.Username, msg.Content)
				}
			case proto.OutboundTypeUserOnline, proto.OutboundTypeUserOffline:
				var p proto.PresencePayload
				if err := json.Unmarshal(outbound.Data, &p); err == nil {
					fmt.Printf("* %s is now %s\n", p.Username, strings.TrimPrefix(outbound.Type, "user:"))
				}
			case proto.OutboundTypeMessageError:
				fmt.Printf("! %s\n", outbound.Data)
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		payload, err := json.Marshal(proto.SendData{To: *to, Content: text})
		if err != nil {
			return fmt.Errorf("marshal send: %w", err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessageSend, Data: payload}); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}

	return scanner.Err()
}
