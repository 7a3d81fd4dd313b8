package server

import (
	"context"
	"net"
	"time"

	"github.com/Tyrowin/linechat/internal/chat"
	"github.com/Tyrowin/linechat/internal/transport"
)

// ChatService serves chat sessions over newline-delimited TCP streams.
type ChatService struct {
	handler       *chat.Handler
	maxLineLength int
	writeTimeout  time.Duration
}

var _ Connection = (*ChatService)(nil)

// NewChatService frames streams with the line limit and write timeout of cfg.
func NewChatService(handler *chat.Handler, cfg Config) *ChatService {
	return &ChatService{
		handler:       handler,
		maxLineLength: cfg.MaxLineLength,
		writeTimeout:  cfg.WriteTimeout,
	}
}

// Name identifies the chat service in logs.
func (s *ChatService) Name() string {
	return "ChatServer"
}

// Handle runs one chat session on conn until it ends or ctx is cancelled.
func (s *ChatService) Handle(ctx context.Context, conn net.Conn) error {
	return s.handler.Serve(ctx, transport.NewStreamConn(conn, s.maxLineLength, s.writeTimeout))
}
