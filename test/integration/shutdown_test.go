package integration

import (
	"testing"
	"time"

	"github.com/Tyrowin/linechat/internal/chat"
	"github.com/Tyrowin/linechat/test/testhelpers"
)

func TestGracefulShutdownWithClients(t *testing.T) {
	env := testhelpers.StartChat(t, nil)

	clients := []*testhelpers.Client{
		testhelpers.DialTCP(t, env.TCPAddr).Join(),
		testhelpers.DialTCP(t, env.TCPAddr).Join(),
		testhelpers.DialWebSocket(t, env.WSURL).Join(),
	}

	if err := env.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for _, c := range clients {
		c.Expect(chat.ShutdownNotice)
		c.ExpectClosed()
	}

	if env.Names.Len() != 0 || env.Rooms.Len() != 0 {
		t.Errorf("registries not empty after shutdown: names=%d rooms=%d", env.Names.Len(), env.Rooms.Len())
	}
}

func TestNoClientsShutdown(t *testing.T) {
	env := testhelpers.StartChat(t, nil)

	start := time.Now()
	if err := env.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown with no clients took %v", elapsed)
	}
}

func TestConcurrentShutdown(t *testing.T) {
	env := testhelpers.StartChat(t, nil)
	testhelpers.DialTCP(t, env.TCPAddr).Join()

	errs := make(chan error, 3)
	for range 3 {
		go func() { errs <- env.Shutdown(5 * time.Second) }()
	}
	for range 3 {
		if err := <-errs; err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	}
}
