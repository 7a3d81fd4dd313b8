// Package integration runs linechat end to end over real loopback sockets.
package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Tyrowin/linechat/test/testhelpers"
)

func TestHealthEndpointIntegration(t *testing.T) {
	env := testhelpers.StartChat(t, nil)

	resp := testhelpers.MakeRequest(t, http.MethodGet, env.HTTPURL+"/")
	defer resp.Body.Close()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/plain")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(body) != "linechat server is running!" {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestTestPageIntegration(t *testing.T) {
	env := testhelpers.StartChat(t, nil)

	resp := testhelpers.MakeRequest(t, http.MethodGet, env.HTTPURL+"/test")
	defer resp.Body.Close()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/html")
}

func TestMetricsEndpointIntegration(t *testing.T) {
	env := testhelpers.StartChat(t, nil)

	a := testhelpers.DialTCP(t, env.TCPAddr).Join()
	a.Send("/rooms")
	a.Expect("Rooms - main (1)")
	a.Send("/nope")
	a.Expect("Wrong command: /nope")

	resp := testhelpers.MakeRequest(t, http.MethodGet, env.HTTPURL+"/metrics")
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	for _, want := range []string{
		"linechat_connections_total 1",
		"linechat_connections_active 1",
		"linechat_rooms_active 1",
		`linechat_commands_total{command="/rooms"} 1`,
		`linechat_protocol_errors_total{kind="wrong_command"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Metrics output missing %q", want)
		}
	}
}
