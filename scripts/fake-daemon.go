// fake-daemon.go — Manual stand-in for stackpilotd, for end-to-end testing.
//
// Usage:
//   1. Start the fake daemon:  go run ./scripts/fake-daemon.go -socket /tmp/stackpilotd.sock -secret-file /tmp/secret
//   2. Run the installer:      go run ./cmd/stackpilot install --socket /tmp/stackpilotd.sock --secret-file /tmp/secret --domain example.test
//
// Flags:
//   -socket       unix socket to listen on       (default "/tmp/stackpilotd.sock")
//   -secret-file  shared signing secret file     (default "/tmp/stackpilot-secret")
//   -fail         comma-separated commands to reject, e.g. "package.install,nginx.test_config"
//
// What it does:
//   1. Loads (or creates) the shared secret
//   2. Accepts one connection per request, reads a length-prefixed frame
//   3. Verifies the HMAC signature over command:params:timestamp:nonce
//   4. Answers success (or a scripted failure) without touching the system

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/stackpilot/stackpilot/internal/auth"
	"github.com/stackpilot/stackpilot/internal/protocol"
)

func main() {
	socketPath := flag.String("socket", "/tmp/stackpilotd.sock", "unix socket to listen on")
	secretFile := flag.String("secret-file", "/tmp/stackpilot-secret", "shared signing secret file")
	failList := flag.String("fail", "", "comma-separated commands to reject")
	flag.Parse()

	secret, err := auth.LoadOrCreateSecret(*secretFile)
	if err != nil {
		log.Fatalf("secret: %v", err)
	}

	failing := map[string]bool{}
	for _, cmd := range strings.Split(*failList, ",") {
		if cmd != "" {
			failing[cmd] = true
		}
	}

	os.Remove(*socketPath)
	ln, err := net.Listen("unix", *socketPath)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	log.Printf("fake stackpilotd listening on %s (secret %s)", *socketPath, auth.SecretFingerprint(secret))

	seenNonces := map[string]bool{}

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Fatalf("accept: %v", err)
		}
		serve(conn, secret, failing, seenNonces)
	}
}

func serve(conn net.Conn, secret []byte, failing, seenNonces map[string]bool) {
	defer conn.Close()

	body, err := protocol.ReadFrame(conn)
	if err != nil {
		log.Printf("read: %v", err)
		return
	}

	var req protocol.Request
	if err := json.Unmarshal(body, &req); err != nil {
		respond(conn, `{"success":false,"error":"malformed request"}`)
		return
	}

	if !auth.Verify(secret, req.Command, req.Params, req.Timestamp, req.Nonce, req.Signature) {
		log.Printf("%s: bad signature", req.Command)
		respond(conn, `{"success":false,"error":{"message":"signature verification failed","code":"AUTH_FAILED"}}`)
		return
	}

	if seenNonces[req.Nonce] {
		log.Printf("%s: replayed nonce %s", req.Command, req.Nonce)
		respond(conn, `{"success":false,"error":{"message":"nonce already used","code":"REPLAY"}}`)
		return
	}
	seenNonces[req.Nonce] = true

	if failing[req.Command] {
		log.Printf("%s: scripted failure", req.Command)
		respond(conn, fmt.Sprintf(`{"success":false,"error":"scripted failure for %s"}`, req.Command))
		return
	}

	log.Printf("%s: ok (params %s)", req.Command, req.Params)
	respond(conn, `{"success":true,"result":{"ok":true}}`)
}

func respond(conn net.Conn, body string) {
	if err := protocol.WriteFrame(conn, []byte(body)); err != nil {
		log.Printf("write: %v", err)
	}
}
