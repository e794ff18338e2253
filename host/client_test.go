package host

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// startMockHost creates a Unix socket daemon that answers every request with
// respond and optionally streams events before serving.
func startMockHost(t *testing.T, respond func(Request) Response, events []Event) string {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "host.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for _, ev := range events {
			data, _ := json.Marshal(ev)
			conn.Write(append(data, '\n'))
		}

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req Request
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			resp := respond(req)
			resp.ID = req.ID
			data, _ := json.Marshal(resp)
			conn.Write(append(data, '\n'))
		}
	}()

	return sockPath
}

func TestClientCallRoundTrip(t *testing.T) {
	sockPath := startMockHost(t, func(req Request) Response {
		if req.Method != MethodGetListeningStatus {
			return Response{OK: false, Error: "unexpected method"}
		}
		return Response{OK: true, Result: json.RawMessage(`{"enabled":true,"active":false,"micAvailable":true}`)}
	}, nil)

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	status, err := NewAPI(client).ListeningStatus(context.Background())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !status.Enabled || !status.MicAvailable {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestClientCallHostError(t *testing.T) {
	sockPath := startMockHost(t, func(Request) Response {
		return Response{OK: false, Error: "no such device"}
	}, nil)

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	err = NewAPI(client).StartRecording(context.Background(), "bogus")
	if err == nil {
		t.Fatal("expected host error")
	}
}

func TestClientEventsInterleaveWithResponses(t *testing.T) {
	events := []Event{
		{Event: EventRecordingStarted},
		{Event: EventRecordingStopped, Payload: json.RawMessage(`{"metadata":{"id":"r1","durationMs":900,"createdAt":1}}`)},
	}
	sockPath := startMockHost(t, func(Request) Response {
		return Response{OK: true}
	}, events)

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	// Events were written before the response path is exercised; a call must
	// still resolve even with events queued ahead of it.
	if err := NewAPI(client).StopRecording(context.Background()); err != nil {
		t.Fatalf("call with queued events: %v", err)
	}

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < len(events) {
		select {
		case ev := <-client.Events():
			got = append(got, ev.Event)
		case <-timeout:
			t.Fatalf("events not delivered, got %v", got)
		}
	}

	if got[0] != EventRecordingStarted || got[1] != EventRecordingStopped {
		t.Errorf("events out of order: %v", got)
	}
}

func TestClientCallAfterClose(t *testing.T) {
	sockPath := startMockHost(t, func(Request) Response {
		return Response{OK: true}
	}, nil)

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	client.Close()

	// Wait for the read loop to notice the close.
	<-client.done

	if err := client.Call(context.Background(), MethodStopRecording, nil, nil); err == nil {
		t.Fatal("expected error on closed client")
	}
}

// Close must release a read loop stuck sending to an undrained event
// channel; closing the socket alone cannot unblock a channel send.
func TestCloseReleasesBackedUpEventSend(t *testing.T) {
	events := make([]Event, 200) // well past the channel buffer
	for i := range events {
		events[i] = Event{Event: EventRecordingStarted}
	}
	sockPath := startMockHost(t, func(Request) Response {
		return Response{OK: true}
	}, events)

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Nobody reads Events(); give the read loop time to fill the buffer
	// and block on the next send.
	time.Sleep(100 * time.Millisecond)
	client.Close()

	select {
	case <-client.done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop still blocked after Close")
	}
}

func TestClientCallContextCancel(t *testing.T) {
	// A host that never answers.
	sockPath := filepath.Join(t.TempDir(), "host.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		select {} // hold the connection open, answer nothing
	}()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := client.Call(ctx, MethodStopRecording, nil, nil); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestConnectFailure(t *testing.T) {
	if _, err := Connect(filepath.Join(t.TempDir(), "missing.sock")); err == nil {
		t.Fatal("expected error connecting to missing socket")
	}
}
