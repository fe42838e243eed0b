// internal/scpi/transport_test.go
package scpi

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func pipeStream(t *testing.T, timeout time.Duration) (*stream, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { server.Close() })
	return newStream("pipe", client, client, timeout), server
}

func TestStream_Query(t *testing.T) {
	s, server := pipeStream(t, time.Second)

	go func() {
		rd := bufio.NewReader(server)
		line, _ := rd.ReadString('\n')
		if line == "*IDN?\n" {
			server.Write([]byte("KEITHLEY INSTRUMENTS INC.,MODEL 2700,1,A\r\n"))
		}
	}()

	reply, err := s.Query("*IDN?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "KEITHLEY INSTRUMENTS INC.,MODEL 2700,1,A" {
		t.Fatalf("got %q", reply)
	}
}

func TestStream_QueryTimeout(t *testing.T) {
	s, server := pipeStream(t, 50*time.Millisecond)

	go func() {
		// swallow the command, never answer
		bufio.NewReader(server).ReadString('\n')
	}()

	if _, err := s.Query("FETCH?"); !IsProtocol(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestStream_CloseTwice(t *testing.T) {
	s, _ := pipeStream(t, time.Second)

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); !IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
	if err := s.Write("*CLS"); !IsState(err) {
		t.Fatalf("write after close should be a state error, got %v", err)
	}
}

func TestStream_SetTimeout(t *testing.T) {
	s, _ := pipeStream(t, time.Second)
	s.SetTimeout(14 * time.Second)
	if s.Timeout() != 14*time.Second {
		t.Fatalf("got %s", s.Timeout())
	}
	s.SetTimeout(0)
	if s.Timeout() != 14*time.Second {
		t.Fatalf("zero timeout should be ignored")
	}
}

func TestOpen_UnsupportedResource(t *testing.T) {
	if _, err := Open("GPIB0::16::INSTR", Options{}); !IsConnection(err) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

// scriptedServer answers each command line on a real TCP socket, in order.
type scriptedServer struct {
	mu       sync.Mutex
	commands []string
}

func (srv *scriptedServer) received() []string {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return append([]string(nil), srv.commands...)
}

// tcpStream dials a loopback listener whose answer func maps a command to
// its reply; the reply is sent after delay. An empty reply sends nothing.
func tcpStream(t *testing.T, timeout time.Duration, answer func(cmd string) (string, time.Duration)) (*stream, *scriptedServer) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	srv := &scriptedServer{}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		rd := bufio.NewReader(conn)
		for {
			line, err := rd.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.TrimRight(line, "\r\n")
			srv.mu.Lock()
			srv.commands = append(srv.commands, cmd)
			srv.mu.Unlock()

			reply, delay := answer(cmd)
			if reply == "" {
				continue
			}
			time.Sleep(delay)
			if _, err := conn.Write([]byte(reply + "\n")); err != nil {
				return
			}
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s := newStream("tcp", conn, conn, timeout)
	t.Cleanup(func() { s.Close() })
	return s, srv
}

func TestStream_LateReplyIsNotHandedToNextQuery(t *testing.T) {
	s, srv := tcpStream(t, 50*time.Millisecond, func(cmd string) (string, time.Duration) {
		switch cmd {
		case "FETCH?":
			return "+1.0E+00VDC,+0.0E+00SECS,1", 120 * time.Millisecond
		case "*OPC?":
			return "1", 0
		case "*IDN?":
			return "KEITHLEY INSTRUMENTS INC.,MODEL 2701,1,A", 0
		}
		return "", 0
	})

	if _, err := s.Query("FETCH?"); !IsProtocol(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}

	reply, err := s.Query("*IDN?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "KEITHLEY INSTRUMENTS INC.,MODEL 2701,1,A" {
		t.Fatalf("got stale reply %q", reply)
	}

	// back in sync: no marker before the next command
	if _, err := s.Query("*IDN?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"FETCH?", "*OPC?", "*IDN?", "*IDN?"}
	got := srv.received()
	if len(got) != len(want) {
		t.Fatalf("commands: got %q want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestStream_ResyncFailsWhileInstrumentIsSilent(t *testing.T) {
	s, _ := tcpStream(t, 20*time.Millisecond, func(cmd string) (string, time.Duration) {
		return "", 0
	})

	if _, err := s.Query("FETCH?"); !IsProtocol(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
	if err := s.Write("INIT"); !IsProtocol(err) {
		t.Fatalf("write while out of sync should fail, got %v", err)
	}
	if !s.stale {
		t.Fatalf("stream should stay out of sync")
	}
}

func TestIsMarkerReply(t *testing.T) {
	for _, line := range []string{"1\n", "1\r\n", "\"1\"\n"} {
		if !isMarkerReply(line) {
			t.Fatalf("%q should be accepted", line)
		}
	}
	for _, line := range []string{"0\n", "+1.0E+00VDC,+0.0E+00SECS,1\n", "11\n"} {
		if isMarkerReply(line) {
			t.Fatalf("%q should be rejected", line)
		}
	}
}
