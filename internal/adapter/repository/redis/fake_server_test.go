package redis

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeRedis speaks enough RESP2 for the repository: PING, XADD and the
// connection handshake. Every command it receives is recorded.
type fakeRedis struct {
	ln net.Listener

	mu       sync.Mutex
	commands [][]string
	conns    []net.Conn
	seq      int
}

func startFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	f := &fakeRedis{ln: ln}
	go f.accept()
	t.Cleanup(f.Close)
	return f
}

func (f *fakeRedis) Addr() string {
	return f.ln.Addr().String()
}

func (f *fakeRedis) Close() {
	f.ln.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		conn.Close()
	}
}

// xadds returns the field maps of every XADD to stream, in arrival order.
func (f *fakeRedis) xadds(stream string) []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []map[string]string
	for _, args := range f.commands {
		if strings.ToUpper(args[0]) != "XADD" || args[1] != stream {
			continue
		}
		fields := make(map[string]string)
		// XADD key * field value ...
		for i := 3; i+1 < len(args); i += 2 {
			fields[args[i]] = args[i+1]
		}
		entries = append(entries, fields)
	}
	return entries
}

func (f *fakeRedis) accept() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()
		go f.serve(conn)
	}
}

func (f *fakeRedis) serve(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)
	for {
		args, err := readCommand(br)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, f.reply(args)); err != nil {
			return
		}
	}
}

func (f *fakeRedis) reply(args []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, args)

	switch strings.ToUpper(args[0]) {
	case "PING":
		return "+PONG\r\n"
	case "HELLO":
		return "-ERR unknown command 'HELLO'\r\n"
	case "XADD":
		f.seq++
		id := fmt.Sprintf("%d-0", f.seq)
		return fmt.Sprintf("$%d\r\n%s\r\n", len(id), id)
	default:
		return "+OK\r\n"
	}
}

func readCommand(br *bufio.Reader) ([]string, error) {
	header, err := readLine(br)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(header, "*") {
		return nil, fmt.Errorf("unexpected command header %q", header)
	}
	n, err := strconv.Atoi(header[1:])
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sizeLine, err := readLine(br)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimPrefix(sizeLine, "$"))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
