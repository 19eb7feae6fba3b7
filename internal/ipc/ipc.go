package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const (
	CmdTrigger = "trigger"
	CmdCommand = "command"
	CmdAudio   = "audio"
	CmdPause   = "pause"
	CmdResume  = "resume"
	CmdHistory = "history"
	CmdStatus  = "status"
)

type Request struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
	Path string `json:"path,omitempty"`
}

type Response struct {
	OK      bool     `json:"ok"`
	Output  string   `json:"output,omitempty"`
	History []string `json:"history,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Fail builds an error response.
func Fail(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// Handler answers one request. It runs on the connection goroutine.
type Handler func(ctx context.Context, req Request) Response

// Serve listens on the unix socket at path until ctx is done. A stale
// socket file left by a crashed daemon is removed first.
func Serve(ctx context.Context, path string, handler Handler) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("IPC listening", "socket", path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer os.Remove(path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("IPC accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, handler)
	}
}

func handleConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("IPC bad request", "err", err)
		json.NewEncoder(conn).Encode(Fail("bad request: %v", err))
		return
	}
	log.Debug("IPC request", "cmd", req.Cmd)

	resp := handler(ctx, req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Debug("IPC client went away", "err", err)
	}
}

// Send delivers req to the daemon at path and waits for the answer.
func Send(ctx context.Context, path string, req Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
