package main

import (
	"context"
	"fmt"

	"enigma/internal/agent"
	"enigma/internal/ipc"
)

type session interface {
	Submit(ctx context.Context, text, source string) (agent.Result, error)
	Trigger(ctx context.Context) (agent.Result, error)
	TranscribeFile(ctx context.Context, path string) (agent.Result, error)
	Pause()
	Resume()
	Paused() bool
	Busy() bool
}

// control answers the unix-socket commands of enigma-ctl and the console.
func control(s session, history *agent.History) ipc.Handler {
	reply := func(res agent.Result, err error) ipc.Response {
		if err != nil {
			return ipc.Fail("%v", err)
		}
		return ipc.Response{OK: true, Output: res.Output}
	}

	return func(ctx context.Context, req ipc.Request) ipc.Response {
		switch req.Cmd {
		case ipc.CmdTrigger:
			return reply(s.Trigger(ctx))
		case ipc.CmdCommand:
			return reply(s.Submit(ctx, req.Text, "ipc"))
		case ipc.CmdAudio:
			if req.Path == "" {
				return ipc.Fail("audio needs a file path")
			}
			return reply(s.TranscribeFile(ctx, req.Path))
		case ipc.CmdPause:
			s.Pause()
			return ipc.Response{OK: true, Output: "listening paused"}
		case ipc.CmdResume:
			s.Resume()
			return ipc.Response{OK: true, Output: "listening resumed"}
		case ipc.CmdHistory:
			return ipc.Response{OK: true, History: history.Snapshot()}
		case ipc.CmdStatus:
			return ipc.Response{OK: true, Output: fmt.Sprintf("busy=%t paused=%t history=%d",
				s.Busy(), s.Paused(), history.Len())}
		}
		return ipc.Fail("unknown command %q", req.Cmd)
	}
}
