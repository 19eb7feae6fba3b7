package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"enigma/internal/config"
	"enigma/internal/ipc"
)

type globalFlags struct {
	socket  string
	config  string
	env     string
	timeout time.Duration
	json    bool
}

type sendFunc func(ctx context.Context, socket string, req ipc.Request) (ipc.Response, error)

func newRootCmd() *cobra.Command {
	return buildRootCmd(ipc.Send, os.Stdin)
}

func buildRootCmd(send sendFunc, stdin io.Reader) *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "enigma-ctl",
		Short:         "Control a running enigma-daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.socket, "socket", "", "control socket (default: from config)")
	root.PersistentFlags().StringVarP(&g.config, "config", "c", config.DefaultConfigPath, "config file path")
	root.PersistentFlags().StringVarP(&g.env, "env", "e", ".env", "env file path")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 3*time.Minute, "how long to wait for the daemon")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "print the raw response")

	do := func(cmd *cobra.Command, req ipc.Request) error {
		socket, err := g.resolveSocket()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
		defer cancel()

		resp, err := send(ctx, socket, req)
		if err != nil {
			return fmt.Errorf("enigma-daemon not running: %w", err)
		}
		return printResponse(cmd.OutOrStdout(), resp, g.json)
	}

	simple := func(use, short, ipcCmd string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return do(cmd, ipc.Request{Cmd: ipcCmd})
			},
		}
	}

	say := &cobra.Command{
		Use:   "say [text...]",
		Short: "Send a typed command; reads stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
					return errors.New("say: no text given")
				}
				b, err := io.ReadAll(stdin)
				if err != nil {
					return err
				}
				text = string(b)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return errors.New("say: no text given")
			}
			return do(cmd, ipc.Request{Cmd: ipc.CmdCommand, Text: text})
		},
	}

	audio := &cobra.Command{
		Use:   "audio <file>",
		Short: "Transcribe an audio file and run it as a command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The daemon resolves paths from its own working directory.
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return do(cmd, ipc.Request{Cmd: ipc.CmdAudio, Path: path})
		},
	}

	root.AddCommand(
		simple("trigger", "Record one voice command (push-to-talk)", ipc.CmdTrigger),
		say,
		audio,
		simple("pause", "Stop wake-word listening", ipc.CmdPause),
		simple("resume", "Restart wake-word listening", ipc.CmdResume),
		simple("history", "Print the conversation log", ipc.CmdHistory),
		simple("status", "Show daemon state", ipc.CmdStatus),
	)
	return root
}

func (g *globalFlags) resolveSocket() (string, error) {
	if g.socket != "" {
		return g.socket, nil
	}
	cfg, err := config.Load(g.config, g.env)
	if err != nil {
		return "", err
	}
	return cfg.Socket, nil
}

func printResponse(w io.Writer, resp ipc.Response, raw bool) error {
	if raw {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if !resp.OK {
			return errors.New(resp.Error)
		}
		return nil
	}

	if !resp.OK {
		return errors.New(resp.Error)
	}
	for _, line := range resp.History {
		fmt.Fprintln(w, line)
	}
	if resp.Output != "" {
		fmt.Fprintln(w, resp.Output)
	}
	return nil
}
