package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/ssyqq/dream"
	"github.com/ssyqq/dream/chat"
	"github.com/ssyqq/dream/wire"
)

type sendOptions struct {
	wire    bool
	image   string
	model   string
	system  string
	rps     float64
	noRetry bool
}

func (a *app) sendCmd() *cobra.Command {
	var o sendOptions
	cmd := &cobra.Command{
		Use:   "send [prompt]",
		Short: "Stream one reply to stdout",
		Long:  "Send a single user message and stream the reply to stdout. Without arguments the prompt is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, args, o)
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&o.wire, "wire", false, "write tagged wire lines instead of plain text")
	fs.StringVar(&o.image, "image", "", "attach the image matching this glob (must match exactly one file)")
	fs.StringVar(&o.model, "model", "", "model to use instead of the configured one")
	fs.StringVar(&o.system, "system", "", "system prompt to use instead of the configured one")
	fs.Float64Var(&o.rps, "rps", 0, "maximum HTTP attempts per second, 0 for no limit")
	fs.BoolVar(&o.noRetry, "no-retry", false, "disable automatic retry")
	return cmd
}

func (a *app) runSend(cmd *cobra.Command, args []string, o sendOptions) error {
	logger, closeLog, err := a.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if o.noRetry {
		cfg.Chat.RetryEnabled = false
	}

	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	var image string
	if o.image != "" {
		if image, err = resolveImage(o.image); err != nil {
			return err
		}
	}

	c := dream.NewChat(time.Now())
	c.Config.Model = o.model
	c.Config.SystemPrompt = o.system
	c.Append(dream.Message{Role: dream.RoleUser, Content: prompt, ImagePath: image})

	svc := chat.New(newClient(logger, o.rps, nil), chat.WithLogger(logger))
	s := svc.Reply(cmd.Context(), cfg, c)
	defer s.Close()

	if o.wire {
		return relayWire(cmd, s)
	}
	return printReply(cmd, s)
}

// readPrompt joins args, or reads stdin when there are none.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	prompt := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(data)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	return prompt, nil
}

// resolveImage expands pattern and requires exactly one match.
func resolveImage(pattern string) (string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("image %q: %w", pattern, err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("image %q: no file matches", pattern)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("image %q: matches %d files", pattern, len(matches))
	}
}

// relayWire writes every event as a wire line. The error of a failed send
// is both encoded and returned.
func relayWire(cmd *cobra.Command, s dream.Stream) error {
	enc := wire.NewEncoder(cmd.OutOrStdout())
	var failure error
	for {
		evt, err := s.Next(cmd.Context())
		if errors.Is(err, io.EOF) {
			return failure
		}
		if err != nil {
			return err
		}
		if e, ok := evt.(dream.EventError); ok {
			failure = e.Err
		}
		if err := enc.Encode(evt); err != nil {
			return err
		}
	}
}

// printReply streams the reply as plain text. Snapshots that extend the
// previous one print only the new suffix. Retry notices go to stderr.
func printReply(cmd *cobra.Command, s dream.Stream) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	var shown string
	var failure error
	for {
		evt, err := s.Next(cmd.Context())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch e := evt.(type) {
		case dream.EventContent:
			if rest, ok := strings.CutPrefix(e.Text, shown); ok {
				fmt.Fprint(out, rest)
			} else {
				fmt.Fprint(out, "\n"+e.Text)
			}
			shown = e.Text
		case dream.EventRetry:
			if shown != "" {
				fmt.Fprintln(out)
			}
			shown = ""
			fmt.Fprintln(errOut, chat.RetryNotice(e))
		case dream.EventError:
			failure = e.Err
		}
	}
	if shown != "" && !strings.HasSuffix(shown, "\n") {
		fmt.Fprintln(out)
	}
	return failure
}

