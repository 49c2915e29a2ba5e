package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssyqq/dream"
	bt "github.com/ssyqq/dream/bubbletea"
	"github.com/ssyqq/dream/chat"
	dreamjson "github.com/ssyqq/dream/json"
	dreamprom "github.com/ssyqq/dream/prometheus"
	"github.com/ssyqq/dream/toml"
	"go.uber.org/zap"
)

type chatOptions struct {
	chatsPath   string
	metricsAddr string
	rps         float64
	watch       bool
}

func addChatFlags(cmd *cobra.Command, o *chatOptions) {
	fs := cmd.Flags()
	fs.StringVar(&o.chatsPath, "chats", defaultChatsPath, "chat list file")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.Float64Var(&o.rps, "rps", 0, "maximum HTTP attempts per second, 0 for no limit")
	fs.BoolVar(&o.watch, "watch", true, "reload the config file when it changes")
}

func (a *app) chatCmd() *cobra.Command {
	var o chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd, o)
		},
	}
	addChatFlags(cmd, &o)
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, o chatOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger, closeLog, err := a.logger(nil)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	chats, err := dreamjson.Load(o.chatsPath)
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}

	var observer dream.Observer
	if o.metricsAddr != "" {
		reg := newRegistry()
		observer = dreamprom.NewMetrics(reg)
		_, stop, err := serveMetrics(o.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	client := newClient(logger, o.rps, observer)
	svc := chat.New(client, chat.WithLogger(logger))

	configs := make(chan bt.ConfigMsg, 1)
	if o.watch {
		go a.watchConfig(ctx, configs, logger)
	}

	m := bt.New(svc, cfg, chats,
		bt.WithLogger(logger),
		bt.WithSave(func(l dream.ChatList) error {
			return dreamjson.Save(o.chatsPath, l)
		}),
	)
	logger.Info("chat started",
		zap.String("config", a.configPath),
		zap.String("chats", o.chatsPath),
		zap.Int("count", len(chats.Chats)))
	if err := bt.Run(ctx, m, configs); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// watchConfig forwards config reloads to the TUI until ctx is done.
func (a *app) watchConfig(ctx context.Context, configs chan<- bt.ConfigMsg, logger *zap.Logger) {
	err := toml.Watch(ctx, a.configPath, toml.DefaultDebounce, func(cfg dream.Config, err error) {
		msg := bt.ConfigMsg{Config: a.withEnv(cfg), Err: err}
		select {
		case configs <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		logger.Warn("config watch disabled", zap.Error(err))
	}
}
