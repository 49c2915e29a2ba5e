package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssyqq/dream"
	"github.com/ssyqq/dream/toml"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "dream.toml"
	defaultChatsPath  = "chat_list.json"
)

// app holds state shared by all commands.
type app struct {
	configPath string
	logFile    string
	logLevel   string
	envAPIKey  string
}

func newRootCmd(envAPIKey string) *cobra.Command {
	a := &app{envAPIKey: envAPIKey}
	var chatOpts chatOptions

	root := &cobra.Command{
		Use:           "dream",
		Short:         "Streaming chat-completion client",
		Long:          "dream talks to OpenAI-compatible chat-completion endpoints, streaming replies with automatic retry.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd, chatOpts)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to this file, rotated")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	addChatFlags(root, &chatOpts)

	root.AddCommand(a.chatCmd())
	root.AddCommand(a.sendCmd())
	root.AddCommand(a.configCmd())
	return root
}

// loadConfig reads the configuration file and applies the environment.
func (a *app) loadConfig() (dream.Config, error) {
	cfg, err := toml.Load(a.configPath)
	if err != nil {
		return dream.Config{}, fmt.Errorf("load config: %w", err)
	}
	return a.withEnv(cfg), nil
}

func (a *app) withEnv(cfg dream.Config) dream.Config {
	if a.envAPIKey != "" {
		cfg.APIKey = a.envAPIKey
	}
	return cfg
}

// logger builds the logger for a command. Without --log-file, logs go to
// console when it is non-nil and are discarded otherwise.
func (a *app) logger(console io.Writer) (*zap.Logger, func(), error) {
	l, closeFn, err := newLogger(a.logFile, a.logLevel, console)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		_ = l.Sync()
		_ = closeFn()
	}, nil
}
