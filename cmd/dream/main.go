// Command dream is a streaming chat-completion client for OpenAI-compatible
// endpoints.
//
// Usage:
//
//	dream [flags]                  interactive chat (same as "dream chat")
//	dream send [flags] [prompt]    one reply to stdout
//	dream config init|show|path    manage the configuration file
//
// DREAM_API_KEY overrides the api_key from the configuration file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

const apiKeyEnv = "DREAM_API_KEY"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Env is only read here.
	root := newRootCmd(os.Getenv(apiKeyEnv))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dream: %v\n", err)
		os.Exit(1)
	}
}
