package main

import (
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/scribe/cmd/scribe/chat"
	historycmder "github.com/papercomputeco/scribe/cmd/scribe/history"
	servecmder "github.com/papercomputeco/scribe/cmd/scribe/serve"
)

func main() {
	root := &cobra.Command{
		Use:   "scribe",
		Short: "Streaming conversation engine for the Messages API",
		Long: `scribe drives streaming conversations against the Anthropic Messages
API, persists them next to the documents they are about, and lets the
model read and modify those documents through tools.`,
		SilenceUsage: true,
	}

	root.AddCommand(chatcmder.NewChatCmd())
	root.AddCommand(servecmder.NewServeCmd())
	root.AddCommand(historycmder.NewHistoryCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
