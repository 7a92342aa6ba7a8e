package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/TimzAjes16/echoID/cmd/server"
	"github.com/TimzAjes16/echoID/cmd/wallet"
)

func main() {
	root := &cobra.Command{
		Use:   "echoid",
		Short: "Blockchain-anchored consent handshake service",
	}

	root.AddCommand(server.New())
	root.AddCommand(wallet.New())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
