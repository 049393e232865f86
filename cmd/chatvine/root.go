package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatvine",
	Short: "Chatvine is a chatbot flow engine",
	Long:  `Chatvine routes inbound conversational messages through visually-built automation flows: trigger matching, sticky sessions, keyword routing and auto-layout.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
