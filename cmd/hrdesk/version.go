package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tbxark/hrdesk"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hrdesk %s (%s %s/%s)\n", hrdesk.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
