package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arbordev/arbor"
	"github.com/arbordev/arbor/internal/logging"
	"github.com/arbordev/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project and hot-reload scenes on change",
	Long:  `Watches the project directory for scene file edits. Each change re-parses the scene, refreshes every live instance, and re-applies instance overrides.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")

		level, err := logging.ParseLevel(mustString(cmd, "log-level"))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		logger := logging.New(level)

		engine, err := arbor.New(dir, arbor.WithLogger(logger))
		if err != nil {
			fmt.Printf("Error initializing arbor: %v\n", err)
			os.Exit(1)
		}

		tui.PrintBanner(arbor.Version)
		logger.Info("starting watcher", "path", dir)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		events, err := engine.Watch(ctx)
		if err != nil {
			fmt.Printf("Error starting watcher: %v\n", err)
			os.Exit(1)
		}

		// This loop is the owner goroutine: queued reloads only run
		// when it drains them.
		drain := time.NewTicker(100 * time.Millisecond)
		defer drain.Stop()

		fmt.Println("Waiting for changes... (ctrl-c to stop)")
		for {
			select {
			case sig := <-shutdown:
				fmt.Printf("\nStopping watcher... Signal: %v\n", sig)
				return
			case <-drain.C:
				engine.Drain()
			case path, ok := <-events:
				if !ok {
					return
				}
				fmt.Printf("Reloaded '%s'\n", path)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
