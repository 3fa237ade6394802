package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrtyk/ledger-coordinator/api"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every reachable cluster node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(func(ctx context.Context, c api.Coordinator) error {
			view, err := c.PollNow(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Algorithm: %s", view.Algorithm)
			if view.Divergent {
				fmt.Print(" (nodes disagree)")
			}
			fmt.Println()

			for _, node := range view.Nodes {
				fmt.Printf("  node %d: algorithm=%s log_size=%d", node.NodeID, node.Algorithm, node.LogSize)
				if node.Algorithm == api.AlgorithmRaft {
					fmt.Printf(" role=%s term=%d", node.Role, node.Term)
				}
				if node.PromisedID != "" {
					fmt.Printf(" promised=%s", node.PromisedID)
				}
				fmt.Println()
			}

			if view.Leader != nil {
				fmt.Printf("Leader: node %d\n", view.Leader.NodeID)
			} else if view.Algorithm == api.AlgorithmRaft {
				fmt.Println("Leader: none")
			}
			return nil
		})
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <raft|paxos>",
	Short: "Switch the whole cluster to another consensus algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		algo, err := api.ParseAlgorithm(args[0])
		if err != nil {
			return err
		}
		return withCoordinator(func(ctx context.Context, c api.Coordinator) error {
			if err := c.SwitchAlgorithm(ctx, algo); err != nil {
				return err
			}
			fmt.Printf("Cluster switched to %s.\n", algo)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset every node's consensus state and ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(func(ctx context.Context, c api.Coordinator) error {
			if err := c.ResetCluster(ctx); err != nil {
				return err
			}
			fmt.Println("Cluster reset.")
			return nil
		})
	},
}

var electCmd = &cobra.Command{
	Use:   "elect",
	Short: "Trigger a leader election",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(func(ctx context.Context, c api.Coordinator) error {
			if err := c.StartElection(ctx); err != nil {
				return err
			}
			fmt.Println("Election started.")
			return nil
		})
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the merged consensus log of all nodes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(func(ctx context.Context, c api.Coordinator) error {
			entries := c.PollLogsNow(ctx)
			if len(entries) == 0 {
				fmt.Println("No log entries.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  node %d  [%s]  %s\n",
					e.Timestamp.Format("15:04:05.000"), e.NodeID, e.Level, e.Message)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(electCmd)
	rootCmd.AddCommand(logsCmd)
}
