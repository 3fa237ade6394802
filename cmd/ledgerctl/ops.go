package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/txcodec"
)

var depositCmd = &cobra.Command{
	Use:   "deposit <account> <amount>",
	Short: "Deposit an amount into an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(args, api.OpDeposit, "")
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <account> <amount>",
	Short: "Withdraw an amount from an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(args, api.OpWithdraw, "")
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <from> <to> <amount>",
	Short: "Transfer an amount between two accounts",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit([]string{args[0], args[2]}, api.OpTransfer, api.Account(args[1]))
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show an account balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(func(ctx context.Context, c api.Coordinator) error {
			bal, err := c.Balance(ctx, api.Account(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", args[0], txcodec.FormatAmount(bal))
			return nil
		})
	},
}

func submit(args []string, op api.OpType, dst api.Account) error {
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}

	return withCoordinator(func(ctx context.Context, c api.Coordinator) error {
		balances, err := c.SubmitOperation(ctx, api.Operation{
			Type:        op,
			Amount:      amount,
			Source:      api.Account(args[0]),
			Destination: dst,
		})
		if err != nil {
			return err
		}

		fmt.Println("Operation applied.")
		for account, bal := range balances {
			fmt.Printf("  %s: %s\n", account, txcodec.FormatAmount(bal))
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(balanceCmd)
}
