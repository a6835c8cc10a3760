package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsdeskhq/opsdesk/internal/credential"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the intake mailbox credential",
	}

	cmd.AddCommand(newAuthSetCmd(), newAuthClearCmd())

	return cmd
}

func newAuthSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <username>",
		Short: "Store the mailbox password in the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(os.Stderr, "password: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			password, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			if err := credential.Set(args[0], password); err != nil {
				return err
			}
			fmt.Printf("credential stored for %s\n", args[0])
			return nil
		},
	}
}

func newAuthClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <username>",
		Short: "Remove the mailbox password from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("credential removed for %s\n", args[0])
			return nil
		},
	}
}
