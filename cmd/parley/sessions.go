package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/parley/pkg/client"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List agent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			list, err := c.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			for _, s := range list.Sessions {
				line := s.SessionID
				if s.CreatedAt != "" {
					line += "  " + s.CreatedAt
				}
				fmt.Println(line)
			}
			fmt.Printf("%d sessions\n", list.TotalCount)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			return c.DeleteSession(cmd.Context(), args[0])
		},
	})

	return cmd
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print the message history of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			history, err := c.GetMessages(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, m := range history.Messages {
				fmt.Printf("[%s] %s\n", m.Role, m.Content)
			}
			return nil
		},
	}
}
