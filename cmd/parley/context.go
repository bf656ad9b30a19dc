package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/parley/pkg/client"
)

func newContextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Inspect and edit a session's context storage",
	}

	cmd.AddCommand(newContextListCommand())
	cmd.AddCommand(newContextGetCommand())
	cmd.AddCommand(newContextSetCommand())
	cmd.AddCommand(newContextRmCommand())

	return cmd
}

func newContextListCommand() *cobra.Command {
	var showFiles bool

	cmd := &cobra.Command{
		Use:   "list <session-id>",
		Short: "List context keys and uploaded files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			snapshot, err := c.GetContext(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, key := range snapshot.ContextKeys() {
				fmt.Println(key)
			}
			if showFiles {
				for _, f := range snapshot.ReconstructFiles() {
					fmt.Printf("%s  %s (%d bytes)\n", f.FileID, f.Filename, f.FileSize)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showFiles, "files", false, "Also list uploaded files")
	return cmd
}

func newContextGetCommand() *cobra.Command {
	var fileID string

	cmd := &cobra.Command{
		Use:   "get <session-id> [key]",
		Short: "Print one context value, or a file with --file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))

			if fileID != "" {
				data, err := c.GetFile(cmd.Context(), args[0], fileID)
				if err != nil {
					return err
				}
				fmt.Print(data.FileData)
				return nil
			}

			if len(args) < 2 {
				return fmt.Errorf("either a key or --file is required")
			}

			snapshot, err := c.GetContext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			value, ok := snapshot.ResolveValue(args[1])
			if !ok {
				return fmt.Errorf("no context entry for key %q", args[1])
			}
			fmt.Println(value)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileID, "file", "", "Fetch an uploaded file by id instead of a key")
	return cmd
}

func newContextSetCommand() *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "set <session-id> <key> <value>",
		Short: "Add a context entry, or replace one with --update",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			if update {
				return c.UpdateContext(cmd.Context(), args[0], args[1], args[2])
			}
			return c.AddContext(cmd.Context(), args[0], map[string]interface{}{
				args[1]: args[2],
			})
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "Replace an existing entry instead of adding")
	return cmd
}

func newContextRmCommand() *cobra.Command {
	var fileID string

	cmd := &cobra.Command{
		Use:   "rm <session-id> [key]",
		Short: "Remove a context entry, or a file with --file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			if fileID != "" {
				return c.DeleteFile(cmd.Context(), args[0], fileID)
			}
			if len(args) < 2 {
				return fmt.Errorf("either a key or --file is required")
			}
			return c.RemoveContext(cmd.Context(), args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&fileID, "file", "", "Delete an uploaded file by id instead of a key")
	return cmd
}

func newUploadCommand() *cobra.Command {
	var description string
	var tags []string
	var replaceID string

	cmd := &cobra.Command{
		Use:   "upload <session-id> <path>",
		Short: "Upload a file into a session's context",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()

			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			filename := filepath.Base(args[1])

			var result *client.UploadResult
			if replaceID != "" {
				result, err = c.UpdateFile(cmd.Context(), args[0], replaceID, filename, f, description, tags)
			} else {
				result, err = c.UploadFile(cmd.Context(), args[0], filename, f, description, tags)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s  %s (%d bytes)\n", result.FileID, result.Filename, result.FileSize)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Description stored with the file")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tags stored with the file (repeatable)")
	cmd.Flags().StringVar(&replaceID, "replace", "", "Replace the file with this id instead of uploading a new one")

	return cmd
}
