package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parley/pkg/client"
	"github.com/go-go-golems/parley/pkg/events"
)

func newChatCommand() *cobra.Command {
	var sessionID string
	var message string
	var dumpRaw bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Stream a conversation with the agent",
		Long: `Send messages to the agent and print the streamed response as it
arrives. With --message a single turn is run; otherwise an interactive loop
reads messages from stdin until EOF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			router, err := events.NewEventRouter(events.WithVerbose(dumpRaw))
			if err != nil {
				return err
			}
			defer func() {
				_ = router.Close()
			}()

			printer := events.StreamPrinterFunc("assistant", os.Stdout)
			if dumpRaw {
				printer = router.DumpRawEvents
			}
			router.AddHandler("chat-printer", "chat", printer)

			publisher := events.NewPublisherManager()
			publisher.SubscribePublisher("chat", router.Publisher)

			c := client.NewClient(viper.GetString("base-url"), client.WithLogger(log.Logger))
			session := client.NewChatSession(c,
				client.WithSessionID(sessionID),
				client.WithPublisher(publisher),
				client.WithChatLogger(log.Logger),
			)

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				defer cancel()
				return router.Run(ctx)
			})
			eg.Go(func() error {
				defer cancel()
				<-router.Running()

				if message != "" {
					return runTurn(ctx, session, message)
				}
				return chatLoop(ctx, session, cmd.InOrStdin())
			})

			return eg.Wait()
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send a single message and exit")
	cmd.Flags().BoolVar(&dumpRaw, "raw", false, "Dump raw stream events instead of rendering them")

	return cmd
}

func runTurn(ctx context.Context, session *client.ChatSession, text string) error {
	msg, err := session.Send(ctx, text)
	if err != nil {
		return err
	}
	if msg == nil {
		log.Warn().Msg("stream ended without a response")
	}
	if id := session.SessionID(); id != "" {
		log.Debug().Str("session_id", id).Msg("session")
	}
	return nil
}

func chatLoop(ctx context.Context, session *client.ChatSession, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Print("> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Print("> ")
			continue
		}
		if text == "/quit" || text == "/exit" {
			break
		}

		if err := runTurn(ctx, session, text); err != nil {
			return err
		}
		fmt.Print("> ")
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if id := session.SessionID(); id != "" {
		fmt.Printf("\nsession: %s\n", id)
	}
	return nil
}
