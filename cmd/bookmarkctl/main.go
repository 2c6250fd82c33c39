package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bookmarkai/bookmark-server/internal/chat"
	"github.com/bookmarkai/bookmark-server/internal/config"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
)

var (
	apiFlag  string
	userFlag string
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bookmarkctl",
		Short:        "CLI client for the bookmark assistant REST API",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Bookmark service base URL")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Owner id sent as X-Uid")

	rootCmd.AddCommand(newSearchCmd(), newChatCmd(), newConversationsCmd(), newIndexCmd())
	return rootCmd
}

func requireUser() (*client, error) {
	if userFlag == "" {
		return nil, fmt.Errorf("--user required")
	}
	return newClient(apiFlag, userFlag), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSearchCmd() *cobra.Command {
	var (
		query  string
		hybrid bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search saved bookmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireUser()
			if err != nil {
				return err
			}
			items, err := c.search(cmd.Context(), query, hybrid, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search query text (required)")
	cmd.Flags().BoolVar(&hybrid, "hybrid", true, "Blend keyword and vector relevance")
	cmd.Flags().IntVarP(&limit, "limit", "k", 10, "Maximum number of chunks to retrieve")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newChatCmd() *cobra.Command {
	var (
		conversationID string
		selected       []string
	)
	cmd := &cobra.Command{
		Use:   "chat QUESTION",
		Short: "Ask a question and print the streamed answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireUser()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var sources []string
			err = c.chat(cmd.Context(), args[0], conversationID, selected, func(ev chat.WireEvent) error {
				if ev.Done {
					for _, d := range ev.Documents {
						sources = append(sources, d.URL)
					}
					return nil
				}
				_, err := fmt.Fprint(out, ev.ChatResponse)
				return err
			})
			fmt.Fprintln(out)
			for _, s := range sources {
				fmt.Fprintf(out, "source: %s\n", s)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation id to append the turn to")
	cmd.Flags().StringSliceVarP(&selected, "doc", "d", nil, "Restrict context to these document ids")
	return cmd
}

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Manage conversations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireUser()
			if err != nil {
				return err
			}
			out, err := c.listConversations(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "history CONVERSATION_ID",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireUser()
			if err != nil {
				return err
			}
			out, err := c.history(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Start a new conversation and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireUser()
			if err != nil {
				return err
			}
			id, err := c.createConversation(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	})
	return cmd
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Vector index maintenance",
	}
	var timeout time.Duration
	bootstrap := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create or extend the Weaviate chunk class from BOOKMARK_SERVER_* settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			idx, err := searchindex.NewWeaviateIndex(cfg.WeaviateURL, cfg.WeaviateAPIKey, cfg.WeaviateClass, log)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := idx.Bootstrap(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "class %s ready at %s\n", cfg.WeaviateClass, cfg.WeaviateURL)
			return err
		},
	}
	bootstrap.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Bootstrap timeout")
	cmd.AddCommand(bootstrap)
	return cmd
}
