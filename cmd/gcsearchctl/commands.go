package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/config"
	"github.com/matheus3301/gcsearch/internal/profile"
	"github.com/matheus3301/gcsearch/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPingCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Probe backend liveness",
		Args:  cobra.NoArgs,
		RunE: withClient(o, func(cmd *cobra.Command, c *client, _ []string) error {
			err := c.coord.Start(cmd.Context())
			state := c.coord.Snapshot().Backend
			if o.asJSON {
				out := struct {
					URL    string `json:"url"`
					Status string `json:"status"`
					Error  string `json:"error,omitempty"`
				}{URL: c.cfg.BackendURL, Status: string(state)}
				if err != nil {
					out.Error = transport.Reason(err)
				}
				if werr := writeJSON(cmd, out); werr != nil {
					return werr
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("%s is %s: %s", c.cfg.BackendURL, state, transport.Reason(err))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", c.cfg.BackendURL, state)
			return err
		}),
	}
}

func newWhoamiCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity the backend associates with you",
		Args:  cobra.NoArgs,
		RunE: withClient(o, func(cmd *cobra.Command, c *client, _ []string) error {
			u, err := c.api.CurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("current user: %w", err)
			}
			if o.asJSON {
				return writeJSON(cmd, struct {
					Identity *string `json:"identity"`
				}{u.Identity})
			}
			identity := "(unknown)"
			if u.Identity != nil && *u.Identity != "" {
				identity = *u.Identity
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), identity)
			return err
		}),
	}
}

func newChatsCmd(o *rootOptions) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"conversations"},
		Short:   "List the conversations of a platform, most recent first",
		Args:    cobra.NoArgs,
		RunE: withClient(o, func(cmd *cobra.Command, c *client, _ []string) error {
			p := c.cfg.Platform()
			if platform != "" {
				var err error
				if p, err = backend.ParsePlatform(platform); err != nil {
					return err
				}
			}
			if err := c.coord.SelectPlatform(cmd.Context(), p); err != nil {
				return err
			}
			convs := c.coord.Snapshot().Conversations

			if o.asJSON {
				out := make([]conversationOutput, 0, len(convs))
				for _, conv := range convs {
					co := conversationOutput{Name: conv.InternalName, DisplayName: conv.DisplayName}
					if conv.LastMessage != nil {
						m := toMessageOutput(*conv.LastMessage, false)
						co.LastMessage = &m
					}
					out = append(out, co)
				}
				return writeJSON(cmd, out)
			}

			tw := newTable(cmd.OutOrStdout(), "NAME", "DISPLAY NAME", "LAST DOC", "FROM", "TIME", "LAST MESSAGE")
			for _, conv := range convs {
				m := conv.LastMessage
				if m == nil {
					m = &backend.Message{}
				}
				row(tw, conv.InternalName, conv.DisplayName, m.DocumentID, m.Sender, formatMillis(m.TimestampMillis), m.Text)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "platform: instagram, whatsapp, wechat or line (default from config)")
	return cmd
}

func newSearchCmd(o *rootOptions) *cobra.Command {
	var topN int
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Keyword search across every platform",
		Args:  cobra.MinimumNArgs(1),
		RunE: withClient(o, func(cmd *cobra.Command, c *client, args []string) error {
			if err := c.coord.Search(cmd.Context(), strings.Join(args, " "), topN); err != nil {
				return err
			}
			return writeResults(cmd, o, c.coord.Snapshot().Results)
		}),
	}
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "maximum number of results (default from config)")
	return cmd
}

func newNearCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "near <range> <query>...",
		Short: "Proximity search: query terms within range words of each other",
		Args:  cobra.MinimumNArgs(2),
		RunE: withClient(o, func(cmd *cobra.Command, c *client, args []string) error {
			rng, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("range %q is not a number", args[0])
			}
			if err := c.coord.ProximitySearch(cmd.Context(), strings.Join(args[1:], " "), rng); err != nil {
				return err
			}
			return writeResults(cmd, o, c.coord.Snapshot().Results)
		}),
	}
}

func writeResults(cmd *cobra.Command, o *rootOptions, results []backend.SearchResult) error {
	if o.asJSON {
		out := make([]resultOutput, 0, len(results))
		for i, r := range results {
			out = append(out, resultOutput{
				Rank:         i + 1,
				Conversation: r.ConversationName,
				Platform:     r.Platform,
				Message:      toMessageOutput(r.MessageDetails, false),
			})
		}
		return writeJSON(cmd, out)
	}
	tw := newTable(cmd.OutOrStdout(), "#", "CONVERSATION", "PLATFORM", "DOC", "FROM", "TIME", "MESSAGE")
	for i, r := range results {
		m := r.MessageDetails
		row(tw, i+1, r.ConversationName, r.Platform, m.DocumentID, m.Sender, formatMillis(m.TimestampMillis), m.Text)
	}
	return tw.Flush()
}

func newWindowCmd(o *rootOptions) *cobra.Command {
	var count, earlier, later int
	cmd := &cobra.Command{
		Use:   "window <conversation> <doc-id>",
		Short: "Show the messages around a document, optionally paging earlier or later",
		Args:  cobra.ExactArgs(2),
		RunE: withClient(o, func(cmd *cobra.Command, c *client, args []string) error {
			if earlier > 0 && later > 0 {
				return errors.New("--earlier and --later are mutually exclusive")
			}
			ctx := cmd.Context()
			step := count
			if step <= 0 {
				step = c.coord.Options().WindowSize
			}
			if err := c.coord.OpenConversation(ctx, args[0], args[1], step); err != nil {
				return err
			}
			for n := 0; n < earlier; n++ {
				if err := c.coord.EarlierBy(ctx, step); err != nil {
					return err
				}
			}
			for n := 0; n < later; n++ {
				if err := c.coord.LaterBy(ctx, step); err != nil {
					return err
				}
			}

			u, err := c.api.CurrentUser(ctx)
			if err != nil {
				c.logger.Warn("current user lookup failed, sender marks disabled", zap.Error(err))
				u = backend.CurrentUser{}
			}
			w := c.coord.Snapshot().Window
			if o.asJSON {
				msgs := make([]messageOutput, 0, len(w.Messages))
				for _, m := range w.Messages {
					msgs = append(msgs, toMessageOutput(m, u.Is(m.Sender)))
				}
				return writeJSON(cmd, struct {
					Conversation string          `json:"conversation"`
					Anchor       string          `json:"anchor"`
					Offset       int             `json:"offset"`
					AtStart      bool            `json:"at_start"`
					AtEnd        bool            `json:"at_end"`
					Messages     []messageOutput `json:"messages"`
				}{w.PII, w.AnchorDocID, w.Offset, w.AtStart, w.AtEnd, msgs})
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s anchor=%s offset=%+d\n", w.PII, w.AnchorDocID, w.Offset)
			if w.AtStart {
				_, _ = fmt.Fprintln(out, "--- start of conversation ---")
			}
			tw := newTable(out, "DOC", "TIME", "FROM", "MESSAGE")
			for _, m := range w.Messages {
				sender := m.Sender
				if u.Is(m.Sender) {
					sender += " (you)"
				}
				text := m.Text
				if m.ImageURL != "" {
					text = strings.TrimSpace(text + " [image " + m.ImageURL + "]")
				}
				row(tw, m.DocumentID, formatMillis(m.TimestampMillis), sender, text)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if w.AtEnd {
				_, _ = fmt.Fprintln(out, "--- end of conversation ---")
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "messages on each side of the anchor, also the paging step (default from config)")
	cmd.Flags().IntVar(&earlier, "earlier", 0, "page this many batches of --count messages back after opening")
	cmd.Flags().IntVar(&later, "later", 0, "page this many batches of --count messages forward after opening")
	return cmd
}

func newHistoryCmd(o *rootOptions) *cobra.Command {
	var (
		limit         int
		conversations bool
		clearAll      bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches or opened conversations of the profile",
		Args:  cobra.NoArgs,
		RunE: withClient(o, func(cmd *cobra.Command, c *client, _ []string) error {
			out := cmd.OutOrStdout()
			if clearAll {
				n, err := c.db.ClearHistory()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "removed %d entries\n", n)
				return err
			}
			if conversations {
				opened, err := c.db.RecentConversations(limit)
				if err != nil {
					return err
				}
				if o.asJSON {
					return writeJSON(cmd, opened)
				}
				tw := newTable(out, "CONVERSATION", "ANCHOR", "OPENED")
				for _, oc := range opened {
					row(tw, oc.PII, oc.AnchorDocID, formatMillis(oc.OpenedAt))
				}
				return tw.Flush()
			}

			entries, err := c.db.RecentQueries(limit)
			if err != nil {
				return err
			}
			if o.asJSON {
				return writeJSON(cmd, entries)
			}
			tw := newTable(out, "WHEN", "MODE", "LIMIT", "RESULTS", "QUERY")
			for _, e := range entries {
				row(tw, formatMillis(e.CreatedAt), e.Mode, e.Limit, e.Results, e.Query)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of entries")
	cmd.Flags().BoolVar(&conversations, "conversations", false, "list opened conversations instead of searches")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete the search history")
	return cmd
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialise the configuration file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, cfg, err := o.loadConfig()
				if err != nil {
					return err
				}
				if o.asJSON {
					return writeJSON(cmd, cfg)
				}
				return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), profile.ConfigPath())
				return err
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration if none exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := profile.ConfigPath()
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				}
				if err := config.Save(path, config.Default()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
				return err
			},
		},
	)
	return cmd
}
