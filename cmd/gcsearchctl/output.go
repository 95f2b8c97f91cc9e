package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/spf13/cobra"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = cell(fmt.Sprint(c))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

// cell flattens text so one value stays on one table row.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "-"
	}
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

type messageOutput struct {
	DocumentID string `json:"doc_id"`
	Sender     string `json:"sender"`
	Text       string `json:"message"`
	Timestamp  int64  `json:"time"`
	ImageURL   string `json:"uri,omitempty"`
	Self       bool   `json:"self,omitempty"`
}

func toMessageOutput(m backend.Message, self bool) messageOutput {
	return messageOutput{
		DocumentID: m.DocumentID,
		Sender:     m.Sender,
		Text:       m.Text,
		Timestamp:  m.TimestampMillis,
		ImageURL:   m.ImageURL,
		Self:       self,
	}
}

type conversationOutput struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	LastMessage *messageOutput `json:"last_message,omitempty"`
}

type resultOutput struct {
	Rank         int              `json:"rank"`
	Conversation string           `json:"conversation"`
	Platform     backend.Platform `json:"platform"`
	Message      messageOutput    `json:"message"`
}
