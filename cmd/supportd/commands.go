package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskflowhq/supportd/internal/agent"
	"github.com/taskflowhq/supportd/internal/config"
	"github.com/taskflowhq/supportd/internal/conversation"
	"github.com/taskflowhq/supportd/internal/storage"
)

// --- decide ---

var decideCmd = &cobra.Command{
	Use:   "decide <message text>",
	Short: "Run one customer message through the decision pipeline",
	Long: `Run one customer message through the decision pipeline.

Examples:
  supportd decide --customer sarah@example.com "How do I sync my calendar?"
  supportd decide --customer +15550100 --channel whatsapp "still broken!!"
  supportd decide --customer sam@co.io --plan enterprise --priority urgent "I want a refund"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		customer, _ := cmd.Flags().GetString("customer")
		if customer == "" {
			return fmt.Errorf("--customer is required")
		}
		channel, _ := cmd.Flags().GetString("channel")
		name, _ := cmd.Flags().GetString("name")
		plan, _ := cmd.Flags().GetString("plan")
		priority, _ := cmd.Flags().GetString("priority")
		subject, _ := cmd.Flags().GetString("subject")
		ticket, _ := cmd.Flags().GetString("ticket")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		in := agent.Inbound{
			Channel:      channel,
			CustomerID:   customer,
			CustomerName: name,
			CustomerPlan: plan,
			Priority:     priority,
			Subject:      subject,
			Text:         strings.Join(args, " "),
			TicketRef:    ticket,
		}
		resp, err := client.post(cmd.Context(), "/decide", in)
		if err != nil {
			return err
		}

		var decision agent.Decision
		if err := decodeJSON(resp, &decision); err != nil {
			return err
		}

		if decision.ShouldEscalate {
			printEscalated("Escalated as %s: %s", decision.EscalationID, decision.Reason)
		}
		printStatus("Intent", "%s", decision.Intent)
		printStatus("Sentiment", "%+.2f (%s)", decision.Sentiment, decision.Trend)
		printStatus("Confidence", "%.2f", decision.Confidence)
		if len(decision.MatchedDocs) > 0 {
			printStatus("Docs", "%s", strings.Join(decision.MatchedDocs, ", "))
		}
		printStatus("Conversation", "%s", decision.ConversationID)

		fmt.Println()
		fmt.Println(decision.Response)
		return nil
	},
}

func init() {
	decideCmd.Flags().String("customer", "", "customer identifier (email or phone)")
	decideCmd.Flags().String("channel", "email", "channel: email, chat, whatsapp, or web_form")
	decideCmd.Flags().String("name", "", "customer display name")
	decideCmd.Flags().String("plan", "", "customer plan: free, pro, or enterprise")
	decideCmd.Flags().String("priority", "", "ticket priority")
	decideCmd.Flags().String("subject", "", "message subject line")
	decideCmd.Flags().String("ticket", "", "external ticket reference")
}

// --- conversation ---

var conversationCmd = &cobra.Command{
	Use:   "conversation",
	Short: "Inspect and manage conversations",
}

var conversationShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/conversations/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var conv any
		if err := decodeJSON(resp, &conv); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conv)
	},
}

var conversationResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark a conversation as resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/conversations/"+url.PathEscape(args[0])+"/resolve", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Conversation %s resolved", args[0])
		return nil
	},
}

var conversationEscalateCmd = &cobra.Command{
	Use:   "escalate <id>",
	Short: "Escalate a conversation to a human agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			return fmt.Errorf("--reason is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"reason": reason}
		resp, err := client.post(cmd.Context(), "/conversations/"+url.PathEscape(args[0])+"/escalate", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Escalated as %s", result["escalation_id"])
		return nil
	},
}

func init() {
	conversationEscalateCmd.Flags().String("reason", "", "why this needs a human")
	conversationCmd.AddCommand(conversationShowCmd)
	conversationCmd.AddCommand(conversationResolveCmd)
	conversationCmd.AddCommand(conversationEscalateCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <customer>",
	Short: "Show a customer's cross-channel conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/customers/"+url.PathEscape(args[0])+"/history")
		if err != nil {
			return err
		}

		var history conversation.CustomerHistory
		if err := decodeJSON(resp, &history); err != nil {
			return err
		}

		if history.ConversationCount == 0 {
			fmt.Println("No conversations found.")
			return nil
		}

		printStatus("Customer", "%s", history.CustomerID)
		printStatus("Conversations", "%d", history.ConversationCount)
		printStatus("Channels", "%s", strings.Join(history.Channels, ", "))
		if len(history.Topics) > 0 {
			printStatus("Topics", "%s", strings.Join(history.Topics, ", "))
		}
		for _, c := range history.Conversations {
			fmt.Printf("\n%s  %s  %s  %d messages\n",
				colorize(colorCyan, c.ID[:8]),
				c.Channel,
				c.Status,
				c.MessageCount,
			)
		}
		return nil
	},
}

// --- link ---

var linkCmd = &cobra.Command{
	Use:   "link <id-a> <id-b>",
	Short: "Link two customer identifiers as the same person",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"id_a": args[0], "id_b": args[1]}
		resp, err := client.post(cmd.Context(), "/identity/links", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Linked %s and %s", args[0], args[1])
		return nil
	},
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate conversation stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/stats")
		if err != nil {
			return err
		}

		var stats conversation.Stats
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Total", "%d", stats.Total)
		printStatus("Active", "%d", stats.Active)
		printStatus("Escalated", "%d", stats.Escalated)
		printStatus("Resolved", "%d", stats.Resolved)
		printStatus("Customers", "%d", stats.UniqueCustomers)
		return nil
	},
}

// --- decisions ---

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recent pipeline decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/decisions?limit=%d", limit))
		if err != nil {
			return err
		}

		var decisions []storage.DecisionRecord
		if err := decodeJSON(resp, &decisions); err != nil {
			return err
		}

		if len(decisions) == 0 {
			fmt.Println("No decisions recorded.")
			return nil
		}

		for _, d := range decisions {
			flag := " "
			if d.ShouldEscalate {
				flag = colorize(colorRed, "⬆")
			}
			fmt.Printf("%s %s  %-18s  %-16s  %+.2f  %s\n",
				flag,
				colorize(colorCyan, d.ID[:8]),
				d.Intent,
				d.Channel,
				d.Sentiment,
				d.CustomerID,
			)
		}
		return nil
	},
}

func init() {
	decisionsCmd.Flags().Int("limit", 20, "maximum number of decisions to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
