package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/tbxark/hrdesk"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/command"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/patch"
	"github.com/tbxark/hrdesk/terminal"
	"github.com/tbxark/hrdesk/types"
)

func chatCmd(configPath *string) *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if conversationID != "" {
				conf.ConversationID = conversationID
			}
			app, err := hrdesk.New(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer app.Close()
			return runChat(cmd.Context(), app, terminal.NewSurveyDriver())
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation id, overrides conversation_id")
	return cmd
}

func runChat(ctx context.Context, app *hrdesk.App, driver terminal.Driver) error {
	conversationID := app.Config.ConversationID
	ctx = agent.WithConversationID(ctx, conversationID)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: app.NewAgent()})
	parser := command.NewLocalCommandParser()

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Hi, I'm your company assistant. Ask me anything or describe a request (type /help for commands).")
	for {
		fmt.Print("You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("\nInput closed. Bye.")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		cmd, err := parser.ParseCommand(ctx, input)
		if err != nil {
			return err
		}
		switch cmd {
		case command.Quit:
			fmt.Println("Bye.")
			return nil
		case command.Help:
			fmt.Println(command.Usage())
			continue
		case command.Reset:
			if err := app.Flow.Reset(ctx, conversationID); err != nil {
				return err
			}
			fmt.Println("Conversation cleared.")
			continue
		case command.Tickets:
			if err := printTickets(ctx, app, conversationID); err != nil {
				return err
			}
			continue
		}

		iter := runner.Run(ctx, []*schema.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			if msg.Content != "" {
				fmt.Printf("\nAssistant: %s\n======\n", msg.Content)
			}
			for _, call := range msg.ToolCalls {
				if err := fillForm(ctx, app, driver, call.ID); err != nil {
					return err
				}
			}
		}
	}
}

// fillForm walks the user through a form session in the terminal and submits
// it through the flow so the ticket and history are recorded.
func fillForm(ctx context.Context, app *hrdesk.App, driver terminal.Driver, formID string) error {
	sess, err := app.Flow.Session(ctx, formID)
	if err != nil {
		return err
	}
	engine := sess.Form()
	var result *agent.SubmitResult
	err = terminal.Fill(ctx, driver, engine, func(ctx context.Context, values types.Values) error {
		res, err := app.Flow.SubmitForm(ctx, formID, patch.Replace(values))
		if err != nil {
			return err
		}
		if len(res.Errors) > 0 {
			return &form.ValidationError{Errors: res.Errors}
		}
		result = res
		return nil
	})
	switch {
	case errors.Is(err, terminal.ErrAborted):
		fmt.Println("Form left open. You can keep chatting.")
		return nil
	case errors.Is(err, form.ErrLocked):
		fmt.Println("This form was already submitted.")
		return nil
	case err != nil:
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			fmt.Println("The form still has errors, so nothing was submitted.")
			return nil
		}
		return err
	}
	fmt.Printf("\n%s\n", terminal.Summary(engine))
	if result != nil {
		fmt.Printf("\nAssistant: %s\n======\n", result.Message)
	}
	return nil
}

func printTickets(ctx context.Context, app *hrdesk.App, conversationID string) error {
	list, err := app.Tickets.List(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No tickets yet.")
		return nil
	}
	table := tablewriter.NewTable(os.Stdout)
	table.Header("Ticket", "Name", "Issue", "Priority", "Status", "Created")
	for _, t := range list {
		_ = table.Append(t.ID, t.Name, t.IssueType, string(t.Priority), t.Status, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return table.Render()
}
