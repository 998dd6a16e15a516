package testcases

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/hrdesk"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/config"
	"github.com/tbxark/hrdesk/ticket"
)

// Fixture is a tool-based flow backed by in-memory stores.
type Fixture struct {
	Flow    *agent.Flow
	Tickets *ticket.MemoryStore
}

func InitChatModel(t *testing.T) *openai.ChatModel {
	if os.Getenv("HRDESK_RUN_LIVE_TESTS") != "1" {
		t.Skip("set HRDESK_RUN_LIVE_TESTS=1 to run live LLM tests")
		return nil
	}

	ctx := context.Background()
	conf, err := config.Load("../config.json")
	if err != nil {
		t.Skipf("failed to load config: %v", err)
		return nil
	}
	chatModel, err := hrdesk.NewChatModel(ctx, conf)
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
		return nil
	}
	t.Logf("live model %s", describe(conf))
	return chatModel
}

func NewFixture(t *testing.T) *Fixture {
	chatModel := InitChatModel(t)
	if chatModel == nil {
		return nil
	}
	tickets := ticket.NewMemoryStore()
	flow, err := agent.NewToolBasedFlow(
		chatModel,
		ticket.NewService(tickets),
		agent.NewMemorySessionStore(),
		agent.NewMemoryHistoryStore(agent.KeepSystemLastNTrimmer{N: 50}),
	)
	if err != nil {
		t.Fatalf("failed to create flow: %v", err)
	}
	return &Fixture{Flow: flow, Tickets: tickets}
}

func describe(c *config.Config) string {
	return fmt.Sprintf("Config{BaseURL:%q, Model:%q}", c.BaseURL, c.Model)
}
