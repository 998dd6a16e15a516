package command

import (
	"context"
	"strings"
)

type LocalCommandParser struct {
	Keywords map[Command][]string
}

func NewLocalCommandParser() *LocalCommandParser {
	return &LocalCommandParser{
		Keywords: map[Command][]string{
			Quit:    {"/quit", "/exit", "/q"},
			Reset:   {"/reset", "/clear", "/new"},
			Tickets: {"/tickets", "/t"},
			Help:    {"/help", "/?"},
		},
	}
}

func (p *LocalCommandParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if !strings.HasPrefix(normalized, "/") {
		return None, nil
	}
	for cmd, keywords := range p.Keywords {
		for _, keyword := range keywords {
			if normalized == keyword {
				return cmd, nil
			}
		}
	}
	return None, nil
}

// Usage lists the commands understood by NewLocalCommandParser.
func Usage() string {
	return strings.Join([]string{
		"/help     show this help",
		"/reset    forget the conversation",
		"/tickets  list tickets filed in this conversation",
		"/quit     leave the chat",
	}, "\n")
}
