package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbxark/hrdesk/types"
)

// LocalIntentRecognizer classifies input by keyword. It never fails, which
// makes it a good last entry in a FailbackRecognizer.
type LocalIntentRecognizer struct {
	GreetingKeywords []string
	RequestKeywords  []string
}

func NewLocalIntentRecognizer() *LocalIntentRecognizer {
	return &LocalIntentRecognizer{
		GreetingKeywords: []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "thanks", "thank you", "bye"},
		RequestKeywords: []string{
			"apply", "request", "submit", "file a", "raise", "report", "complain", "complaint",
			"leave", "time off", "vacation", "sick", "salary", "payroll", "not paid", "reimburse",
			"harass", "ticket", "issue with", "problem with",
		},
	}
}

func (p *LocalIntentRecognizer) RecognizeIntent(ctx context.Context, req *types.ToolRequest) (Intent, error) {
	normalized := strings.ToLower(strings.TrimSpace(req.LastUserInput()))
	if normalized == "" {
		return SmallTalk, nil
	}
	for _, keyword := range p.RequestKeywords {
		if strings.Contains(normalized, keyword) {
			return Request, nil
		}
	}
	trimmed := strings.Trim(normalized, "!.? ")
	for _, keyword := range p.GreetingKeywords {
		if trimmed == keyword || (strings.HasPrefix(trimmed, keyword+" ") && len(strings.Fields(trimmed)) <= 4) {
			return SmallTalk, nil
		}
	}
	return Inquiry, nil
}

type FailbackRecognizer struct {
	recognizers []Recognizer
}

func NewFailbackRecognizer(recognizers ...Recognizer) *FailbackRecognizer {
	return &FailbackRecognizer{recognizers: recognizers}
}

func (p *FailbackRecognizer) RecognizeIntent(ctx context.Context, req *types.ToolRequest) (Intent, error) {
	var lastErr error
	for _, r := range p.recognizers {
		in, err := r.RecognizeIntent(ctx, req)
		if err == nil {
			return in, nil
		}
		lastErr = err
	}
	return SmallTalk, fmt.Errorf("all intent recognizers failed: %w", lastErr)
}
