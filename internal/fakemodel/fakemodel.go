// Package fakemodel provides a scripted chat model for tests.
package fakemodel

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var ErrExhausted = errors.New("fakemodel: no scripted reply left")

var _ model.ToolCallingChatModel = (*Model)(nil)

// Model replays scripted replies in order and records every prompt it saw.
type Model struct {
	mu      sync.Mutex
	replies []*schema.Message
	errs    []error
	calls   [][]*schema.Message
}

func New(replies ...*schema.Message) *Model {
	return &Model{replies: replies}
}

// Failing returns a model whose every call fails with err.
func Failing(err error) *Model {
	return &Model{errs: []error{err}}
}

func (m *Model) next(input []*schema.Message) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, input)
	if len(m.errs) > 0 {
		return nil, m.errs[0]
	}
	if len(m.replies) == 0 {
		return nil, ErrExhausted
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func (m *Model) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.next(input)
}

// Stream splits a text reply into word chunks.
func (m *Model) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply, err := m.next(input)
	if err != nil {
		return nil, err
	}
	if len(reply.ToolCalls) > 0 || reply.Content == "" {
		return schema.StreamReaderFromArray([]*schema.Message{reply}), nil
	}
	words := strings.SplitAfter(reply.Content, " ")
	chunks := make([]*schema.Message, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, &schema.Message{Role: schema.Assistant, Content: w})
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *Model) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls returns the prompts received so far.
func (m *Model) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.calls...)
}

func Text(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func ToolCall(id, name, arguments string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:   id,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      name,
				Arguments: arguments,
			},
		}},
	}
}
