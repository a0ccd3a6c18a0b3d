package linker

import (
	"context"

	"github.com/kennyhq/contactlink/internal/types"
)

// MessagesStrategy covers the native messages source. Its documents carry no
// sender identity in the document store, so the pass only counts them.
type MessagesStrategy struct {
	source string
}

// NewMessagesStrategy creates the messages pass
func NewMessagesStrategy(source string) *MessagesStrategy {
	return &MessagesStrategy{source: source}
}

func (s *MessagesStrategy) Name() string   { return "messages" }
func (s *MessagesStrategy) Source() string { return s.source }

func (s *MessagesStrategy) Link(ctx context.Context, docs []*types.Document, snap *Snapshot) (PassResult, error) {
	if err := ctx.Err(); err != nil {
		return PassResult{}, err
	}
	return PassResult{Processed: len(docs)}, nil
}
