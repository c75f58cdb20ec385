package chunk

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/bonehead-labs/fmf/errs"
)

// TikTokenCounter counts tokens with the tiktoken-go encoder used by
// OpenAI-compatible models. An opt-in alternative to WordTokenCounter
// for chains that need exact provider-matching token budgets.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter builds a counter for the named encoding (e.g.
// "cl100k_base").
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, errs.ConfigErrorf(err, "loading tiktoken encoding %q", encoding)
	}
	return &TikTokenCounter{tke: tke}, nil
}

func (c *TikTokenCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}
