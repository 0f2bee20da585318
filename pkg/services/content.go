package services

import (
	"context"
	"fmt"
	"regexp"
)

// ContentProcessor resolves placeholder tokens in step content before it is
// sent to the client. The host platform supplies the real implementation;
// the engine only needs the contract.
type ContentProcessor interface {
	Process(ctx context.Context, content string, userID int64) (string, error)
}

// NoopContentProcessor returns content unchanged. Used when the host
// platform registers no renderer.
type NoopContentProcessor struct{}

func (NoopContentProcessor) Process(_ context.Context, content string, _ int64) (string, error) {
	return content, nil
}

// UserFieldResolver looks up a profile field for a user, e.g. first_name.
type UserFieldResolver func(ctx context.Context, userID int64, field string) (string, error)

var userFieldToken = regexp.MustCompile(`\[user_field\s+field="([^"]+)"\]`)

// PlaceholderProcessor substitutes [user_field field="..."] tokens using a
// host-supplied resolver. Unresolvable tokens are replaced with an empty
// string rather than failing the whole step.
type PlaceholderProcessor struct {
	Resolve UserFieldResolver
}

func (p *PlaceholderProcessor) Process(ctx context.Context, content string, userID int64) (string, error) {
	if p.Resolve == nil || userID == 0 {
		return content, nil
	}

	var firstErr error
	result := userFieldToken.ReplaceAllStringFunc(content, func(token string) string {
		match := userFieldToken.FindStringSubmatch(token)
		value, err := p.Resolve(ctx, userID, match[1])
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("resolve field %q: %w", match[1], err)
			}
			return ""
		}
		return value
	})

	return result, firstErr
}

var (
	_ ContentProcessor = NoopContentProcessor{}
	_ ContentProcessor = (*PlaceholderProcessor)(nil)
)
