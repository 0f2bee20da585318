package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderProcessor_SubstitutesFields(t *testing.T) {
	p := &PlaceholderProcessor{Resolve: func(_ context.Context, userID int64, field string) (string, error) {
		return fmt.Sprintf("%s-%d", field, userID), nil
	}}

	out, err := p.Process(context.Background(), `Hi [user_field field="first_name"]!`, 7)
	require.NoError(t, err)
	assert.Equal(t, "Hi first_name-7!", out)
}

func TestPlaceholderProcessor_AnonymousPassthrough(t *testing.T) {
	p := &PlaceholderProcessor{Resolve: func(_ context.Context, _ int64, _ string) (string, error) {
		t.Fatal("resolver should not be called for anonymous users")
		return "", nil
	}}

	content := `Hi [user_field field="first_name"]!`
	out, err := p.Process(context.Background(), content, 0)
	require.NoError(t, err)
	assert.Equal(t, content, out)
}

func TestPlaceholderProcessor_ResolverErrorBlanksToken(t *testing.T) {
	p := &PlaceholderProcessor{Resolve: func(_ context.Context, _ int64, _ string) (string, error) {
		return "", errors.New("profile service unavailable")
	}}

	out, err := p.Process(context.Background(), `Hi [user_field field="first_name"]!`, 7)
	require.Error(t, err)
	assert.Equal(t, "Hi !", out)
}

func TestNoopContentProcessor(t *testing.T) {
	out, err := NoopContentProcessor{}.Process(context.Background(), "unchanged", 7)
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}
