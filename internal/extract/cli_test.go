package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIProviderUnavailableWhenBinaryMissing(t *testing.T) {
	p := &cliProvider{bin: "definitely-not-installed-agent-binary"}
	require.False(t, p.Available(context.Background()))

	p = &cliProvider{}
	require.False(t, p.Available(context.Background()))
}

func TestCLIFactoryDecodesConfig(t *testing.T) {
	provider, err := NewProvider("cli", "", map[string]interface{}{
		"bin":       "agent",
		"args":      []string{"-p"},
		"auth_args": []string{"auth", "status"},
	})
	require.NoError(t, err)
	require.Equal(t, "cli", provider.Name())
}

func TestNewProviderUnknownType(t *testing.T) {
	_, err := NewProvider("carrier-pigeon", "", map[string]interface{}{})
	require.Error(t, err)
}
