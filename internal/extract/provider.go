package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks a provider that is configured but cannot run right now
// (missing key, binary not installed, session not authenticated).
var ErrUnavailable = errors.New("extract provider unavailable")

// IProvider is one extraction transport. Available is checked fresh on every
// chunk because a local-agent session can expire mid-run.
type IProvider interface {
	Name() string
	Available(ctx context.Context) bool
	Send(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

type ProviderFactory func(model string, args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, model string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("extract.provider type is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported extract provider: %s", name)
	}
	return factory(model, args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("extract provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode extract provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode extract provider config: %w", err)
	}
	return nil
}
