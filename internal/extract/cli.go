package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type cliConfig struct {
	Bin      string   `json:"bin"`
	Args     []string `json:"args"`
	AuthArgs []string `json:"auth_args"`
}

// cliProvider shells out to a locally installed, already-authenticated agent
// binary. The prompt goes in on stdin, the raw response comes back on stdout.
type cliProvider struct {
	bin      string
	args     []string
	authArgs []string
}

func (p *cliProvider) Name() string {
	return "cli"
}

// Available requires the binary on PATH and, when auth_args is configured,
// the auth-status subcommand to exit zero. Not cached: the agent session can
// expire between chunks.
func (p *cliProvider) Available(ctx context.Context) bool {
	if p.bin == "" {
		return false
	}
	path, err := exec.LookPath(p.bin)
	if err != nil {
		return false
	}
	if len(p.authArgs) == 0 {
		return true
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(checkCtx, path, p.authArgs...).Run() == nil
}

func (p *cliProvider) Send(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	if p.bin == "" {
		return "", ErrUnavailable
	}
	cmd := exec.CommandContext(ctx, p.bin, p.args...)
	cmd.Stdin = strings.NewReader(systemPrompt + "\n\n" + userPrompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("cli agent failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("cli agent failed: %w", err)
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("cli agent returned empty output")
	}
	return out, nil
}

func createCLIFactory(model string, args interface{}) (IProvider, error) {
	cfg := &cliConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &cliProvider{
		bin:      strings.TrimSpace(cfg.Bin),
		args:     cfg.Args,
		authArgs: cfg.AuthArgs,
	}, nil
}

func init() {
	Register("cli", createCLIFactory)
}
