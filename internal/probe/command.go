package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/torosent/tickmeter/internal/sampler"
)

// Command runs name with args on every tick and samples its stdout, which
// must be a bare number or a JSON document.
func Command(name string, args ...string) sampler.Probe {
	argv := append([]string(nil), args...)
	return func(ctx context.Context) (sampler.Value, error) {
		if name == "" {
			return sampler.Value{}, errors.New("probe: empty command")
		}
		cmd := exec.CommandContext(ctx, name, argv...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return sampler.Value{}, fmt.Errorf("probe: %s: %w: %s", name, err, msg)
			}
			return sampler.Value{}, fmt.Errorf("probe: %s: %w", name, err)
		}
		return parseValue(out, nil)
	}
}
