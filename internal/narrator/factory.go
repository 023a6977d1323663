package narrator

import (
	"fmt"

	"github.com/rcliao/lorekeeper/internal/config"
)

// Providers lists the names NewFromConfig accepts.
var Providers = []string{"ollama", "openai", "anthropic", "scripted"}

// NewFromConfig builds the configured completer wrapped in a Guard.
func NewFromConfig(cfg config.LLMConfig) (*Guard, error) {
	var c Completer
	switch cfg.Provider {
	case "ollama", "":
		c = NewOllama(cfg.URL, cfg.Model, cfg.Timeout)
	case "openai":
		c = NewOpenAI(cfg.URL, cfg.APIKey, cfg.Model)
	case "anthropic":
		c = NewAnthropic(cfg.URL, cfg.APIKey, cfg.Model, cfg.Timeout)
	case "scripted":
		c = NewScripted()
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want one of %v)", cfg.Provider, Providers)
	}
	return NewGuard(c, cfg.Breaker, cfg.Rate), nil
}
