package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fmuoria/resume-analyzer/internal/logger"
)

const logPreviewLimit = 400

// Status describes the adapter's current configuration
type Status struct {
	IsConfigured    bool   `json:"isConfigured"`
	CurrentProvider string `json:"currentProvider"`
	CurrentModel    string `json:"currentModel"`
}

// Client is the provider adapter used by the rest of the application. It
// holds the active provider and can be reconfigured at runtime.
type Client struct {
	mu          sync.RWMutex
	settings    Settings
	defaultKind Kind
	factories   map[Kind]Factory
	active      *activeProvider
	apiKey      string
	logger      *zap.Logger
}

// NewClient creates an unconfigured client. defaultKind is used by
// Configure when no kind is given.
func NewClient(settings Settings, defaultKind Kind, log *zap.Logger) *Client {
	return &Client{
		settings:    settings,
		defaultKind: defaultKind,
		factories:   DefaultFactories(),
		logger:      logger.OrNop(log),
	}
}

// Register adds or replaces the factory for a provider kind
func (c *Client) Register(kind Kind, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[kind] = f
}

// DefaultKind returns the kind used when Configure is called without one
func (c *Client) DefaultKind() Kind {
	return c.defaultKind
}

// Configure activates the provider of the given kind with apiKey. An empty
// kind selects the default kind.
func (c *Client) Configure(ctx context.Context, kind Kind, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrEmptyAPIKey
	}
	if kind == "" {
		kind = c.defaultKind
	}

	c.mu.RLock()
	factory, ok := c.factories[kind]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
	}

	provider, err := factory(ctx, apiKey, c.settings)
	if err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", kind, err)
	}

	c.mu.Lock()
	previous := c.active
	c.active = &activeProvider{Provider: provider}
	c.apiKey = apiKey
	c.mu.Unlock()

	if previous != nil {
		go previous.retire()
	}

	c.logger.Info("llm provider configured",
		zap.String(logger.FieldProvider, string(provider.Kind())),
		zap.String(logger.FieldModel, provider.Model()))
	return nil
}

// IsConfigured reports whether a provider with a non-empty key is active
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active != nil && c.apiKey != ""
}

// Status returns the active provider and model, or the defaults when unconfigured
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.active != nil && c.apiKey != "" {
		return Status{
			IsConfigured:    true,
			CurrentProvider: string(c.active.Kind()),
			CurrentModel:    c.active.Model(),
		}
	}
	return Status{
		CurrentProvider: string(c.defaultKind),
		CurrentModel:    c.settings.model(c.defaultKind, DefaultModel(c.defaultKind)),
	}
}

// Complete sends prompt to the active provider and returns its text completion
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.RLock()
	provider := c.active
	if provider != nil {
		provider.inflight.Add(1)
	}
	c.mu.RUnlock()

	if provider == nil {
		return "", ErrNotConfigured
	}
	defer provider.inflight.Done()

	log := logger.WithProvider(c.logger, string(provider.Kind()), provider.Model())
	log.Debug("sending prompt", zap.String("prompt_preview", logger.TruncateForLog(prompt, logPreviewLimit)))

	start := time.Now()
	text, err := provider.Complete(ctx, prompt)
	if err != nil {
		log.Warn("completion failed", zap.Duration("latency", time.Since(start)), zap.Error(err))
		return "", err
	}

	log.Debug("completion received",
		zap.Duration("latency", time.Since(start)),
		zap.String("response_preview", logger.TruncateForLog(text, logPreviewLimit)))
	return text, nil
}

// Close releases the active provider once its in-flight calls have returned
func (c *Client) Close() error {
	c.mu.Lock()
	active := c.active
	c.active = nil
	c.apiKey = ""
	c.mu.Unlock()

	if active == nil {
		return nil
	}
	active.inflight.Wait()
	return active.close()
}

// activeProvider counts the calls still using a provider. Calls are only
// added while the provider is current, so Wait after a swap is final.
type activeProvider struct {
	Provider
	inflight sync.WaitGroup
}

// retire closes a replaced provider after its in-flight calls return
func (p *activeProvider) retire() {
	p.inflight.Wait()
	_ = p.close()
}

func (p *activeProvider) close() error {
	if closer, ok := p.Provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
