package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/pipeline"
	"github.com/sells-group/signals-cli/internal/registry"
	"github.com/sells-group/signals-cli/internal/scrape"
	"github.com/sells-group/signals-cli/internal/store"
	"github.com/sells-group/signals-cli/pkg/anthropic"
	"github.com/sells-group/signals-cli/pkg/jina"
	"github.com/sells-group/signals-cli/pkg/newsfeed"
)

// pipelineEnv bundles a ready-to-run pipeline with the resources it owns.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *pipelineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initPipeline validates run config, opens the store, loads the signal
// registry and ICP profile, and wires the provider clients into a pipeline.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	signals, err := registry.LoadSignals(cfg.Signals.RegistryPath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	profile, err := registry.LoadProfile(cfg.Signals.ProfilePath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	search := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)
	llm := anthropic.NewClient(cfg.Anthropic.Key)

	var news newsfeed.Client
	if cfg.Newsfeed.Enabled {
		news = newsfeed.NewClient(newsfeed.Config{
			Language: cfg.Newsfeed.Language,
			Country:  cfg.Newsfeed.Country,
			MaxItems: cfg.Newsfeed.MaxItems,
		})
	}

	readers := []scrape.Reader{scrape.NewLocalReader()}
	if cfg.Evidence.UseReaderFallback {
		readers = append(readers, scrape.NewJinaReader(search))
	}

	zap.L().Info("pipeline ready",
		zap.Int("signals", len(signals)),
		zap.String("model", cfg.Anthropic.Model),
		zap.Bool("newsfeed", cfg.Newsfeed.Enabled),
		zap.Bool("reader_fallback", cfg.Evidence.UseReaderFallback),
	)

	p := pipeline.New(cfg, st, search, llm, news, scrape.NewChain(readers...), signals, profile)
	return &pipelineEnv{Store: st, Pipeline: p}, nil
}
