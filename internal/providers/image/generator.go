package image

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pixelforge/internal/domain"
	"pixelforge/internal/infra"
	"pixelforge/internal/providers/space"
)

// TokenSource supplies the optional bearer token attached to space requests.
type TokenSource interface {
	Token(ctx context.Context, provider string) (string, error)
}

// CredentialProvider is the settings key under which space tokens are stored.
const CredentialProvider = "huggingface"

// Generator is the contract implemented by the image generation layer.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
	Upscale(ctx context.Context, imageURL string, req domain.GenerationRequest) (*domain.GenerationResult, error)
}

// Options configures a SpaceGenerator.
type Options struct {
	Catalog    *space.Catalog
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// SpaceGenerator produces images by submitting jobs to hosted inference spaces
// selected from the model catalog.
type SpaceGenerator struct {
	catalog    *space.Catalog
	tokens     TokenSource
	httpClient *http.Client
	logger     *infra.Logger
}

// NewSpaceGenerator wires a generator over the given catalog.
func NewSpaceGenerator(opts Options) (*SpaceGenerator, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("image: catalog is required")
	}
	return &SpaceGenerator{
		catalog:    opts.Catalog,
		tokens:     opts.Tokens,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}, nil
}

// Generate runs one synchronous generation exchange. A stream that completes
// without a payload returns (nil, nil); callers surface it as a missing result.
func (g *SpaceGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	spec, err := g.catalog.Lookup(req.Model)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, spec, space.BuildPayload(spec, req), req)
}

// Upscale submits the source image URL to an upscaler space.
func (g *SpaceGenerator) Upscale(ctx context.Context, imageURL string, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = "clarity-upscaler"
	}
	spec, err := g.catalog.Lookup(model)
	if err != nil {
		return nil, err
	}
	if spec.Kind != "upscale" {
		return nil, fmt.Errorf("%w: model %q cannot upscale", domain.ErrUnsupportedProvider, model)
	}
	return g.run(ctx, spec, space.BuildUpscalePayload(spec, imageURL, req), req)
}

func (g *SpaceGenerator) run(ctx context.Context, spec space.ModelSpec, payload []any, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	client, err := space.NewClient(space.Options{
		BaseURL:    spec.BaseURL,
		Token:      g.lookupToken(ctx),
		HTTPClient: g.httpClient,
		Logger:     g.logger,
	})
	if err != nil {
		return nil, err
	}
	started := time.Now()
	stream, err := client.SubmitAndAwait(ctx, spec.Endpoint, payload)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, nil
	}
	media, err := space.ExtractMedia(stream.Data)
	if err != nil {
		return nil, err
	}
	seed := media.Seed
	if seed == nil {
		seed = req.Seed
	}
	return &domain.GenerationResult{
		ResultURL: media.URL,
		Seed:      seed,
		Duration:  time.Since(started),
	}, nil
}

func (g *SpaceGenerator) lookupToken(ctx context.Context) string {
	if g.tokens == nil {
		return ""
	}
	token, err := g.tokens.Token(ctx, CredentialProvider)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn().Err(err).Msg("image: token lookup failed, calling anonymously")
		}
		return ""
	}
	return token
}

var _ Generator = (*SpaceGenerator)(nil)
