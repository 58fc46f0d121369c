package space

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"pixelforge/internal/domain"
)

// ModelSpec describes one hosted model: where its space lives and how its
// positional payload is ordered. Spaces disagree on argument ordering, so the
// order is data, not code.
type ModelSpec struct {
	Name     string         `yaml:"name"`
	BaseURL  string         `yaml:"base_url"`
	Endpoint string         `yaml:"endpoint"`
	Kind     string         `yaml:"kind"`
	Args     []string       `yaml:"args"`
	Defaults map[string]any `yaml:"defaults"`
}

// Catalog maps model names to their specs.
type Catalog struct {
	models map[string]ModelSpec
}

type catalogFile struct {
	Models []ModelSpec `yaml:"models"`
}

// Argument tokens understood by BuildPayload.
const (
	argPrompt         = "prompt"
	argNegativePrompt = "negative_prompt"
	argSeed           = "seed"
	argRandomizeSeed  = "randomize_seed"
	argWidth          = "width"
	argHeight         = "height"
	argAspectRatio    = "aspect_ratio"
	argQuality        = "quality"
	argImageURL       = "image_url"
)

var aspectDimensions = map[domain.AspectRatio][2]int{
	domain.AspectSquare:    {1024, 1024},
	domain.AspectPortrait:  {768, 1344},
	domain.AspectLandscape: {1344, 768},
	domain.AspectPhoto:     {896, 1152},
	domain.AspectWide:      {1152, 896},
}

// DefaultCatalog returns the built-in model set, used when no catalog file is
// configured.
func DefaultCatalog() *Catalog {
	specs := []ModelSpec{
		{
			Name:     "flux-dev",
			BaseURL:  "https://black-forest-labs-flux-1-dev.hf.space",
			Endpoint: "infer",
			Kind:     "image",
			Args:     []string{argPrompt, argSeed, argRandomizeSeed, argWidth, argHeight, "guidance_scale", "num_inference_steps"},
			Defaults: map[string]any{"guidance_scale": 3.5, "num_inference_steps": 28},
		},
		{
			Name:     "flux-schnell",
			BaseURL:  "https://black-forest-labs-flux-1-schnell.hf.space",
			Endpoint: "infer",
			Kind:     "image",
			Args:     []string{argPrompt, argSeed, argRandomizeSeed, argWidth, argHeight, "num_inference_steps"},
			Defaults: map[string]any{"num_inference_steps": 4},
		},
		{
			Name:     "sdxl-turbo",
			BaseURL:  "https://stabilityai-sdxl-turbo.hf.space",
			Endpoint: "predict",
			Kind:     "image",
			Args:     []string{argPrompt, argNegativePrompt, argSeed, argWidth, argHeight},
			Defaults: map[string]any{argNegativePrompt: ""},
		},
		{
			Name:     "clarity-upscaler",
			BaseURL:  "https://finegrain-image-enhancer.hf.space",
			Endpoint: "process",
			Kind:     "upscale",
			Args:     []string{argImageURL, argPrompt, argSeed, "upscale_factor"},
			Defaults: map[string]any{"upscale_factor": 2, argPrompt: "masterpiece, best quality, highres"},
		},
	}
	c := &Catalog{models: make(map[string]ModelSpec, len(specs))}
	for _, spec := range specs {
		c.models[spec.Name] = spec
	}
	return c
}

// LoadCatalog reads model specs from a YAML file. Entries override built-in
// models with the same name.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	for _, spec := range file.Models {
		if spec.Name == "" || spec.BaseURL == "" || spec.Endpoint == "" {
			return nil, fmt.Errorf("catalog: model entries need name, base_url and endpoint")
		}
		if spec.Kind == "" {
			spec.Kind = "image"
		}
		c.models[spec.Name] = spec
	}
	return c, nil
}

// WithModel registers or overrides a model spec and returns the catalog.
func (c *Catalog) WithModel(spec ModelSpec) *Catalog {
	c.models[spec.Name] = spec
	return c
}

// Lookup returns the spec for a model name.
func (c *Catalog) Lookup(name string) (ModelSpec, error) {
	spec, ok := c.models[strings.TrimSpace(name)]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: model %q", domain.ErrUnsupportedProvider, name)
	}
	return spec, nil
}

// ModelNames lists known model names sorted for stable output.
func (c *Catalog) ModelNames() []string {
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildPayload serializes a generation request into the positional data array
// the model's space expects. Unknown arg tokens resolve from the spec's
// defaults, so new spaces usually need catalog entries only.
func BuildPayload(spec ModelSpec, req domain.GenerationRequest) []any {
	width, height := dimensionsFor(req.AspectRatio)
	data := make([]any, 0, len(spec.Args))
	for _, arg := range spec.Args {
		switch arg {
		case argPrompt:
			if v, ok := spec.Defaults[argPrompt]; ok && strings.TrimSpace(req.Prompt) == "" {
				data = append(data, v)
			} else {
				data = append(data, req.Prompt)
			}
		case argSeed:
			if req.Seed != nil {
				data = append(data, *req.Seed)
			} else {
				data = append(data, 0)
			}
		case argRandomizeSeed:
			data = append(data, req.Seed == nil)
		case argWidth:
			data = append(data, width)
		case argHeight:
			data = append(data, height)
		case argAspectRatio:
			data = append(data, string(req.AspectRatio))
		case argQuality:
			data = append(data, req.Quality)
		default:
			if v, ok := spec.Defaults[arg]; ok {
				data = append(data, v)
			} else {
				data = append(data, nil)
			}
		}
	}
	return data
}

// BuildUpscalePayload serializes an upscale request: the source image URL takes
// the image slot, everything else resolves as usual.
func BuildUpscalePayload(spec ModelSpec, imageURL string, req domain.GenerationRequest) []any {
	data := BuildPayload(spec, req)
	for i, arg := range spec.Args {
		if arg == argImageURL {
			data[i] = imageURL
		}
	}
	return data
}

func dimensionsFor(ratio domain.AspectRatio) (int, int) {
	dims, ok := aspectDimensions[ratio]
	if !ok {
		dims = aspectDimensions[domain.AspectSquare]
	}
	return dims[0], dims[1]
}
