package adobe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creativepipe/cap/pkg/ratelimit"
)

const storageExternal = "external"

// PSD output tuning used across the pipeline: medium quality, small
// compression.
const (
	psdOutputQuality = 7
	compressionSmall = "small"
)

// Photoshop drives the Firefly Services Photoshop API: document manifests,
// text layer edits, smart object swaps, and renditions. Calls draw from the
// adobe_photoshop rate limit resource.
type Photoshop struct {
	client  *Client
	baseURL string
}

// NewPhotoshop builds a Photoshop client.
func NewPhotoshop(ctx context.Context, cfg Config, limits *ratelimit.Registry, opts ...ClientOption) (*Photoshop, error) {
	client, err := NewClient(ctx, cfg, ScopePhotoshop, ratelimit.ResourceAdobePhotoshop, limits, opts...)
	if err != nil {
		return nil, err
	}
	return &Photoshop{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.PhotoshopBaseURL, "/"),
	}, nil
}

// externalRef points the service at a presigned URL it can read or write.
type externalRef struct {
	Href    string `json:"href"`
	Storage string `json:"storage"`
}

func external(href string) externalRef {
	return externalRef{Href: href, Storage: storageExternal}
}

type psdOutput struct {
	Href        string `json:"href"`
	Storage     string `json:"storage"`
	Type        string `json:"type"`
	Overwrite   bool   `json:"overwrite"`
	Width       *int   `json:"width,omitempty"`
	Quality     int    `json:"quality"`
	Compression string `json:"compression"`
}

func newPSDOutput(href string) psdOutput {
	return psdOutput{
		Href:        href,
		Storage:     storageExternal,
		Type:        "image/vnd.adobe.photoshop",
		Overwrite:   true,
		Quality:     psdOutputQuality,
		Compression: compressionSmall,
	}
}

type pngOutput struct {
	Href         string `json:"href"`
	Storage      string `json:"storage"`
	Type         string `json:"type"`
	Overwrite    bool   `json:"overwrite"`
	Compression  string `json:"compression"`
	TrimToCanvas bool   `json:"trimToCanvas"`
}

// CreateManifest asks the service to describe a PSD's layer tree and
// returns the job status URL.
func (p *Photoshop) CreateManifest(ctx context.Context, inputURL string) (string, error) {
	p.client.log.InfoContext(ctx, "requesting document manifest")

	payload := struct {
		Inputs []externalRef `json:"inputs"`
	}{
		Inputs: []externalRef{external(inputURL)},
	}
	return p.client.SubmitJob(ctx, p.baseURL+"/documentManifest", payload)
}

// TextEdit replaces the content of a named text layer.
type TextEdit struct {
	InputURL  string
	LayerName string
	Text      string
	OutputURL string
}

type textOptions struct {
	ManageMissingFonts string      `json:"manageMissingFonts"`
	Layers             []textLayer `json:"layers"`
}

type textLayer struct {
	Name string      `json:"name"`
	Text textContent `json:"text"`
}

type textContent struct {
	Content     string `json:"content"`
	Orientation string `json:"orientation"`
	TextType    string `json:"textType"`
}

// EditTextLayer submits a text layer edit and returns the job status URL.
func (p *Photoshop) EditTextLayer(ctx context.Context, edit TextEdit) (string, error) {
	p.client.log.InfoContext(ctx, "editing text layer", slog.String("layer", edit.LayerName))

	payload := struct {
		Inputs  []externalRef `json:"inputs"`
		Outputs []psdOutput   `json:"outputs"`
		Options textOptions   `json:"options"`
	}{
		Inputs:  []externalRef{external(edit.InputURL)},
		Outputs: []psdOutput{newPSDOutput(edit.OutputURL)},
		Options: textOptions{
			ManageMissingFonts: "useDefault",
			Layers: []textLayer{{
				Name: edit.LayerName,
				Text: textContent{
					Content:     edit.Text,
					Orientation: "horizontal",
					TextType:    "point",
				},
			}},
		},
	}
	return p.client.SubmitJob(ctx, p.baseURL+"/text", payload)
}

// SmartObjectSwap replaces the content of a named smart object layer.
type SmartObjectSwap struct {
	InputURL   string
	LayerName  string
	ContentURL string
	OutputURL  string
}

type smartObjectOptions struct {
	Layers []smartObjectLayer `json:"layers"`
}

type smartObjectLayer struct {
	Name  string      `json:"name"`
	Input externalRef `json:"input"`
}

// ReplaceSmartObject submits a smart object replacement and returns the job
// status URL.
func (p *Photoshop) ReplaceSmartObject(ctx context.Context, swap SmartObjectSwap) (string, error) {
	p.client.log.InfoContext(ctx, "replacing smart object", slog.String("layer", swap.LayerName))

	out := newPSDOutput(swap.OutputURL)
	// Width zero keeps the source dimensions; the service requires the
	// field on smart object outputs.
	out.Width = new(int)

	payload := struct {
		Inputs  []externalRef      `json:"inputs"`
		Outputs []psdOutput        `json:"outputs"`
		Options smartObjectOptions `json:"options"`
	}{
		Inputs:  []externalRef{external(swap.InputURL)},
		Outputs: []psdOutput{out},
		Options: smartObjectOptions{
			Layers: []smartObjectLayer{{
				Name:  swap.LayerName,
				Input: external(swap.ContentURL),
			}},
		},
	}
	return p.client.SubmitJob(ctx, p.baseURL+"/smartObject", payload)
}

// CreateRendition rasterizes a PSD into a PNG written to outputURL and
// returns the job status URL.
func (p *Photoshop) CreateRendition(ctx context.Context, inputURL, outputURL string) (string, error) {
	p.client.log.InfoContext(ctx, "creating png rendition")

	payload := struct {
		Inputs  []externalRef `json:"inputs"`
		Outputs []pngOutput   `json:"outputs"`
	}{
		Inputs: []externalRef{external(inputURL)},
		Outputs: []pngOutput{{
			Href:         outputURL,
			Storage:      storageExternal,
			Type:         "image/png",
			Overwrite:    true,
			Compression:  compressionSmall,
			TrimToCanvas: true,
		}},
	}
	return p.client.SubmitJob(ctx, p.baseURL+"/renditionCreate", payload)
}

// AwaitJob polls a job to a terminal state and returns the final response
// body. Use ManifestLayers to decode documentManifest results.
func (p *Photoshop) AwaitJob(ctx context.Context, statusURL string) (json.RawMessage, error) {
	return p.client.PollJob(ctx, statusURL)
}

// Layer is one node of a PSD layer tree as reported by documentManifest.
type Layer struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Visible     bool            `json:"visible"`
	Children    []Layer         `json:"children,omitempty"`
	Text        json.RawMessage `json:"text,omitempty"`
	SmartObject json.RawMessage `json:"smartObject,omitempty"`
}

// Kind classifies the layer for display.
func (l Layer) Kind() string {
	switch {
	case len(l.Text) > 0:
		return "Text Layer"
	case len(l.SmartObject) > 0:
		return "Smart Object Layer"
	default:
		return "Layer"
	}
}

type manifestResult struct {
	Outputs []struct {
		Layers []Layer `json:"layers"`
	} `json:"outputs"`
}

// ManifestLayers decodes the layer tree from a completed documentManifest
// job result.
func ManifestLayers(result json.RawMessage) ([]Layer, error) {
	var m manifestResult
	if err := json.Unmarshal(result, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if len(m.Outputs) == 0 {
		return nil, ErrNoManifest
	}
	return m.Outputs[0].Layers, nil
}

// FlattenLayers walks a layer tree depth-first.
func FlattenLayers(layers []Layer) []Layer {
	var flat []Layer
	for _, l := range layers {
		flat = append(flat, l)
		flat = append(flat, FlattenLayers(l.Children)...)
	}
	return flat
}

// FindLayer returns the first layer with the given name, searching
// depth-first.
func FindLayer(layers []Layer, name string) (Layer, bool) {
	for _, l := range FlattenLayers(layers) {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}
