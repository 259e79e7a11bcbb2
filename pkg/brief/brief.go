// Package brief loads and validates campaign briefs, the JSON or YAML
// documents that drive the creative automation pipeline.
package brief

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidBrief reports a brief that fails parsing or validation.
	ErrInvalidBrief = errors.New("invalid campaign brief")
	// ErrUnsupportedFormat reports a brief file with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported brief format")
	// ErrNoBriefs reports a directory with no loadable briefs.
	ErrNoBriefs = errors.New("no campaign briefs found")
)

// Product identifies a single campaign product.
type Product struct {
	SKU         string `json:"sku" yaml:"sku"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// TechnicalSpecs carries the asset production settings of a brief.
type TechnicalSpecs struct {
	Template     string `json:"template" yaml:"template"`
	AspectRatio  string `json:"aspect_ratio" yaml:"aspect_ratio"`
	ProductPhoto string `json:"product_photo" yaml:"product_photo"`
	Variations   int    `json:"variations" yaml:"variations"`
	AssetWidth   int    `json:"asset_width" yaml:"asset_width"`
	AssetHeight  int    `json:"asset_height" yaml:"asset_height"`
}

// Ratio returns the aspect ratio label, defaulting to "1x1".
func (t TechnicalSpecs) Ratio() string {
	if t.AspectRatio == "" {
		return "1x1"
	}
	return t.AspectRatio
}

// VariantCount returns how many background variants to generate, at least 1.
func (t TechnicalSpecs) VariantCount() int {
	if t.Variations <= 0 {
		return 1
	}
	return t.Variations
}

// Width returns the generated asset width, defaulting to 1024.
func (t TechnicalSpecs) Width() int {
	if t.AssetWidth <= 0 {
		return 1024
	}
	return t.AssetWidth
}

// Height returns the generated asset height, defaulting to 1024.
func (t TechnicalSpecs) Height() int {
	if t.AssetHeight <= 0 {
		return 1024
	}
	return t.AssetHeight
}

// Brief is a campaign brief. The audience block is kept loosely typed
// because briefs carry free-form targeting data that flows into prompt
// generation as-is.
type Brief struct {
	CampaignName    string         `json:"campaign_name" yaml:"campaign_name"`
	CampaignMessage string         `json:"campaign_message" yaml:"campaign_message"`
	TargetRegion    string         `json:"target_region_market" yaml:"target_region_market"`
	TargetAudience  map[string]any `json:"target_audience" yaml:"target_audience"`
	Products        []Product      `json:"products" yaml:"products"`
	TechnicalSpecs  TechnicalSpecs `json:"technical_specs" yaml:"technical_specs"`
}

// Validate checks the fields the pipeline cannot run without.
func (b *Brief) Validate() error {
	var errs []error
	if strings.TrimSpace(b.CampaignMessage) == "" {
		errs = append(errs, fmt.Errorf("%w: campaign_message is required", ErrInvalidBrief))
	}
	if strings.TrimSpace(b.TechnicalSpecs.Template) == "" {
		errs = append(errs, fmt.Errorf("%w: technical_specs.template is required", ErrInvalidBrief))
	}
	return errors.Join(errs...)
}

// PrimarySKU returns the first product's SKU, or "UNKNOWN" when the brief
// names no products. Rendition files are keyed by this value.
func (b *Brief) PrimarySKU() string {
	if len(b.Products) > 0 && b.Products[0].SKU != "" {
		return b.Products[0].SKU
	}
	return "UNKNOWN"
}

// Demographics is the slice of a brief that drives prompt generation.
// Psychographics nested under the audience block are hoisted to the top
// level so the model sees them prominently.
type Demographics struct {
	TargetRegion   string         `json:"target_region_market,omitempty"`
	TargetAudience map[string]any `json:"target_audience,omitempty"`
	Psychographics any            `json:"psychographics,omitempty"`
}

// Empty reports whether the brief carried no targeting data at all.
func (d Demographics) Empty() bool {
	return d.TargetRegion == "" && len(d.TargetAudience) == 0 && d.Psychographics == nil
}

// Demographics extracts the targeting data used for prompt generation.
func (b *Brief) Demographics() Demographics {
	d := Demographics{
		TargetRegion:   b.TargetRegion,
		TargetAudience: b.TargetAudience,
	}
	if p, ok := b.TargetAudience["psychographics"]; ok {
		d.Psychographics = p
	}
	return d
}

// Parse decodes brief content in the format implied by ext
// (".json", ".yaml" or ".yml").
func Parse(content []byte, ext string) (*Brief, error) {
	var b Brief
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(content, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBrief, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBrief, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return &b, nil
}

// Load reads a campaign brief from a JSON or YAML file.
func Load(path string) (*Brief, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brief: %w", err)
	}
	b, err := Parse(content, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Files lists the brief files in dir (json, yaml or yml), sorted by name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read briefs directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir loads every brief in dir, sorted by filename. Files that fail to
// parse are skipped; the load fails only when nothing loads, with the
// per-file errors attached.
func LoadDir(dir string) ([]*Brief, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	var (
		briefs []*Brief
		errs   []error
	)
	for _, path := range files {
		b, err := Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		briefs = append(briefs, b)
	}

	if len(briefs) == 0 {
		errs = append([]error{fmt.Errorf("%w in %s", ErrNoBriefs, dir)}, errs...)
		return nil, errors.Join(errs...)
	}
	return briefs, nil
}
