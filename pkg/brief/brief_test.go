package brief_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativepipe/cap/pkg/brief"
)

const briefJSON = `{
  "campaign_name": "Summer Launch",
  "campaign_message": "Adventure Awaits",
  "target_region_market": "DACH",
  "target_audience": {
    "age_range": "25-40",
    "psychographics": ["outdoor enthusiasts", "early adopters"]
  },
  "products": [
    {"sku": "WTCH-001", "name": "Trail Watch", "description": "GPS sports watch"}
  ],
  "technical_specs": {
    "template": "hero-template.psd",
    "aspect_ratio": "16x9",
    "product_photo": "watch.png",
    "variations": 3,
    "asset_width": 2048,
    "asset_height": 1024
  }
}`

const briefYAML = `campaign_name: Summer Launch
campaign_message: Adventure Awaits
target_region_market: DACH
target_audience:
  age_range: 25-40
  psychographics:
    - outdoor enthusiasts
    - early adopters
products:
  - sku: WTCH-001
    name: Trail Watch
    description: GPS sports watch
technical_specs:
  template: hero-template.psd
  aspect_ratio: 16x9
  product_photo: watch.png
  variations: 3
  asset_width: 2048
  asset_height: 1024
`

func writeBrief(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assertSummerLaunch(t *testing.T, b *brief.Brief) {
	t.Helper()
	assert.Equal(t, "Summer Launch", b.CampaignName)
	assert.Equal(t, "Adventure Awaits", b.CampaignMessage)
	assert.Equal(t, "DACH", b.TargetRegion)
	assert.Equal(t, "25-40", b.TargetAudience["age_range"])
	require.Len(t, b.Products, 1)
	assert.Equal(t, "WTCH-001", b.Products[0].SKU)
	assert.Equal(t, "hero-template.psd", b.TechnicalSpecs.Template)
	assert.Equal(t, "16x9", b.TechnicalSpecs.AspectRatio)
	assert.Equal(t, "watch.png", b.TechnicalSpecs.ProductPhoto)
	assert.Equal(t, 3, b.TechnicalSpecs.Variations)
	assert.Equal(t, 2048, b.TechnicalSpecs.AssetWidth)
	assert.Equal(t, 1024, b.TechnicalSpecs.AssetHeight)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		b, err := brief.Load(writeBrief(t, "summer.json", briefJSON))
		require.NoError(t, err)
		assertSummerLaunch(t, b)
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		b, err := brief.Load(writeBrief(t, "summer.yaml", briefYAML))
		require.NoError(t, err)
		assertSummerLaunch(t, b)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := brief.Load(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		_, err := brief.Load(writeBrief(t, "broken.json", "{not json"))
		require.ErrorIs(t, err, brief.ErrInvalidBrief)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		_, err := brief.Load(writeBrief(t, "brief.txt", "whatever"))
		require.ErrorIs(t, err, brief.ErrUnsupportedFormat)
	})
}

func TestBrief_Validate(t *testing.T) {
	t.Parallel()

	valid := brief.Brief{
		CampaignMessage: "Adventure Awaits",
		TechnicalSpecs:  brief.TechnicalSpecs{Template: "hero.psd"},
	}
	require.NoError(t, valid.Validate())

	noMessage := valid
	noMessage.CampaignMessage = "   "
	err := noMessage.Validate()
	require.ErrorIs(t, err, brief.ErrInvalidBrief)
	assert.Contains(t, err.Error(), "campaign_message")

	noTemplate := valid
	noTemplate.TechnicalSpecs.Template = ""
	err = noTemplate.Validate()
	require.ErrorIs(t, err, brief.ErrInvalidBrief)
	assert.Contains(t, err.Error(), "technical_specs.template")

	empty := brief.Brief{}
	err = empty.Validate()
	require.ErrorIs(t, err, brief.ErrInvalidBrief)
	assert.Contains(t, err.Error(), "campaign_message")
	assert.Contains(t, err.Error(), "technical_specs.template")
}

func TestTechnicalSpecs_Defaults(t *testing.T) {
	t.Parallel()

	var specs brief.TechnicalSpecs
	assert.Equal(t, "1x1", specs.Ratio())
	assert.Equal(t, 1, specs.VariantCount())
	assert.Equal(t, 1024, specs.Width())
	assert.Equal(t, 1024, specs.Height())

	specs = brief.TechnicalSpecs{AspectRatio: "9x16", Variations: 4, AssetWidth: 768, AssetHeight: 1344}
	assert.Equal(t, "9x16", specs.Ratio())
	assert.Equal(t, 4, specs.VariantCount())
	assert.Equal(t, 768, specs.Width())
	assert.Equal(t, 1344, specs.Height())
}

func TestBrief_PrimarySKU(t *testing.T) {
	t.Parallel()

	b := brief.Brief{Products: []brief.Product{{SKU: "WTCH-001"}, {SKU: "WTCH-002"}}}
	assert.Equal(t, "WTCH-001", b.PrimarySKU())

	assert.Equal(t, "UNKNOWN", (&brief.Brief{}).PrimarySKU())
	assert.Equal(t, "UNKNOWN", (&brief.Brief{Products: []brief.Product{{Name: "unnamed"}}}).PrimarySKU())
}

func TestBrief_Demographics(t *testing.T) {
	t.Parallel()

	t.Run("hoists psychographics", func(t *testing.T) {
		t.Parallel()
		b, err := brief.Load(writeBrief(t, "summer.json", briefJSON))
		require.NoError(t, err)

		demo := b.Demographics()
		assert.False(t, demo.Empty())
		assert.Equal(t, "DACH", demo.TargetRegion)
		assert.Equal(t, "25-40", demo.TargetAudience["age_range"])
		require.NotNil(t, demo.Psychographics)

		raw, err := json.Marshal(demo)
		require.NoError(t, err)
		encoded := string(raw)
		assert.Contains(t, encoded, `"psychographics":["outdoor enthusiasts","early adopters"]`)

		regionAt := strings.Index(encoded, "target_region_market")
		audienceAt := strings.Index(encoded, "target_audience")
		psychoAt := strings.Index(encoded, `"psychographics":[`)
		assert.Less(t, regionAt, audienceAt)
		assert.Less(t, audienceAt, psychoAt)
	})

	t.Run("empty brief", func(t *testing.T) {
		t.Parallel()
		demo := (&brief.Brief{}).Demographics()
		assert.True(t, demo.Empty())

		raw, err := json.Marshal(demo)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(raw))
	})

	t.Run("region only", func(t *testing.T) {
		t.Parallel()
		demo := (&brief.Brief{TargetRegion: "APAC"}).Demographics()
		assert.False(t, demo.Empty())
		assert.Nil(t, demo.Psychographics)
	})
}

func TestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b-second.yaml", "a-first.json", "notes.txt", "c-third.yml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	files, err := brief.Files(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a-first.json"), files[0])
	assert.Equal(t, filepath.Join(dir, "b-second.yaml"), files[1])
	assert.Equal(t, filepath.Join(dir, "c-third.yml"), files[2])
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	t.Run("skips broken briefs", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(briefJSON), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "also-good.yaml"), []byte(briefYAML), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

		briefs, err := brief.LoadDir(dir)
		require.NoError(t, err)
		require.Len(t, briefs, 2)
		assertSummerLaunch(t, briefs[0])
		assertSummerLaunch(t, briefs[1])
	})

	t.Run("nothing loadable", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

		_, err := brief.LoadDir(dir)
		require.ErrorIs(t, err, brief.ErrNoBriefs)
		require.ErrorIs(t, err, brief.ErrInvalidBrief)
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		_, err := brief.LoadDir(filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
	})
}
