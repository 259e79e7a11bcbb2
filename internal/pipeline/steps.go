package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creativepipe/cap/pkg/adobe"
	"github.com/creativepipe/cap/pkg/async"
	"github.com/creativepipe/cap/pkg/brief"
	"github.com/creativepipe/cap/pkg/logger"
	"github.com/creativepipe/cap/pkg/storage"
)

// Layer names every campaign template is expected to carry.
const (
	layerCampaignMessage = "Campaign Message"
	layerProduct         = "Product"
	layerBackground      = "Background Image"
)

// ProcessBrief runs one campaign brief through the full pipeline and
// returns the files it produced.
func (r *Runner) ProcessBrief(ctx context.Context, b *brief.Brief) (*BriefResult, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	specs := b.TechnicalSpecs
	stem := storage.SafeSegment(strings.TrimSuffix(specs.Template, ".psd"))
	aspect := specs.Ratio()
	sku := b.PrimarySKU()

	log := r.log.With(slog.String("template", specs.Template), logger.SKU(sku))
	log.InfoContext(ctx, "processing campaign brief",
		slog.String("campaign", b.CampaignName), slog.String("aspect_ratio", aspect))

	result := &BriefResult{
		CampaignName: b.CampaignName,
		Template:     specs.Template,
		AspectRatio:  aspect,
	}

	// Stage the template and record its layer manifest.
	templatePath, err := r.resolveAsset("templates", specs.Template)
	if err != nil {
		return nil, err
	}
	templateURL, err := r.stageFile(ctx, storage.JoinKey("templates", specs.Template), templatePath)
	if err != nil {
		return nil, fmt.Errorf("stage template: %w", err)
	}
	if err := r.saveManifest(ctx, templateURL, stem); err != nil {
		return nil, fmt.Errorf("document manifest: %w", err)
	}

	// Write the campaign message into the text layer.
	textName := stem + "-text.psd"
	textURL, err := r.editText(ctx, templateURL, b.CampaignMessage, storage.JoinKey("processed", textName))
	if err != nil {
		return nil, fmt.Errorf("text layer edit: %w", err)
	}
	result.FilesCreated = append(result.FilesCreated, textName)
	log.InfoContext(ctx, "campaign message applied", slog.String("file", textName))

	// Swap in the product photo when the brief ships one. A missing photo
	// downgrades to the text-edited PSD instead of failing the brief.
	composedURL := textURL
	if specs.ProductPhoto == "" {
		log.WarnContext(ctx, "no product photo specified, keeping text output")
	} else if productPath, err := r.resolveAsset("images", specs.ProductPhoto); err != nil {
		log.WarnContext(ctx, "product photo not found, keeping text output",
			slog.String("product_photo", specs.ProductPhoto))
	} else {
		productURL, err := r.stageFile(ctx, storage.JoinKey("products", filepath.Base(productPath)), productPath)
		if err != nil {
			return nil, fmt.Errorf("stage product photo: %w", err)
		}
		productName := stem + "-product.psd"
		composedURL, err = r.replaceObject(ctx, textURL, layerProduct, productURL,
			storage.JoinKey("processed", productName))
		if err != nil {
			return nil, fmt.Errorf("product replacement: %w", err)
		}
		result.FilesCreated = append(result.FilesCreated, productName)
		log.InfoContext(ctx, "product photo applied", slog.String("file", productName))
	}

	// Generate Firefly backgrounds. Failures degrade to the composed PSD so
	// the campaign still ships.
	var backgrounds []string
	if r.skipFirefly {
		log.InfoContext(ctx, "background generation skipped")
	} else if urls, err := r.generateBackgrounds(ctx, b); err != nil {
		log.WarnContext(ctx, "background generation failed, continuing without", logger.Error(err))
	} else {
		backgrounds = urls
		log.InfoContext(ctx, "firefly backgrounds generated", slog.Int("count", len(urls)))
	}

	if len(backgrounds) == 0 {
		renditionName := fmt.Sprintf("%s-%s-final-1.png", sku, aspect)
		if err := r.renderAndFetch(ctx, composedURL, aspect, renditionName); err != nil {
			return nil, fmt.Errorf("rendition: %w", err)
		}
		result.FilesCreated = append(result.FilesCreated, "rendition: "+renditionName)
	} else {
		futures := make([]*async.Future[variantFiles], len(backgrounds))
		for i, imageURL := range backgrounds {
			n := i + 1
			futures[i] = async.Go(ctx, func(ctx context.Context) (variantFiles, error) {
				return r.processVariant(ctx, composedURL, imageURL, stem, sku, aspect, n)
			})
		}
		variants, err := async.AwaitAll(futures...)
		if err != nil {
			return nil, fmt.Errorf("background variant: %w", err)
		}
		for _, v := range variants {
			result.FilesCreated = append(result.FilesCreated, v.finalPSD)
		}
		for _, v := range variants {
			result.FilesCreated = append(result.FilesCreated, "rendition: "+v.rendition)
		}
	}

	log.InfoContext(ctx, "campaign brief completed",
		slog.Int("files_created", len(result.FilesCreated)), logger.Duration(time.Since(started)))
	return result, nil
}

// variantFiles names the outputs of one background variant.
type variantFiles struct {
	finalPSD  string
	rendition string
}

// processVariant stages one generated background, swaps it into the
// composed PSD and produces the downloadable rendition.
func (r *Runner) processVariant(ctx context.Context, baseURL, imageURL, stem, sku, aspect string, n int) (variantFiles, error) {
	bgKey := storage.JoinKey("firefly-images", fmt.Sprintf("firefly-bg-%d.png", n))
	stagedURL, err := r.stageRemoteImage(ctx, imageURL, bgKey)
	if err != nil {
		return variantFiles{}, fmt.Errorf("stage background %d: %w", n, err)
	}

	finalName := fmt.Sprintf("%s-final-%d.psd", stem, n)
	finalURL, err := r.replaceObject(ctx, baseURL, layerBackground, stagedURL,
		storage.JoinKey("processed", finalName))
	if err != nil {
		return variantFiles{}, fmt.Errorf("background replacement %d: %w", n, err)
	}

	renditionName := fmt.Sprintf("%s-%s-final-%d.png", sku, aspect, n)
	if err := r.renderAndFetch(ctx, finalURL, aspect, renditionName); err != nil {
		return variantFiles{}, fmt.Errorf("rendition %d: %w", n, err)
	}

	return variantFiles{finalPSD: finalName, rendition: renditionName}, nil
}

// resolveAsset looks for name under the given assets subdirectory, falling
// back to the assets root.
func (r *Runner) resolveAsset(sub, name string) (string, error) {
	primary := filepath.Join(r.assetsDir, sub, name)
	if _, err := os.Stat(primary); err == nil {
		return primary, nil
	}
	flat := filepath.Join(r.assetsDir, name)
	if _, err := os.Stat(flat); err == nil {
		return flat, nil
	}
	return "", fmt.Errorf("%w: %s", ErrAssetNotFound, name)
}

// stageFile uploads a local file and hands back a presigned GET URL that
// Adobe can read it from.
func (r *Runner) stageFile(ctx context.Context, key, localPath string) (string, error) {
	if err := r.store.UploadFile(ctx, key, localPath); err != nil {
		return "", err
	}
	return r.store.PresignDownload(ctx, key, r.presignTTL)
}

// stageRemoteImage copies an image from a remote URL into the bucket and
// returns a presigned GET URL for it.
func (r *Runner) stageRemoteImage(ctx context.Context, imageURL, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("fetch image: unexpected status %s", resp.Status)
	}
	if err := r.store.Upload(ctx, key, resp.Body, "image/png"); err != nil {
		return "", err
	}
	return r.store.PresignDownload(ctx, key, r.presignTTL)
}

// saveManifest records the template's layer manifest under the manifests
// directory for inspection and debugging.
func (r *Runner) saveManifest(ctx context.Context, templateURL, stem string) error {
	statusURL, err := r.editor.CreateManifest(ctx, templateURL)
	if err != nil {
		return err
	}
	raw, err := r.editor.AwaitJob(ctx, statusURL)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("format manifest: %w", err)
	}
	if err := os.MkdirAll(r.manifestsDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(r.manifestsDir, stem+"-manifest.json")
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		return err
	}

	r.log.InfoContext(ctx, "document manifest saved", slog.String("path", path))
	return nil
}

// editText runs a text layer job and returns a presigned GET URL for the
// output PSD.
func (r *Runner) editText(ctx context.Context, inputURL, message, outputKey string) (string, error) {
	outputURL, err := r.store.PresignUpload(ctx, outputKey, r.presignTTL, "")
	if err != nil {
		return "", err
	}
	statusURL, err := r.editor.EditTextLayer(ctx, adobe.TextEdit{
		InputURL:  inputURL,
		LayerName: layerCampaignMessage,
		Text:      message,
		OutputURL: outputURL,
	})
	if err != nil {
		return "", err
	}
	if _, err := r.editor.AwaitJob(ctx, statusURL); err != nil {
		return "", err
	}
	return r.store.PresignDownload(ctx, outputKey, r.presignTTL)
}

// replaceObject swaps a smart object layer and returns a presigned GET URL
// for the output PSD.
func (r *Runner) replaceObject(ctx context.Context, inputURL, layer, contentURL, outputKey string) (string, error) {
	outputURL, err := r.store.PresignUpload(ctx, outputKey, r.presignTTL, "")
	if err != nil {
		return "", err
	}
	statusURL, err := r.editor.ReplaceSmartObject(ctx, adobe.SmartObjectSwap{
		InputURL:   inputURL,
		LayerName:  layer,
		ContentURL: contentURL,
		OutputURL:  outputURL,
	})
	if err != nil {
		return "", err
	}
	if _, err := r.editor.AwaitJob(ctx, statusURL); err != nil {
		return "", err
	}
	return r.store.PresignDownload(ctx, outputKey, r.presignTTL)
}

// generateBackgrounds writes a prompt from the brief demographics and asks
// Firefly for background variants sized per the technical specs.
func (r *Runner) generateBackgrounds(ctx context.Context, b *brief.Brief) ([]string, error) {
	prompt, err := r.prompter.FireflyPrompt(ctx, b.Demographics())
	if err != nil {
		return nil, err
	}
	r.log.InfoContext(ctx, "firefly prompt generated", slog.String("prompt", prompt))

	specs := b.TechnicalSpecs
	return r.images.GenerateAndAwait(ctx, adobe.GenerateRequest{
		Prompt:        prompt,
		NumVariations: specs.VariantCount(),
		Width:         specs.Width(),
		Height:        specs.Height(),
	})
}

// renderAndFetch produces a PNG rendition of the input PSD and downloads it
// into the aspect ratio folder of the output directory.
func (r *Runner) renderAndFetch(ctx context.Context, inputURL, aspect, renditionName string) error {
	key := storage.JoinKey("renditions", renditionName)
	outputURL, err := r.store.PresignUpload(ctx, key, r.presignTTL, "")
	if err != nil {
		return err
	}
	statusURL, err := r.editor.CreateRendition(ctx, inputURL, outputURL)
	if err != nil {
		return err
	}
	if _, err := r.editor.AwaitJob(ctx, statusURL); err != nil {
		return err
	}

	localPath := filepath.Join(r.outputDir, aspect, renditionName)
	if err := r.store.Download(ctx, key, localPath); err != nil {
		return err
	}

	r.log.InfoContext(ctx, "rendition downloaded", slog.String("path", localPath))
	return nil
}
