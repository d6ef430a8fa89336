package extract

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/mholler/imagetext/internal/imaging"
	"github.com/mholler/imagetext/internal/observability"
	"github.com/mholler/imagetext/internal/ocr"
)

// Defaults for pipeline settings left at their zero value.
const (
	// DefaultDeadline bounds a whole extraction.
	DefaultDeadline = 45 * time.Second

	// DefaultPassTimeout bounds a single recognition pass.
	DefaultPassTimeout = 15 * time.Second
)

// Config tunes a Pipeline. The zero value of every field selects a sensible
// default, so Config{} is a working configuration.
type Config struct {
	// MaxDimension bounds the longer image side during normalization.
	// Zero uses imaging.MaxDimension.
	MaxDimension int

	// Workers caps concurrent recognition passes. Zero uses one per CPU.
	Workers int

	// Deadline bounds the whole extraction. Passes that have not finished
	// when it expires are skipped rather than failing the extraction.
	Deadline time.Duration

	// PassTimeout bounds each individual recognition pass.
	PassTimeout time.Duration

	// MinFragmentLength is the cleaned-length cutoff below which (and at
	// which) fragments are discarded. Zero uses DefaultMinFragmentLength.
	MinFragmentLength int

	// OutputDir receives extraction reports. Empty disables report writing.
	OutputDir string
}

// Result is the outcome of one extraction.
type Result struct {
	// Source is the image name or path the caller supplied.
	Source string `json:"source"`

	// Sentences holds the reconstructed text in reading order.
	Sentences []string `json:"sentences"`

	// Fragments holds every raw fragment that survived its engine's
	// confidence floor, in recognition sweep order.
	Fragments []ocr.Fragment `json:"fragments"`

	// Metrics summarizes the extraction.
	Metrics Metrics `json:"metrics"`

	// ReportPath is the written report location, empty when report
	// writing is disabled.
	ReportPath string `json:"report_path,omitempty"`
}

// Pipeline runs the full image to text flow: normalization, variant
// generation, the recognition sweep, cleaning, and sentence reconstruction.
// A Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	tesseract *ocr.Tesseract
	neural    *ocr.Neural
	cleaner   *Cleaner
	log       *observability.Logger
}

// New creates a Pipeline around the given engines. Either engine may be nil,
// which removes its passes from the sweep.
func New(cfg Config, tesseract *ocr.Tesseract, neural *ocr.Neural, log *observability.Logger) *Pipeline {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = imaging.MaxDimension
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = DefaultPassTimeout
	}
	if log == nil {
		log = observability.DefaultLogger()
	}

	return &Pipeline{
		cfg:       cfg,
		tesseract: tesseract,
		neural:    neural,
		cleaner:   NewCleaner(cfg.MinFragmentLength),
		log:       log.WithComponent("pipeline"),
	}
}

// Extract runs the pipeline over one image. The source name is used for
// logging and report naming only; data holds the encoded image bytes.
//
// Extract fails when the data cannot be decoded or the report cannot be
// written. Recognition failures never fail the extraction: an image in which
// no engine finds text yields a Result with Metrics.HasText false.
func (p *Pipeline) Extract(ctx context.Context, source string, data []byte) (*Result, error) {
	start := time.Now()

	img, format, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Deadline)
	defer cancel()

	normalized := imaging.Normalize(img, p.cfg.MaxDimension)

	variants, variantErrs := imaging.Variants(normalized)
	for _, ve := range variantErrs {
		p.log.Warn().Str("image", source).Str("variant", ve.Name).Err(ve.Err).
			Msg("variant generation failed")
	}

	passes := p.buildPasses(normalized, variants)
	fragments := p.sweep(ctx, passes)

	cleaned := p.cleaner.CleanAll(fragments)
	sentences := Reconstruct(cleaned)

	var reportPath string
	if p.cfg.OutputDir != "" {
		reportPath, err = WriteReport(p.cfg.OutputDir, source, sentences, fragments, time.Now())
		if err != nil {
			return nil, err
		}
	}

	metrics := BuildMetrics(sentences, fragments, time.Since(start))

	p.log.Info().
		Str("image", source).
		Str("format", format).
		Int("passes", len(passes)).
		Int("fragments", len(fragments)).
		Int("sentences", len(sentences)).
		Bool("has_text", metrics.HasText).
		Dur("elapsed", metrics.ProcessingTime).
		Msg("extraction complete")

	return &Result{
		Source:     source,
		Sentences:  sentences,
		Fragments:  fragments,
		Metrics:    metrics,
		ReportPath: reportPath,
	}, nil
}

// pass is one scheduled recognition unit in the sweep.
type pass struct {
	engine  string
	variant string
	mode    ocr.SegMode
	run     func(ctx context.Context) ([]ocr.Fragment, error)
}

// buildPasses lays out the sweep schedule: the neural engine once over the
// normalized image, then tesseract over every variant and segmentation mode
// combination. The schedule order fixes the merge order of the results.
func (p *Pipeline) buildPasses(normalized *image.Gray, variants []imaging.Variant) []pass {
	passes := make([]pass, 0, 1+len(variants)*len(ocr.AllSegModes))

	if p.neural != nil && p.neural.Enabled() {
		passes = append(passes, pass{
			engine:  ocr.EngineNeural,
			variant: imaging.VariantOriginal,
			run: func(ctx context.Context) ([]ocr.Fragment, error) {
				return p.neural.Recognize(ctx, normalized)
			},
		})
	}

	if p.tesseract != nil {
		for _, v := range variants {
			for _, mode := range ocr.AllSegModes {
				img, name, mode := v.Image, v.Name, mode
				passes = append(passes, pass{
					engine:  ocr.EngineTesseract,
					variant: name,
					mode:    mode,
					run: func(ctx context.Context) ([]ocr.Fragment, error) {
						return p.tesseract.Recognize(ctx, img, mode)
					},
				})
			}
		}
	}

	return passes
}

// sweep runs the passes on a bounded worker pool and merges their fragments
// in schedule order. Each pass writes only its own slot of the results
// slice, so no locking is needed around the merge.
func (p *Pipeline) sweep(ctx context.Context, passes []pass) []ocr.Fragment {
	if len(passes) == 0 {
		return nil
	}

	workers := p.cfg.Workers
	if workers > len(passes) {
		workers = len(passes)
	}

	results := make([][]ocr.Fragment, len(passes))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = p.runPass(ctx, passes[idx])
			}
		}()
	}

	for idx := range passes {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var merged []ocr.Fragment
	for idx, frags := range results {
		for _, frag := range frags {
			frag.Variant = passes[idx].variant
			merged = append(merged, frag)
		}
	}

	return merged
}

// runPass executes one recognition pass under its own timeout, absorbing
// errors and panics so a single bad pass cannot sink the sweep.
func (p *Pipeline) runPass(ctx context.Context, ps pass) (frags []ocr.Fragment) {
	passCtx, cancel := context.WithTimeout(ctx, p.cfg.PassTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.log.Warn().
				Str("engine", ps.engine).
				Str("variant", ps.variant).
				Str("panic", fmt.Sprint(r)).
				Msg("recognition pass panicked")
			frags = nil
		}
	}()

	frags, err := ps.run(passCtx)
	if err != nil {
		evt := p.log.Debug().Str("engine", ps.engine).Str("variant", ps.variant)
		if ps.engine == ocr.EngineTesseract {
			evt = evt.Str("mode", ps.mode.String())
		}
		evt.Err(err).Msg("recognition pass skipped")
		return nil
	}

	return frags
}
