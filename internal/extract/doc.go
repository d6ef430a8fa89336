// Package extract orchestrates the full image to text pipeline.
//
// An extraction flows through five stages: the source bytes are decoded and
// normalized (grayscale, bounded resize, contrast, sharpening), a fixed set
// of preprocessing variants is generated, every recognition pass of every
// engine runs over its variant, the raw fragments are cleaned and
// deduplicated, and the surviving text is reassembled into sentences. The
// Pipeline type wires the stages together; the stage functions are exported
// separately so callers can run cleaning or reconstruction on their own
// fragment streams.
//
// # Recognition Sweep
//
// The sweep schedules one pass for the neural engine (over the normalized
// image) followed by one tesseract pass per variant and segmentation mode
// combination. Passes run concurrently on a bounded worker pool, each with
// its own timeout, and their fragments are merged back in schedule order so
// results are deterministic for a given input regardless of worker timing.
//
// # Failure Handling
//
// A failed or panicking pass is logged and contributes nothing; recognition
// only fails as a whole when the input cannot be decoded. An image in which
// no engine finds text is a successful extraction with HasText false. Report
// writing is the one stage after decoding that can fail the pipeline, since
// losing the durable report silently would defeat its purpose.
package extract
