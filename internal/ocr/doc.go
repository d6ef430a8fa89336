// Package ocr provides the text recognition engines behind the extraction
// pipeline.
//
// Two engines produce Fragment values with a shared shape: Tesseract, the
// classical engine wrapping gosseract/v2, and Neural, a detector-recognizer
// model reached over HTTP. The pipeline schedules both; each engine only
// recognizes.
//
// # Prerequisites
//
// The Tesseract engine needs the native library and language data installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each configured language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// Point TessdataPrefix at a custom trained-data directory when the system
// default does not apply. Use Available at process start to verify the
// native stack before accepting work.
//
// The Neural engine needs no local installation, only a reachable sidecar
// endpoint. An empty endpoint disables it cleanly.
//
// # Segmentation Modes
//
// Scene text defeats Tesseract's default page layout analysis, so the engine
// exposes four segmentation assumptions (uniform block, single line, single
// word, raw line) and the pipeline tries all of them. AllSegModes lists them
// in sweep order.
//
// # Confidence
//
// Both engines report confidence normalized to 0.0-1.0 and drop results
// below the configured floor before returning. The floor is inclusive: a
// word at exactly the floor survives. Tesseract's native 0-100 word
// confidence is divided by 100.
//
// # Error Handling
//
// Recognize methods return errors for engine setup failures, recognition
// failures, and canceled contexts. Callers are expected to treat these as
// per-pass events: the pipeline logs and absorbs them rather than failing
// the extraction.
package ocr
