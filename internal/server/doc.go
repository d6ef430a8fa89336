// Package server implements the HTTP API for image text extraction.
//
// This package exposes the extraction pipeline over REST, accepting image
// uploads and returning the reconstructed text as JSON. It is the service
// surface of the project; the same pipeline is also reachable from the CLI.
//
// # Endpoints
//
// The router serves four routes:
//   - GET  /health: Liveness probe with service version
//   - GET  /info: API capabilities and endpoint catalog
//   - POST /extract: Single image upload (multipart field "file")
//   - POST /extract/batch: Multiple uploads (repeated field "files")
//
// Unknown paths answer 404 and known paths with the wrong verb answer 405,
// both as JSON so clients never have to parse an HTML error page.
//
// # Uploads
//
// Accepted file extensions: png, jpg, jpeg, gif, bmp, tiff, tif. Request
// bodies are capped at the configured upload limit (16MB by default); an
// oversized body answers 413 before any decoding work starts. Each accepted
// upload is assigned a UUID which names its extraction report on disk and is
// echoed back as file_id.
//
// # Batch Semantics
//
// Batch requests never fail as a whole because one entry is bad. Files with
// an unsupported extension or undecodable content are skipped and logged;
// the response reports only the entries that produced a result, and
// total_files counts those. Batch results omit per-file processing time.
//
// # Error Handling
//
// Errors are returned as a JSON object with:
//   - error: Short category ("Invalid file type", "Processing failed", ...)
//   - message: Human-readable detail
//   - timestamp: RFC 3339 time, on processing failures only
//
// Client mistakes (missing file, bad extension, undecodable image data)
// answer 400; only genuine pipeline failures answer 500.
//
// # Usage
//
// The server is started from the serve command:
//
//	srv := server.New(cfg, pipeline, logger)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until the context is canceled, then drains in-flight requests
// within the configured graceful shutdown window.
package server
