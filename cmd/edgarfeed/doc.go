// Package main hosts the edgarfeed CLI entrypoint and command graph.
//
// The Cobra-based command tree runs feed ingestion (`run`), serves as the
// child worker process (`worker`), inspects single submission files
// (`parse`), rebuilds dissemination files from the store (`disseminate`),
// exposes the UUENCODE codec (`uuencode`, `uudecode`) and scaffolds
// configuration (`config`). It centralizes configuration resolution and
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
