// Package uuencode implements the UUENCODE framing used for binary documents
// inside EDGAR submissions.
//
// Decode accepts standard UUENCODE text. Encode reproduces the output of the
// legacy EDGAR encoder: the final partial group is padded with 0x01 bytes
// instead of zeros, trailing spaces are stripped from every line, and two
// observed suffix artifacts on the final line are rewritten verbatim.
package uuencode
