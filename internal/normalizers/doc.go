// Package normalizers provides implementations of the Normalizer interface
// for various document formats. Each normalizer converts a specific family
// of MIME types to canonical text; the registry selects the best match and
// stamps the result with its content fingerprint.
//
// Normalizers are registered with the NormalizerRegistry at startup.
package normalizers
