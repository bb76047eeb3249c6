// Package imageio loads survey photos into memory, writes annotated results
// back to disk and reads capture metadata. Decoding goes through a registry
// keyed by file extension; RAW files are converted through their embedded
// preview or an external converter.
package imageio
