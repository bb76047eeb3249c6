package imageio

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// Utility functions used across the various image loaders

// Check if exiftool is available on the system
func hasExiftool() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// Check if dcraw is available on the system
func hasDcraw() bool {
	_, err := exec.LookPath("dcraw")
	return err == nil
}

// Check if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Check if a file exists and has content
func hasFileContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// runToFile runs an external tool with its stdout redirected to outputPath
func runToFile(outputPath, name string, args ...string) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	cmd := exec.Command(name, args...)
	cmd.Stdout = outFile
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w (stderr: %s)", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if !hasFileContent(outputPath) {
		return fmt.Errorf("%s produced no output", name)
	}
	return nil
}
