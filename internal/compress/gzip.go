// Package compress handles the gzip pass over database dumps. The stored
// format stays compatible with plain `gunzip` so dumps remain restorable
// without this tool.
package compress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Compress gzips the file at inputPath at the given level (1-9), writes
// the result next to it with a .gz suffix, removes the original and
// returns the compressed path. On error the original file is left intact
// so the caller can promote it raw.
func Compress(inputPath string, level int) (string, error) {
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		return "", fmt.Errorf("compression level %d out of range 1-9", level)
	}
	outputPath := inputPath + ".gz"

	inFile, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("open input file: %w", err)
	}
	defer inFile.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}

	writer, err := gzip.NewWriterLevel(outFile, level)
	if err != nil {
		outFile.Close()
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("create gzip writer: %w", err)
	}

	if _, err := io.Copy(writer, inFile); err != nil {
		writer.Close()
		outFile.Close()
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("compress file: %w", err)
	}
	if err := writer.Close(); err != nil {
		outFile.Close()
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("flush gzip stream: %w", err)
	}
	if err := outFile.Close(); err != nil {
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("close output file: %w", err)
	}

	if err := os.Remove(inputPath); err != nil {
		return "", fmt.Errorf("remove original file: %w", err)
	}
	return outputPath, nil
}

// Decompress gunzips the file at inputPath into a sibling without the .gz
// suffix and returns that path. The compressed file is kept; records are
// immutable.
func Decompress(inputPath string) (string, error) {
	outputPath := strings.TrimSuffix(inputPath, ".gz")
	if outputPath == inputPath {
		return "", fmt.Errorf("input %q has no .gz suffix", inputPath)
	}

	inFile, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("open compressed file: %w", err)
	}
	defer inFile.Close()

	reader, err := gzip.NewReader(inFile)
	if err != nil {
		return "", fmt.Errorf("open gzip stream: %w", err)
	}
	defer reader.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}

	if _, err := io.Copy(outFile, reader); err != nil {
		outFile.Close()
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("decompress file: %w", err)
	}
	if err := outFile.Close(); err != nil {
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("close output file: %w", err)
	}
	return outputPath, nil
}
