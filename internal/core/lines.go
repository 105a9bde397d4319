package core

// lines.go reads test logs into memory as lines.
//
// Controllers on Windows hosts may prefix files with a UTF-8 BOM and emit
// stray Latin-1 bytes (degree and micro signs) in unit rows. The BOM is
// dropped and invalid UTF-8 is replaced with '?', so downstream parsing only
// ever sees valid strings.
//
// A trailing line without a newline is still being written by the stand and
// is left for the next run.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadLines returns the complete lines of the file at path, without line
// terminators.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines, err := ScanLines(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// ScanLines splits r into complete lines. A final unterminated line is
// discarded.
func ScanLines(r io.Reader) ([]string, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	var lines []string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return nil, err
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		lines = append(lines, strings.ToValidUTF8(line, "?"))
	}
}

// CountLines returns the number of complete lines in the file at path.
func CountLines(path string) (int, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}
