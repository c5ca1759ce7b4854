package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// TailOptions selects lines. A negative Offset reads the last Limit lines;
// otherwise reading starts at Offset. Contains keeps only matching lines.
type TailOptions struct {
	Offset   int64
	Limit    int
	Contains string
}

// TailResult carries the selected lines and the offset after them.
type TailResult struct {
	Lines  []string
	Offset int64
}

func (o TailOptions) match(line string) bool {
	return o.Contains == "" || strings.Contains(line, o.Contains)
}

// Tail reads path once.
func Tail(path string, opts TailOptions) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Offset < 0 {
		return lastLines(file, opts)
	}
	offset := opts.Offset
	if offset > info.Size() {
		// Truncated or rotated; start over.
		offset = 0
	}
	return forward(file, offset, opts)
}

// Follow calls onLine for every matching line appended after offset until
// ctx ends.
func Follow(ctx context.Context, path string, offset int64, contains string, onLine func(string)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		result, err := Tail(path, TailOptions{Offset: offset, Contains: contains})
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			onLine(line)
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

func lastLines(file *os.File, opts TailOptions) (TailResult, error) {
	if opts.Limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return TailResult{}, fmt.Errorf("seek log file: %w", err)
		}
		return TailResult{Offset: end}, nil
	}

	ring := make([]string, opts.Limit)
	count, next := 0, 0
	var consumed int64
	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		consumed += int64(len(line)) + 1
		if !opts.match(line) {
			continue
		}
		ring[next] = line
		next = (next + 1) % opts.Limit
		if count < opts.Limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}

	// A final line without a newline was counted one byte long.
	if info, err := file.Stat(); err == nil && consumed > info.Size() {
		consumed = info.Size()
	}

	lines := make([]string, count)
	start := 0
	if count == opts.Limit {
		start = next
	}
	for i := range lines {
		lines[i] = ring[(start+i)%opts.Limit]
	}
	return TailResult{Lines: lines, Offset: consumed}, nil
}

// forward reads complete lines from offset. A trailing partial line is left
// for the next call.
func forward(file *os.File, offset int64, opts TailOptions) (TailResult, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReader(file)
	result := TailResult{Offset: offset}
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("read log file: %w", err)
		}
		result.Offset += int64(len(line))
		line = strings.TrimSuffix(line, "\n")
		if opts.match(line) {
			result.Lines = append(result.Lines, line)
		}
	}
}
