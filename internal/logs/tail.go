package logs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

const maxLineBytes = 1024 * 1024

// TailOptions selects which part of the log file to read. A negative Offset
// asks for the last Limit lines; a non-negative Offset reads forward from
// that byte position.
type TailOptions struct {
	Offset int64
	Limit  int
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines with bounded memory. A missing file is not an error:
// the daemon may simply not have written anything yet.
func Tail(path string, opts TailOptions) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if opts.Offset < 0 {
		return tailLast(file, opts.Limit)
	}
	return readForward(file, opts.Offset, opts.Limit)
}

// tailLast keeps a ring of the final lines so arbitrarily large files never
// load fully into memory.
func tailLast(file *os.File, limit int) (TailResult, error) {
	if limit <= 0 {
		limit = 50
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	ring := make([]string, limit)
	total := 0
	for scanner.Scan() {
		ring[total%limit] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return TailResult{}, fmt.Errorf("determine log offset: %w", err)
	}

	count := total
	if count > limit {
		count = limit
	}
	lines := make([]string, 0, count)
	for i := total - count; i < total; i++ {
		lines = append(lines, ring[i%limit])
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

func readForward(file *os.File, offset int64, limit int) (TailResult, error) {
	info, err := file.Stat()
	if err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = info.Size()
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	read := offset
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		read += int64(len(scanner.Bytes())) + 1
		if limit > 0 && len(lines) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}
	return TailResult{Lines: lines, Offset: read}, nil
}
