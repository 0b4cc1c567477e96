package ui

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	barWidth       = 40
	redrawInterval = 100 * time.Millisecond
)

// bar draws a single-line transfer progress bar to out. A nil out draws
// nothing.
type bar struct {
	label      string
	total      int64
	current    int64
	out        io.Writer
	startTime  time.Time
	lastUpdate time.Time
	finished   bool
}

func newBar(label string, total int64, out io.Writer) *bar {
	return &bar{
		label:     label,
		total:     total,
		out:       out,
		startTime: time.Now(),
	}
}

func (b *bar) add(n int) {
	b.current += int64(n)
	if b.out == nil || b.finished {
		return
	}
	done := b.total > 0 && b.current >= b.total
	// Only update every 100ms or if complete to avoid flashing
	if !done && time.Since(b.lastUpdate) < redrawInterval {
		return
	}
	b.lastUpdate = time.Now()

	duration := time.Since(b.startTime).Seconds()
	if duration == 0 {
		duration = 0.0001
	}
	speed := float64(b.current) / (1024 * 1024) / duration // MB/s

	if b.total <= 0 {
		fmt.Fprintf(b.out, "\r%s %.2f MB (%.2f MB/s)", b.label, float64(b.current)/(1024*1024), speed)
		return
	}

	ratio := float64(b.current) / float64(b.total)
	if ratio > 1 {
		ratio = 1
	}
	completed := int(float64(barWidth) * ratio)
	line := strings.Repeat("█", completed) + strings.Repeat("░", barWidth-completed)

	fmt.Fprintf(b.out, "\r%s [%s] %.1f%% (%.2f MB/s)", b.label, line, ratio*100, speed)
	if done {
		b.finished = true
		fmt.Fprintln(b.out)
	}
}

// ProgressReader tracks the number of bytes read and updates a progress bar.
type ProgressReader struct {
	Reader io.Reader
	bar    *bar
}

// NewProgressReader wraps r. Progress is drawn to out; pass nil to count
// silently. total <= 0 means the size is unknown.
func NewProgressReader(label string, total int64, r io.Reader, out io.Writer) *ProgressReader {
	return &ProgressReader{Reader: r, bar: newBar(label, total, out)}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.bar.add(n)
	return n, err
}

// Current is the number of bytes read so far.
func (pr *ProgressReader) Current() int64 { return pr.bar.current }

// ProgressWriter tracks the number of bytes written and updates a progress bar.
type ProgressWriter struct {
	Writer io.Writer
	bar    *bar
}

// NewProgressWriter wraps w, drawing to out like NewProgressReader.
func NewProgressWriter(label string, total int64, w io.Writer, out io.Writer) *ProgressWriter {
	return &ProgressWriter{Writer: w, bar: newBar(label, total, out)}
}

func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.bar.add(n)
	return n, err
}

// Current is the number of bytes written so far.
func (pw *ProgressWriter) Current() int64 { return pw.bar.current }
