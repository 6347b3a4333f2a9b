// Package results archives finished aggregates as zstd-compressed gob files.
package results

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"dla-grow/internal/sims/dla"
)

// Version is bumped whenever Result changes incompatibly.
const Version = 1

// Header is written as a JSON line ahead of the gob body so archives can be
// identified without decoding them.
type Header struct {
	Version   int    `json:"version"`
	JobID     string `json:"job_id"`
	Stuck     int    `json:"stuck"`
	Iteration int    `json:"iteration"`
}

// Result is everything kept about one finished aggregate.
type Result struct {
	Header Header

	Config    dla.Config
	Snapshot  dla.Snapshot
	BoxCounts dla.BoxCounts

	// Dimension is the fitted box-counting dimension; HasDimension is false
	// when too few scales were occupied to fit one.
	Dimension    float64
	HasDimension bool

	Elapsed    time.Duration
	FinishedAt time.Time
}

// ErrVersion is returned when an archive was written by an incompatible version.
var ErrVersion = errors.New("results: unsupported archive version")

// FromSimulation captures s under jobID.
func FromSimulation(jobID string, s *dla.Simulation, elapsed time.Duration) Result {
	snap := s.Snapshot()
	r := Result{
		Header: Header{
			Version:   Version,
			JobID:     jobID,
			Stuck:     len(snap.Stuck),
			Iteration: snap.Iteration,
		},
		Config:     s.Config(),
		Snapshot:   snap,
		BoxCounts:  s.BoxCounts(),
		Elapsed:    elapsed,
		FinishedAt: time.Now().UTC(),
	}
	if d, err := dla.FitDimension(r.BoxCounts.Map()); err == nil {
		r.Dimension, r.HasDimension = d, true
	}
	return r
}

// Encode writes r to w as a zstd stream holding a JSON header line and a gob body.
func Encode(w io.Writer, r Result) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(r.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&r); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a Result written by Encode.
func Decode(rd io.Reader) (Result, error) {
	var r Result
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return r, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return r, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return r, fmt.Errorf("parse header: %w", err)
	}
	if h.Version != Version {
		return r, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&r); err != nil {
		return r, fmt.Errorf("gob decode: %w", err)
	}
	return r, nil
}

// Marshal encodes r into memory, for shipping over the job protocol.
func Marshal(r Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(b []byte) (Result, error) {
	return Decode(bytes.NewReader(b))
}

// WriteFile stores r at path, creating parent directories.
func WriteFile(path string, r Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads the Result stored at path.
func ReadFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Decode(f)
}

// FileName is the archive name used for jobID inside an output directory.
func FileName(jobID string) string {
	return jobID + ".dla.zst"
}
