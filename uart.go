// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

// Reads range frames sent by the ranging board over UART.
// Frame format: [D1,D2,D3,Vbat,Currmot1,Currmot2], ranges in centimeters.

package gouwb

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// RangeSource yields one raw range vector [mm] per cycle
type RangeSource interface {
	ReadRanges() ([]float64, error)
}

// PowerStatus is the battery telemetry carried by a frame
type PowerStatus struct {
	Vbat  float64 `json:"vbat"`  // Battery voltage [V]
	Curr1 float64 `json:"curr1"` // Motor 1 current [A]
	Curr2 float64 `json:"curr2"` // Motor 2 current [A]
}

// PowerSource reports the latest battery telemetry, if any
type PowerSource interface {
	Power() (PowerStatus, bool)
}

// ParseFrame parses one bracketed frame
func ParseFrame(b []byte) ([NFRAME]float64, error) {
	var v [NFRAME]float64
	s := strings.TrimSpace(string(b))
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return v, errors.Errorf("frame not bracketed: %q", s)
	}
	parts := strings.Split(strings.Trim(s, "[]"), ",")
	if len(parts) != NFRAME {
		return v, errors.Errorf("expected %d values, got %d", NFRAME, len(parts))
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, errors.Wrapf(err, "value %d", i)
		}
		v[i] = f
	}
	return v, nil
}

// FrameReader keeps the latest valid frame read from a byte stream.
// Listen runs on its own goroutine; ReadRanges is called by the control loop.
type FrameReader struct {
	mu    sync.RWMutex
	last  [NFRAME]float64
	valid bool
	seq   uint64
	err   error
}

func NewFrameReader() *FrameReader {
	return &FrameReader{}
}

// Listen reads frames from r until it fails. Malformed frames are skipped.
func (fr *FrameReader) Listen(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		chunk, err := br.ReadBytes(']')
		if len(chunk) > 0 && chunk[len(chunk)-1] == ']' {
			if i := bytes.LastIndexByte(chunk, '['); i >= 0 {
				frame, perr := ParseFrame(chunk[i:])
				if perr != nil {
					PrintD(1, "uart: %v", perr)
				} else {
					fr.update(frame)
				}
			}
		}
		if err != nil {
			fr.mu.Lock()
			fr.err = err
			fr.mu.Unlock()
			return err
		}
	}
}

func (fr *FrameReader) update(frame [NFRAME]float64) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.last = frame
	fr.valid = true
	fr.seq++
}

// ReadRanges returns the ranges of the latest frame in millimeters.
// The same frame is returned again until a new one arrives. Once the stream
// has failed every call is an invalid measurement.
func (fr *FrameReader) ReadRanges() ([]float64, error) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	if fr.err != nil {
		return nil, errors.Wrapf(ErrInvalidMeasurement, "uart: %v", fr.err)
	}
	if !fr.valid {
		return nil, errors.Wrap(ErrInvalidMeasurement, "uart: no frame received")
	}
	out := make([]float64, NSENSORS)
	for i := range out {
		out[i] = fr.last[i] * CM_TO_MM
	}
	return out, nil
}

// Power returns battery voltage and motor currents of the latest frame
func (fr *FrameReader) Power() (PowerStatus, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	return PowerStatus{Vbat: fr.last[3], Curr1: fr.last[4], Curr2: fr.last[5]}, fr.valid
}

// Seq counts the frames accepted so far
func (fr *FrameReader) Seq() uint64 {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	return fr.seq
}
