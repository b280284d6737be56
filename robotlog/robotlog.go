// Package robotlog reads and writes the text log format used to record
// and play back a run: alternating `Odometry` and `Laser` lines, one
// pair per interval step. Recording and playback are the two halves of
// the "-R/-r/-P/-p" CLI surface; this package implements the I/O, not
// the hardware underneath it — a playback reader needs no sensor at
// all, the way the reference implementation's stub robot driver
// doesn't either.
package robotlog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
)

// Writer appends interval steps to a log in the format a Reader can
// play back later.
type Writer struct {
	w     io.Writer
	scale float64
}

// NewWriter wraps w. scale is the level's Config.Scale, used to convert
// beam distances from grid units back to metres on the way out.
func NewWriter(w io.Writer, scale float64) *Writer {
	return &Writer{w: w, scale: scale}
}

// WriteStep appends one Odometry/Laser line pair.
func (rw *Writer) WriteStep(step dpm.Step) error {
	if _, err := fmt.Fprintf(rw.w, "Odometry %.6f %.6f %.6f\n", step.Motion.D, step.Motion.C, step.Motion.T); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(rw.w, "Laser %d", len(step.Scan)); err != nil {
		return err
	}
	for _, b := range step.Scan {
		if _, err := fmt.Fprintf(rw.w, " %.6f", b.Distance/rw.scale); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(rw.w)
	return err
}

// Reader plays back a log written by Writer. BeamAngles supplies the
// fixed relative bearing of each beam in a scan; the log itself only
// ever records distances, the same fixed sensor geometry being assumed
// on both ends of a recording.
type Reader struct {
	sc         *bufio.Scanner
	scale      float64
	beamAngles []float64
}

// NewReader wraps r. scale is the level's Config.Scale, used to convert
// logged metre distances back into grid units.
func NewReader(r io.Reader, scale float64, beamAngles []float64) *Reader {
	return &Reader{sc: bufio.NewScanner(r), scale: scale, beamAngles: beamAngles}
}

// ReadStep reads the next Odometry/Laser line pair. It returns io.EOF
// (wrapped in neither error nor sentinel games — callers should compare
// with errors.Is) exactly at a clean end of file, which is the signal
// to stop the SLAM loop gracefully rather than treat the run as failed.
func (rr *Reader) ReadStep() (dpm.Step, error) {
	var step dpm.Step

	if !rr.sc.Scan() {
		if err := rr.sc.Err(); err != nil {
			return step, err
		}
		return step, io.EOF
	}
	motion, err := parseOdometry(rr.sc.Text())
	if err != nil {
		return step, err
	}
	step.Motion = motion

	if !rr.sc.Scan() {
		if err := rr.sc.Err(); err != nil {
			return step, err
		}
		return step, fmt.Errorf("robotlog: truncated record, missing Laser line")
	}
	scan, err := rr.parseLaser(rr.sc.Text())
	if err != nil {
		return step, err
	}
	step.Scan = scan

	return step, nil
}

func parseOdometry(line string) (dpm.Motion, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "Odometry" {
		return dpm.Motion{}, fmt.Errorf("robotlog: malformed Odometry line %q", line)
	}
	d, err1 := strconv.ParseFloat(fields[1], 64)
	c, err2 := strconv.ParseFloat(fields[2], 64)
	t, err3 := strconv.ParseFloat(fields[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return dpm.Motion{}, fmt.Errorf("robotlog: malformed Odometry line %q", line)
	}
	return dpm.Motion{D: d, C: c, T: t}, nil
}

func (rr *Reader) parseLaser(line string) (dpm.Scan, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "Laser" {
		return nil, fmt.Errorf("robotlog: malformed Laser line %q", line)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 || len(fields) != n+2 {
		return nil, fmt.Errorf("robotlog: malformed Laser line %q", line)
	}

	scan := make(dpm.Scan, n)
	for i := 0; i < n; i++ {
		d, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return nil, fmt.Errorf("robotlog: malformed Laser distance at index %d: %q", i, fields[2+i])
		}
		theta := 0.0
		if i < len(rr.beamAngles) {
			theta = rr.beamAngles[i]
		}
		scan[i] = dpm.Beam{Theta: theta, Distance: d * rr.scale}
	}
	return scan, nil
}
