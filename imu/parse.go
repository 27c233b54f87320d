package imu

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Field counts of the two record variants the scanner writes. The longer
// variant carries a gravity vector between the rotation rates and the user
// acceleration.
const (
	fieldsWithGravity    = 13
	fieldsWithoutGravity = 10
)

// ParseLog reads a comma-delimited motion log. A leading header line is
// tolerated. Records with the wrong field count or unparsable numbers are
// skipped with a warning; one bad line never discards the rest of the log.
func ParseLog(r io.Reader, logger golog.Logger) ([]Sample, error) {
	scanner := bufio.NewScanner(r)
	var samples []Sample
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sample, err := parseRecord(line)
		if err != nil {
			if lineNo == 1 {
				logger.Debugw("skipping motion log header", "line", line)
				continue
			}
			logger.Warnw("skipping malformed motion record", "line", lineNo, "error", err)
			continue
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read motion log")
	}
	return samples, nil
}

// ParseLogFile reads a motion log from a file.
func ParseLogFile(path string, logger golog.Logger) ([]Sample, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open motion log %s", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ParseLog(f, logger)
}

func parseRecord(line string) (Sample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != fieldsWithGravity && len(parts) != fieldsWithoutGravity {
		return Sample{}, errors.Errorf("unexpected field count %d", len(parts))
	}
	vals := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Sample{}, errors.Errorf("field %d is not a number: %q", i, part)
		}
		vals[i] = v
	}

	sample := Sample{Time: vals[0]}
	sample.Attitude.Roll = vals[1]
	sample.Attitude.Pitch = vals[2]
	sample.Attitude.Yaw = vals[3]
	sample.RotationRate = r3.Vector{X: vals[4], Y: vals[5], Z: vals[6]}
	if len(parts) == fieldsWithGravity {
		sample.Gravity = &r3.Vector{X: vals[7], Y: vals[8], Z: vals[9]}
		sample.Acceleration = r3.Vector{X: vals[10], Y: vals[11], Z: vals[12]}
	} else {
		sample.Acceleration = r3.Vector{X: vals[7], Y: vals[8], Z: vals[9]}
	}
	return sample, nil
}
