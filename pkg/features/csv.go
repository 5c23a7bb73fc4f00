package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrEmptyCSV       = errors.New("csv is empty")
	ErrMissingColumns = errors.New("csv must include left and right pupil size columns")
)

type columns struct {
	frame      int
	left       int
	right      int
	brightness int
}

// mapColumns matches headers loosely: any header mentioning "frame", "left"
// and "pupil", "right" and "pupil", or "bright". A later header wins over an
// earlier one.
func mapColumns(header []string) (columns, error) {
	col := columns{frame: -1, left: -1, right: -1, brightness: -1}
	for i, h := range header {
		k := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(k, "frame") {
			col.frame = i
		}
		if strings.Contains(k, "left") && strings.Contains(k, "pupil") {
			col.left = i
		}
		if strings.Contains(k, "right") && strings.Contains(k, "pupil") {
			col.right = i
		}
		if strings.Contains(k, "bright") {
			col.brightness = i
		}
	}

	if col.left < 0 || col.right < 0 {
		return col, ErrMissingColumns
	}
	return col, nil
}

// ParseCSV reads per-frame pupil samples. Rows without numeric left and right
// pupil sizes are skipped. When there is no frame column the sample index is
// used instead.
func ParseCSV(r io.Reader) ([]Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var samples []Sample
	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rows+2, err)
		}
		rows++

		left := field(record, col.left)
		right := field(record, col.right)
		if math.IsNaN(left) || math.IsNaN(right) {
			continue
		}

		s := Sample{Frame: float64(len(samples)), Left: left, Right: right}
		if col.frame >= 0 {
			s.Frame = field(record, col.frame)
		}
		if col.brightness >= 0 {
			if b := field(record, col.brightness); !math.IsNaN(b) {
				s.Brightness = &b
			}
		}
		samples = append(samples, s)
	}

	if rows == 0 {
		return nil, ErrEmptyCSV
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}

func field(record []string, i int) float64 {
	if i < 0 || i >= len(record) {
		return math.NaN()
	}
	return toNumber(record[i])
}

// toNumber drops everything but digits, sign, dot and exponent markers, so
// values such as "3.1 mm" still parse. Non-finite results are NaN.
func toNumber(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == 'e', r == 'E':
			return r
		}
		return -1
	}, s)

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
