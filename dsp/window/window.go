// Package window generates taper and smoothing kernels.
//
// The pipeline uses windows in two roles: as FFT tapers and as
// normalized smoothing kernels for artifact energy envelopes. A
// normalized kernel sums to one, so convolving with it preserves the
// envelope's scale.
package window

import (
	"errors"
	"fmt"
	"math"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeGauss
)

var (
	ErrUnknownType   = errors.New("window: unknown window type")
	ErrInvalidLength = errors.New("window: length must be > 0")
)

// Option configures window generation.
type Option func(*config)

type config struct {
	alpha      float64
	periodic   bool
	normalized bool
}

func defaultConfig() config {
	return config{alpha: 2.5}
}

// WithAlpha sets the shape parameter for parametric windows (gauss).
func WithAlpha(v float64) Option {
	return func(c *config) {
		c.alpha = v
	}
}

// WithPeriodic generates the periodic (FFT) form instead of the
// symmetric one.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// WithNormalized scales the window to unit sum, making it usable as a
// convolution kernel.
func WithNormalized() Option {
	return func(c *config) {
		c.normalized = true
	}
}

// Generate returns a window of the given type and length.
func Generate(t Type, length int, opts ...Option) ([]float64, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	w := make([]float64, length)
	if length == 1 {
		w[0] = 1
	} else {
		span := float64(length - 1)
		if cfg.periodic {
			span = float64(length)
		}

		switch t {
		case TypeRectangular:
			for i := range w {
				w[i] = 1
			}
		case TypeHann:
			for i := range w {
				w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/span))
			}
		case TypeGauss:
			half := span / 2
			for i := range w {
				x := (float64(i) - half) / half
				w[i] = math.Exp(-0.5 * cfg.alpha * cfg.alpha * x * x)
			}
		default:
			return nil, ErrUnknownType
		}
	}

	if cfg.normalized {
		var sum float64
		for _, v := range w {
			sum += v
		}
		if sum != 0 {
			for i := range w {
				w[i] /= sum
			}
		}
	}
	return w, nil
}

// Apply multiplies buf in place by the given window.
func Apply(t Type, buf []float64, opts ...Option) error {
	w, err := Generate(t, len(buf), opts...)
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] *= w[i]
	}
	return nil
}
