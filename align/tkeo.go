package align

import (
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-tms/dsp/window"
	"github.com/cwbudde/algo-tms/xdf"
)

// Energy computes the Teager-Kaiser nonlinear energy operator
//
//	psi[n] = x[n]^2 - x[n-1]*x[n+1]
//
// which responds sharply to the sudden amplitude/frequency change of
// a stimulation artifact. The endpoints, where the operator is
// undefined, are zero.
func Energy(x []float64) []float64 {
	n := len(x)
	psi := make([]float64, n)
	if n < 3 {
		return psi
	}

	sq := make([]float64, n-2)
	cross := make([]float64, n-2)
	vecmath.MulBlock(sq, x[1:n-1], x[1:n-1])
	vecmath.MulBlock(cross, x[:n-2], x[2:])
	for i := range sq {
		psi[i+1] = sq[i] - cross[i]
	}
	return psi
}

// refineTimestamps snaps each timestamp to the artifact onset found
// in the raw waveform near it. Events whose search window does not
// fit inside the stream, or where no onset crossing exists, keep
// their incoming estimate.
func (c *Corrector) refineTimestamps(raw *xdf.Stream, ts []float64) []float64 {
	out := append([]float64(nil), ts...)

	srate := raw.SampleRate
	if srate <= 0 || raw.Len() == 0 || len(raw.ChannelLabels) == 0 {
		return out
	}

	half := int(c.cfg.SearchSpan * srate)
	if half < 2 {
		return out
	}
	width := int(c.cfg.SmoothWidth * srate)

	for i, t := range ts {
		idx := NearestSample(t, raw.Timestamps)
		start, end := idx-half, idx+half
		if start < 1 || end+1 > raw.Len() {
			continue
		}

		env := artifactEnvelope(raw, start, end)
		env = smoothEnvelope(env, width)

		if onset := onsetIndex(env, half, c.cfg.OnsetFactor); onset >= 0 {
			out[i] = raw.Timestamps[start+onset]
		}
	}
	return out
}

// artifactEnvelope sums the rectified operator energy across all
// channels for samples [start, end). One extra sample on each side
// feeds the operator so the full window is valid.
func artifactEnvelope(raw *xdf.Stream, start, end int) []float64 {
	env := make([]float64, end-start)
	col := make([]float64, end-start+2)

	for c := range raw.ChannelLabels {
		for i := range col {
			col[i] = raw.Series[start-1+i][c]
		}
		psi := Energy(col)
		for i := range env {
			env[i] += math.Abs(psi[i+1])
		}
	}
	return env
}

// smoothEnvelope convolves the envelope with a normalized Hann kernel
// via one-shot zero-padded FFT convolution, keeping the input length
// ("same" alignment). Degenerate widths and FFT failures return the
// input unchanged; smoothing is best-effort.
func smoothEnvelope(x []float64, width int) []float64 {
	if width < 3 || len(x) < width {
		return x
	}
	if width%2 == 0 {
		width++
	}

	kernel, err := window.Generate(window.TypeHann, width, window.WithNormalized())
	if err != nil {
		return x
	}

	n := len(x) + width - 1
	fftSize := nextPowerOf2(n)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return x
	}

	xPadded := make([]complex128, fftSize)
	for i, v := range x {
		xPadded[i] = complex(v, 0)
	}
	kPadded := make([]complex128, fftSize)
	for i, v := range kernel {
		kPadded[i] = complex(v, 0)
	}

	xFreq := make([]complex128, fftSize)
	kFreq := make([]complex128, fftSize)
	if err := plan.Forward(xFreq, xPadded); err != nil {
		return x
	}
	if err := plan.Forward(kFreq, kPadded); err != nil {
		return x
	}

	for i := range xFreq {
		xFreq[i] *= kFreq[i]
	}

	resultTime := make([]complex128, fftSize)
	if err := plan.Inverse(resultTime, xFreq); err != nil {
		return x
	}

	out := make([]float64, len(x))
	off := width / 2
	for i := range out {
		out[i] = real(resultTime[i+off])
	}
	return out
}

// onsetIndex returns the first index where the envelope crosses the
// baseline threshold, or -1 when it never does. The baseline is
// estimated from the leading half of the pre-event portion, which the
// artifact cannot reach.
func onsetIndex(env []float64, center int, factor float64) int {
	var peak float64
	for _, v := range env {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return -1
	}

	base := env[:max(center/2, 1)]

	var mean float64
	for _, v := range base {
		mean += v
	}
	mean /= float64(len(base))

	var variance float64
	for _, v := range base {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(base))

	threshold := mean + factor*math.Sqrt(variance)
	// A perfectly quiet baseline would set the threshold at zero,
	// where FFT roundoff in the smoothed envelope triggers anywhere.
	if floor := peak * 1e-3; threshold < floor {
		threshold = floor
	}

	for i, v := range env {
		if v > threshold {
			return i
		}
	}
	return -1
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
