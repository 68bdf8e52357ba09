package audio

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// epsilon keeps the dynamic-range division defined for silent signals.
	epsilon = 1e-10

	// dynamicRangeFloorDB substitutes for the -Inf the raw formula produces on
	// all-zero input, keeping every metric finite and serializable.
	dynamicRangeFloorDB = -100.0

	// snrNoNoiseFloorDB is reported when the 25th-percentile segment power is
	// zero: no detectable noise floor.
	snrNoNoiseFloorDB = 60.0

	// snrShortClipDB is the fixed estimate for streams too short to form more
	// than four 0.25s segments; a percentile estimate there would be noise.
	snrShortClipDB = 30.0

	// clipLevel marks samples within 1% of the representable ceiling as clipped.
	clipLevel = 0.99
)

// Metrics is the derived numeric record for one stream. Immutable once computed.
type Metrics struct {
	RMS              float64
	PeakAmplitude    float64
	SNRdB            float64
	DynamicRangeDB   float64
	ClippingPercent  float64
	ZeroCrossingRate float64
}

// ComputeMetrics derives quality metrics from a decoded stream. Pure: the only
// failure path is the zero-frame precondition, which decoding should already
// have rejected.
func ComputeMetrics(s *Stream) (Metrics, error) {
	n := len(s.Samples)
	if n == 0 || s.Frames == 0 {
		return Metrics{}, newError(ErrComputation, "stream has no samples", nil)
	}

	var sumSquares float64
	var peak float64
	for _, v := range s.Samples {
		sumSquares += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	rms := math.Sqrt(sumSquares / float64(n))

	m := Metrics{
		RMS:              rms,
		PeakAmplitude:    peak,
		SNRdB:            estimateSNR(s.Samples, s.SampleRate),
		DynamicRangeDB:   dynamicRange(peak, rms),
		ClippingPercent:  clippingPercent(s.Samples, s.BitsPerSample),
		ZeroCrossingRate: zeroCrossingRate(s.Samples),
	}
	return m, nil
}

// estimateSNR splits the stream into non-overlapping 0.25s windows and treats
// the quiet quartile as the noise floor and the loud quartile as signal. Short
// clips (four or fewer complete windows) get a fixed moderate estimate instead
// of an unreliable one.
func estimateSNR(samples []float64, sampleRate int) float64 {
	segmentSize := sampleRate / 4
	if segmentSize <= 0 {
		return snrShortClipDB
	}
	numSegments := len(samples) / segmentSize
	if numSegments <= 4 {
		return snrShortClipDB
	}

	powers := make([]float64, numSegments)
	for i := 0; i < numSegments; i++ {
		seg := samples[i*segmentSize : (i+1)*segmentSize]
		var sum float64
		for _, v := range seg {
			sum += v * v
		}
		powers[i] = sum / float64(segmentSize)
	}
	sort.Float64s(powers)

	noiseFloor := stat.Quantile(0.25, stat.LinInterp, powers, nil)
	signalPower := stat.Quantile(0.75, stat.LinInterp, powers, nil)
	if noiseFloor <= 0 {
		return snrNoNoiseFloorDB
	}
	return 10 * math.Log10(signalPower/noiseFloor)
}

func dynamicRange(peak, rms float64) float64 {
	ratio := peak / (rms + epsilon)
	if ratio <= 0 {
		return dynamicRangeFloorDB
	}
	dr := 20 * math.Log10(ratio)
	if dr < dynamicRangeFloorDB {
		return dynamicRangeFloorDB
	}
	return dr
}

func clippingPercent(samples []float64, bits int) float64 {
	threshold := clipLevel * maxAmplitude(bits)
	clipped := 0
	for _, v := range samples {
		if math.Abs(v) >= threshold {
			clipped++
		}
	}
	return float64(clipped) / float64(len(samples)) * 100
}

// zeroCrossingRate counts sign changes between consecutive samples. Zero is
// treated as non-negative, so silence produces no crossings.
func zeroCrossingRate(samples []float64) float64 {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if math.Signbit(samples[i]) != math.Signbit(samples[i-1]) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples))
}
