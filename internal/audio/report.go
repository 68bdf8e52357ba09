package audio

import (
	"fmt"
	"math"
	"strings"
)

// Quality labels, ordered best to worst.
const (
	LabelExcellent = "Excellent"
	LabelGood      = "Good"
	LabelFair      = "Fair"
	LabelPoor      = "Poor"
	LabelVeryPoor  = "Very Poor"
)

// QualitySummary is the headline section of a noise report.
type QualitySummary struct {
	OverallQualityScore float64 `json:"overall_quality_score"`
	QualityLabel        string  `json:"quality_label"`
	AverageSNR          float64 `json:"average_snr"`
	ClippingDetected    bool    `json:"clipping_detected"`
	DurationFormatted   string  `json:"duration_formatted"`
}

// DetailedMetrics echoes the raw metric values, rounded for presentation.
type DetailedMetrics struct {
	SignalToNoiseRatioDB float64 `json:"signal_to_noise_ratio_db"`
	RMSLevel             float64 `json:"rms_level"`
	PeakAmplitude        float64 `json:"peak_amplitude"`
	DynamicRangeDB       float64 `json:"dynamic_range_db"`
	ClippingPercentage   float64 `json:"clipping_percentage"`
	ZeroCrossingRate     float64 `json:"zero_crossing_rate"`
}

// AudioProperties describes the decoded container.
type AudioProperties struct {
	SampleRate      int     `json:"sample_rate"`
	Channels        int     `json:"channels"`
	SampleWidthBits int     `json:"sample_width_bits"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileSizeMB      float64 `json:"file_size_mb"`
}

// Report is the classified result of one analysis. Created once, never mutated.
type Report struct {
	QualitySummary  QualitySummary  `json:"quality_summary"`
	DetailedMetrics DetailedMetrics `json:"detailed_metrics"`
	AudioProperties AudioProperties `json:"audio_properties"`
	Recommendations []string        `json:"recommendations"`
}

// BuildReport classifies metrics into a quality label, score and
// recommendations. Total: every metric combination yields a label.
func BuildReport(m Metrics, s *Stream) Report {
	snr := m.SNRdB
	clipping := m.ClippingPercent

	var label string
	var score float64
	switch {
	case snr >= 25 && clipping < 1:
		label = LabelExcellent
		score = 9 + math.Min(1, (snr-25)/10)
	case snr >= 20 && clipping < 3:
		label = LabelGood
		score = 7 + (snr-20)/5
	case snr >= 15 && clipping < 5:
		label = LabelFair
		score = 5 + (snr-15)/5
	case snr >= 10:
		label = LabelPoor
		score = 3 + (snr-10)/5
	default:
		label = LabelVeryPoor
		score = math.Max(1, snr/10)
	}

	var recommendations []string
	if snr < 20 {
		recommendations = append(recommendations, "Consider noise reduction preprocessing")
	}
	if clipping > 2 {
		recommendations = append(recommendations, "Audio has clipping - check recording levels")
	}
	if m.DynamicRangeDB < 20 {
		recommendations = append(recommendations, "Low dynamic range - may indicate compression issues")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Audio quality is acceptable for processing")
	}

	return Report{
		QualitySummary: QualitySummary{
			OverallQualityScore: round(score, 1),
			QualityLabel:        label,
			AverageSNR:          round(snr, 1),
			ClippingDetected:    clipping > 1,
			DurationFormatted:   FormatDuration(s.Duration()),
		},
		DetailedMetrics: DetailedMetrics{
			SignalToNoiseRatioDB: round(snr, 2),
			RMSLevel:             round(m.RMS, 2),
			PeakAmplitude:        round(m.PeakAmplitude, 2),
			DynamicRangeDB:       round(m.DynamicRangeDB, 2),
			ClippingPercentage:   round(clipping, 2),
			ZeroCrossingRate:     round(m.ZeroCrossingRate, 4),
		},
		AudioProperties: AudioProperties{
			SampleRate:      s.SampleRate,
			Channels:        s.Channels,
			SampleWidthBits: s.BitsPerSample,
			DurationSeconds: round(s.Duration(), 2),
			FileSizeMB:      round(s.FileSizeMB, 2),
		},
		Recommendations: recommendations,
	}
}

// FormatDuration renders seconds as a human string: "45.0s", "2m 5.5s",
// "1h 2m 5.25s". Seconds keep up to two decimals, never fewer than one.
func FormatDuration(seconds float64) string {
	switch {
	case seconds < 60:
		return formatSeconds(seconds) + "s"
	case seconds < 3600:
		minutes := int(seconds / 60)
		return fmt.Sprintf("%dm %ss", minutes, formatSeconds(seconds-float64(minutes)*60))
	default:
		hours := int(seconds / 3600)
		rem := seconds - float64(hours)*3600
		minutes := int(rem / 60)
		return fmt.Sprintf("%dh %dm %ss", hours, minutes, formatSeconds(rem-float64(minutes)*60))
	}
}

func formatSeconds(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if strings.HasSuffix(s, "0") {
		s = s[:len(s)-1]
	}
	return s
}

func round(v float64, decimals int) float64 {
	shift := math.Pow10(decimals)
	return math.Round(v*shift) / shift
}
