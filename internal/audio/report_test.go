package audio

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestClassificationLadder(t *testing.T) {
	tests := []struct {
		name      string
		snr       float64
		clipping  float64
		wantLabel string
		wantScore float64
	}{
		{"excellent", 30, 0.5, LabelExcellent, 9.5},
		{"excellent capped", 100, 0, LabelExcellent, 10},
		{"good", 22, 2, LabelGood, 7.4},
		{"high snr but clipped falls to good", 30, 1.5, LabelGood, 9},
		{"fair", 17, 4, LabelFair, 5.4},
		{"poor", 12, 6, LabelPoor, 3.4},
		{"very poor", 5, 10, LabelVeryPoor, 1},
		{"very poor floor", -20, 0, LabelVeryPoor, 1},
	}

	s := &Stream{SampleRate: 16000, Channels: 1, BitsPerSample: 16, Frames: 16000}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := Metrics{SNRdB: tc.snr, ClippingPercent: tc.clipping, DynamicRangeDB: 25}
			r := BuildReport(m, s)
			if r.QualitySummary.QualityLabel != tc.wantLabel {
				t.Errorf("label = %q, want %q", r.QualitySummary.QualityLabel, tc.wantLabel)
			}
			if math.Abs(r.QualitySummary.OverallQualityScore-tc.wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v", r.QualitySummary.OverallQualityScore, tc.wantScore)
			}
		})
	}
}

func TestRecommendationsOrderAndDefault(t *testing.T) {
	s := &Stream{SampleRate: 16000, Channels: 1, BitsPerSample: 16, Frames: 16000}

	all := BuildReport(Metrics{SNRdB: 15, ClippingPercent: 3, DynamicRangeDB: 10}, s)
	want := []string{
		"Consider noise reduction preprocessing",
		"Audio has clipping - check recording levels",
		"Low dynamic range - may indicate compression issues",
	}
	if !reflect.DeepEqual(all.Recommendations, want) {
		t.Errorf("Recommendations = %v, want %v", all.Recommendations, want)
	}

	clean := BuildReport(Metrics{SNRdB: 30, ClippingPercent: 0, DynamicRangeDB: 30}, s)
	if len(clean.Recommendations) != 1 ||
		clean.Recommendations[0] != "Audio quality is acceptable for processing" {
		t.Errorf("Recommendations = %v, want single default message", clean.Recommendations)
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	s := &Stream{SampleRate: 16000, Channels: 2, BitsPerSample: 16, Frames: 40000, FileSizeMB: 1.2345}
	m := Metrics{
		RMS:              1234.5678,
		PeakAmplitude:    32767,
		SNRdB:            23.456,
		DynamicRangeDB:   28.123,
		ClippingPercent:  0.789,
		ZeroCrossingRate: 0.123456,
	}
	original := BuildReport(m, s)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{45.0, "45.0s"},
		{125.5, "2m 5.5s"},
		{3725.25, "1h 2m 5.25s"},
		{0, "0.0s"},
		{59.9, "59.9s"},
		{3600, "1h 0m 0.0s"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestRounding(t *testing.T) {
	s := &Stream{SampleRate: 16000, Channels: 1, BitsPerSample: 16, Frames: 24000}
	m := Metrics{SNRdB: 23.456789, RMS: 0.12345, ZeroCrossingRate: 0.0123456}
	r := BuildReport(m, s)

	if r.QualitySummary.AverageSNR != 23.5 {
		t.Errorf("AverageSNR = %v, want 23.5", r.QualitySummary.AverageSNR)
	}
	if r.DetailedMetrics.SignalToNoiseRatioDB != 23.46 {
		t.Errorf("SignalToNoiseRatioDB = %v, want 23.46", r.DetailedMetrics.SignalToNoiseRatioDB)
	}
	if r.DetailedMetrics.ZeroCrossingRate != 0.0123 {
		t.Errorf("ZeroCrossingRate = %v, want 0.0123", r.DetailedMetrics.ZeroCrossingRate)
	}
	if r.AudioProperties.DurationSeconds != 1.5 {
		t.Errorf("DurationSeconds = %v, want 1.5", r.AudioProperties.DurationSeconds)
	}
}
