package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"zero uses default", 0, 10},
		{"negative uses default", -1, 10},
		{"custom", 25, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "20240102") {
		t.Error("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		key     string
		want    bool
	}{
		{0, "20240102", true},
		{10, "20240102", false},
		{25, "20240102", true},
		{49, "20240102", false},
		{80, "20240102", true},
		{150, "20240102", true},
		{100, "20240102", false},
		{5, "20240103", true},
		{-1, "20240103", false},
		{-1, "20240104", true},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.key); got != step.want {
			t.Fatalf("step %d (%v%% %s): got %v want %v", i, step.percent, step.key, got, step.want)
		}
	}

	s.Reset()
	if !s.ShouldLog(0, "20240104") {
		t.Fatal("reset sampler should log again")
	}
}
