package backfill

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
)

func TestBuildProfile_ThinHistoryReturnsNil(t *testing.T) {
	history := []domain.ActivityEntry{
		{Timestamp: time.Now(), Type: domain.ActivityBrowse},
	}
	if p := buildProfile(history, 14, 40); p != nil {
		t.Error("expected nil profile for thin history")
	}
}

func TestBuildProfile_HourlyRates(t *testing.T) {
	var history []domain.ActivityEntry
	for d := 0; d < 10; d++ {
		day := time.Date(2024, 6, 1+d, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 6; i++ {
			history = append(history, domain.ActivityEntry{
				Timestamp: day.Add(18*time.Hour + time.Duration(i)*8*time.Minute),
				Type:      domain.ActivityVideo,
			})
		}
	}

	p := buildProfile(history, 10, 40)
	if p == nil {
		t.Fatal("expected profile from 60 entries")
	}
	if got := p.hourly[18]; got < 5.9 || got > 6.1 {
		t.Errorf("hourly[18] = %f, want ~6", got)
	}
	if p.hourly[3] != 0 {
		t.Errorf("hourly[3] = %f, want 0", p.hourly[3])
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	p := populationProfile()
	start := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	a := p.generate(rand.New(rand.NewPCG(7, 11)), "child-42", start, end)
	b := p.generate(rand.New(rand.NewPCG(7, 11)), "child-42", start, end)

	if len(a) != len(b) {
		t.Fatalf("same seed, different counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Timestamp.Equal(b[i].Timestamp) || a[i].Type != b[i].Type {
			t.Errorf("entry %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerate_StaysInsideInterval(t *testing.T) {
	p := populationProfile()
	start := time.Date(2024, 6, 10, 17, 20, 0, 0, time.UTC)
	end := start.Add(95 * time.Minute)

	entries := p.generate(rand.New(rand.NewPCG(1, 2)), "child-42", start, end)
	for _, e := range entries {
		if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			t.Errorf("entry at %s outside [%s, %s)", e.Timestamp, start, end)
		}
	}
}

func TestPopulationProfile_EveningHeavy(t *testing.T) {
	p := populationProfile()
	if p.hourly[18] <= p.hourly[3] {
		t.Error("evening rate should exceed overnight rate")
	}
}
