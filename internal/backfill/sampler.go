package backfill

import (
	"math/rand/v2"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
)

// profile captures how a subject's timeline usually looks: entries per
// hour of local day, the mix of activity types, and pools of observed
// metadata to clone onto generated entries.
type profile struct {
	hourly [24]float64
	types  []domain.ActivityType
	meta   map[domain.ActivityType][]map[string]string
}

// buildProfile derives a profile from history spanning the given number
// of days. Returns nil if the history is too thin to model.
func buildProfile(history []domain.ActivityEntry, days int, minEntries int) *profile {
	if len(history) < minEntries || days <= 0 {
		return nil
	}

	p := &profile{meta: make(map[domain.ActivityType][]map[string]string)}
	for _, e := range history {
		h := e.Timestamp.Hour()
		p.hourly[h] += 1.0 / float64(days)
		p.types = append(p.types, e.Type)
		if e.Metadata != nil {
			p.meta[e.Type] = append(p.meta[e.Type], e.Metadata)
		}
	}
	return p
}

// populationProfile is the fallback for subjects with little history: a
// fleet-wide baseline of a school-age day. Quiet overnight, light
// morning use, most activity in the late afternoon and evening.
func populationProfile() *profile {
	p := &profile{
		types: []domain.ActivityType{
			domain.ActivityBrowse, domain.ActivityBrowse, domain.ActivityBrowse,
			domain.ActivityVideo, domain.ActivityVideo,
			domain.ActivityApp, domain.ActivityApp,
			domain.ActivitySearch,
			domain.ActivityIdle,
		},
		meta: make(map[domain.ActivityType][]map[string]string),
	}
	for h := 0; h < 24; h++ {
		switch {
		case h < 7:
			p.hourly[h] = 0.1
		case h < 9:
			p.hourly[h] = 2
		case h < 15:
			p.hourly[h] = 1
		case h < 21:
			p.hourly[h] = 5
		default:
			p.hourly[h] = 1.5
		}
	}
	return p
}

// generate produces synthetic entries for [start, end) at the profile's
// hourly rate. The caller owns the RNG seed, which is what makes retries
// reproduce identical output.
func (p *profile) generate(rng *rand.Rand, subjectID string, start, end time.Time) []domain.ActivityEntry {
	var out []domain.ActivityEntry

	for cur := start.Truncate(time.Hour); cur.Before(end); cur = cur.Add(time.Hour) {
		segStart := cur
		if segStart.Before(start) {
			segStart = start
		}
		segEnd := cur.Add(time.Hour)
		if segEnd.After(end) {
			segEnd = end
		}
		seg := segEnd.Sub(segStart)
		if seg <= 0 {
			continue
		}

		expected := p.hourly[segStart.Hour()] * seg.Hours()
		n := int(expected)
		if rng.Float64() < expected-float64(n) {
			n++
		}

		for i := 0; i < n; i++ {
			at := segStart.Add(time.Duration(rng.Int64N(int64(seg))))
			typ := p.types[rng.IntN(len(p.types))]
			out = append(out, domain.ActivityEntry{
				SubjectID: subjectID,
				Timestamp: at,
				Type:      typ,
				Metadata:  p.pickMeta(rng, typ),
			})
		}
	}
	return out
}

func (p *profile) pickMeta(rng *rand.Rand, typ domain.ActivityType) map[string]string {
	pool := p.meta[typ]
	if len(pool) == 0 {
		return nil
	}
	src := pool[rng.IntN(len(pool))]
	cp := make(map[string]string, len(src))
	for k, v := range src {
		cp[k] = v
	}
	return cp
}
