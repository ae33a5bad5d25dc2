package listeners

import "time"

// Point is one chart vertex in a unit box: x in [0,1] runs left to
// right by elapsed time, y in [0,1] runs top-down, so a higher count
// yields a smaller y. Pixel scaling belongs to the renderer.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// View is the geometry-ready projection of the history over a display
// window. Fallback is set when the window held no samples and the
// newest FallbackSamples were used instead.
type View struct {
	Window   int64    `json:"window"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
	Average  float64  `json:"average"`
	Points   []Point  `json:"points"`
	Samples  []Sample `json:"samples"`
	Fallback bool     `json:"fallback,omitempty"`
}

// View computes the display projection for the trailing window ending
// at now. A pure function of the current sample set; recompute whenever
// either changes.
func (h *History) View(window time.Duration, now int64) View {
	w := window.Milliseconds()
	out := View{Window: w}

	from := now - w
	selected := h.since(from)
	if len(selected) == 0 && len(h.samples) > 0 {
		out.Fallback = true
		n := len(h.samples)
		if n > FallbackSamples {
			n = FallbackSamples
		}
		selected = append([]Sample(nil), h.samples[len(h.samples)-n:]...)
	}
	out.Samples = selected
	if len(selected) == 0 {
		return out
	}

	out.Min = selected[0].Count
	var sum int
	for _, s := range selected {
		if s.Count < out.Min {
			out.Min = s.Count
		}
		if s.Count > out.Max {
			out.Max = s.Count
		}
		sum += s.Count
	}
	out.Average = float64(sum) / float64(len(selected))

	first := selected[0].Timestamp
	span := selected[len(selected)-1].Timestamp - first
	out.Points = make([]Point, len(selected))
	for i, s := range selected {
		x := 1.0
		if span > 0 {
			x = float64(s.Timestamp-first) / float64(span)
		}
		y := 1.0
		if out.Max > 0 {
			y = 1 - float64(s.Count)/float64(out.Max)
		}
		out.Points[i] = Point{X: x, Y: y}
	}
	return out
}

func (h *History) since(from int64) []Sample {
	for i, s := range h.samples {
		if s.Timestamp >= from {
			return append([]Sample(nil), h.samples[i:]...)
		}
	}
	return nil
}
