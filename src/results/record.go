package results

// DefaultIterationBound keeps every record of a realistic run when no bound is given.
const DefaultIterationBound = 7_000_000

// Extent-count field names accepted at the source; the first one wins when both appear.
const (
	FieldFileExtentCount       = "file_extent_count"
	FieldUnderscoreExtentCount = "_file_extent_count"
)

// Record is one benchmark event as written by the harness.
type Record struct {
	Iteration int64   `json:"iteration"`
	Action    string  `json:"action"`
	Operation string  `json:"operation,omitempty"`
	Path      string  `json:"path,omitempty"`
	Duration  float64 `json:"duration"` // nanoseconds
	Size      float64 `json:"size"`     // bytes
	// Only one of the two extent-count names is present per record set.
	FileExtentCount           *int64 `json:"file_extent_count,omitempty"`
	UnderscoreFileExtentCount *int64 `json:"_file_extent_count,omitempty"`
	TotalExtentsCount         int64  `json:"total_extents_count"`
}

// Source is the record set loaded from one file. Filters never modify it.
type Source struct {
	Path    string
	Label   string
	Records []Record
}

// FilterByIteration keeps records with Iteration <= bound, preserving order.
// A non-positive bound selects DefaultIterationBound.
func FilterByIteration(records []Record, bound int64) []Record {
	if bound <= 0 {
		bound = DefaultIterationBound
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Iteration <= bound {
			out = append(out, r)
		}
	}
	return out
}

// FilterByAction keeps records whose action matches exactly. No match yields an empty slice.
func FilterByAction(records []Record, action string) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

// Actions returns the distinct action tags in first-seen order.
func Actions(records []Record) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		if seen[r.Action] {
			continue
		}
		seen[r.Action] = true
		out = append(out, r.Action)
	}
	return out
}

// CountByAction returns the number of records per action tag.
func CountByAction(records []Record) map[string]int {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Action]++
	}
	return counts
}

// WithIterationBound returns a copy of the source restricted to iteration <= bound.
func (s *Source) WithIterationBound(bound int64) *Source {
	return &Source{Path: s.Path, Label: s.Label, Records: FilterByIteration(s.Records, bound)}
}
