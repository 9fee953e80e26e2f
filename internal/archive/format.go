package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/corvidlabs/rook/pkg/blackboard"
)

// OutputFormat specifies how to format fact list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated payloads
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete facts as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for the log command.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	KindGlob         string // Glob pattern for fact kind, empty = no filter
	Producer         string // Exact match for producer, empty = no filter
}

// matchesFilter returns true if the fact matches all filter criteria.
func (fc *FilterCriteria) matchesFilter(fact *blackboard.Fact) bool {
	createdMs := fact.CreatedAt.UnixMilli()
	if fc.SinceTimestampMs > 0 && createdMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && createdMs > fc.UntilTimestampMs {
		return false
	}

	if fc.KindGlob != "" {
		matched, err := filepath.Match(fc.KindGlob, string(fact.Kind))
		if err != nil || !matched {
			return false
		}
	}

	if fc.Producer != "" && fact.Producer != fc.Producer {
		return false
	}

	return true
}

// Filter returns the facts matching the criteria, preserving log order.
// A nil criteria matches everything.
func Filter(facts []blackboard.Fact, criteria *FilterCriteria) []blackboard.Fact {
	if criteria == nil {
		return facts
	}
	var matched []blackboard.Fact
	for i := range facts {
		if criteria.matchesFilter(&facts[i]) {
			matched = append(matched, facts[i])
		}
	}
	return matched
}

// FormatTable writes facts as a formatted table to the provided writer.
// Returns the number of facts formatted.
func FormatTable(w io.Writer, facts []blackboard.Fact, runID string) int {
	if len(facts) == 0 {
		fmt.Fprintf(w, "No facts found for run '%s'\n", runID)
		return 0
	}

	fmt.Fprintf(w, "Facts for run '%s':\n\n", runID)

	fmt.Fprintf(w, "%-5s %-18s %-18s %-5s %-8s %s\n",
		"ID", "KIND", "PRODUCER", "CONF", "AGE", "PAYLOAD")
	fmt.Fprintf(w, "%-5s %-18s %-18s %-5s %-8s %s\n",
		"-----", "------------------", "------------------", "-----", "--------", "----------------------------------------")

	for i := range facts {
		f := &facts[i]
		fmt.Fprintf(w, "%-5d %-18s %-18s %-5s %-8s %s\n",
			f.ID,
			formatKind(f.Kind),
			formatProducer(f.Producer),
			formatConfidence(f.Confidence),
			formatTimestamp(f.CreatedAt.UnixMilli()),
			formatPayload(f.Payload),
		)
	}

	countMsg := "fact"
	if len(facts) != 1 {
		countMsg = "facts"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(facts), countMsg)

	return len(facts)
}

// FormatJSONL writes facts as line-delimited JSON (JSONL) to the provided
// writer. Each fact is a single JSON object on its own line, suitable for
// processing with tools like jq.
func FormatJSONL(w io.Writer, facts []blackboard.Fact) error {
	for i := range facts {
		data, err := json.Marshal(&facts[i])
		if err != nil {
			return fmt.Errorf("failed to marshal fact to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a single fact as pretty-printed JSON to the
// provided writer. Used to display complete fact details.
func FormatSingleJSON(w io.Writer, fact *blackboard.Fact) error {
	data, err := json.MarshalIndent(fact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal fact to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)

	return nil
}

// formatKind truncates long kind names for compact display.
func formatKind(kind blackboard.Kind) string {
	name := string(kind)
	if len(name) > 18 {
		return name[:15] + "..."
	}
	return name
}

// formatProducer formats the producer field for table display.
// Empty values return "-".
func formatProducer(producer string) string {
	if producer == "" {
		return "-"
	}
	if len(producer) > 18 {
		return producer[:15] + "..."
	}
	return producer
}

// formatConfidence renders a confidence value with two decimals.
func formatConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f", confidence)
}

// formatPayload renders a fact payload as its compact JSON, truncated to 40
// characters for table display. Empty payloads return "-".
func formatPayload(payload any) string {
	if payload == nil {
		return "-"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "-"
	}

	line := strings.TrimSpace(string(data))
	if line == "" || line == "null" || line == "{}" {
		return "-"
	}

	if len(line) > 40 {
		return line[:37] + "..."
	}
	return line
}

// formatTimestamp formats a Unix timestamp in milliseconds as relative time
// like "2m ago" or "1h ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs <= 0 {
		return "-"
	}

	t := time.Unix(timestampMs/1000, (timestampMs%1000)*1000000)
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
