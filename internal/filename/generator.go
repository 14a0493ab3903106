// Package filename produces the artifact names used for stored query
// results.
//
// Format: {timestamp}-{user_id}-{query_name}-{params}{ext}
// Example: 20250612-143022-31688-Active-Employee-Email-dept_HR-year_2024.csv
//
// The timestamp leads so that directory listings sort chronologically, and
// the whole name is capped at MaxLength characters with a truncation scheme
// that always prefers dropping query-name text over parameter pairs.
package filename

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxLength is the hard cap on a generated filename.
	MaxLength = 150

	// ExtensionCSV is the default artifact extension.
	ExtensionCSV = ".csv"

	timestampLayout = "20060102-150405"

	// maxValueLen caps a single sanitized parameter value.
	maxValueLen = 20
	// maxKeyLen caps a parameter key with no registered abbreviation.
	maxKeyLen = 8
)

// invalidChars matches characters that are illegal or unsafe in file paths.
var invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

var (
	dashRuns       = regexp.MustCompile(`-+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// abbreviations shortens common parameter keys so more pairs fit under the
// length cap. Keys absent here fall back to an 8-character truncation.
var abbreviations = map[string]string{
	"department":  "dept",
	"employee":    "emp",
	"start_date":  "sdate",
	"end_date":    "edate",
	"status":      "sts",
	"category":    "cat",
	"identifier":  "id",
	"number":      "num",
	"amount":      "amt",
	"quantity":    "qty",
	"description": "desc",
	"reference":   "ref",
	"transaction": "txn",
	"account":     "acct",
	"customer":    "cust",
	"location":    "loc",
	"organization": "org",
}

// Generate returns the CSV artifact name for the given job metadata.
// It is deterministic: identical inputs always produce identical names.
func Generate(userID int64, queryName string, params map[string]any, ts time.Time) string {
	return GenerateWithExtension(userID, queryName, params, ts, ExtensionCSV)
}

// GenerateWithExtension is Generate with a caller-chosen extension,
// used when the artifact is rendered in a non-CSV format.
func GenerateWithExtension(userID int64, queryName string, params map[string]any, ts time.Time, ext string) string {
	timestamp := ts.Format(timestampLayout)
	userIDStr := strconv.FormatInt(userID, 10)
	name := SanitizeQueryName(queryName)
	paramBlock := FormatParameters(params)

	components := []string{timestamp, userIDStr, name}
	if paramBlock != "" {
		components = append(components, paramBlock)
	}

	generated := strings.Join(components, "-") + ext
	if len(generated) > MaxLength {
		generated = truncate(timestamp, userIDStr, name, paramBlock, ext)
	}
	return generated
}

// SanitizeQueryName strips path-illegal characters, turns spaces into
// dashes, collapses dash runs and trims the edges. An empty result maps to
// a fixed placeholder so the name block is never missing.
func SanitizeQueryName(queryName string) string {
	if queryName == "" {
		return "unnamed-query"
	}

	sanitized := invalidChars.ReplaceAllString(queryName, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	sanitized = dashRuns.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")

	if sanitized == "" {
		return "unnamed-query"
	}
	return sanitized
}

// FormatParameters renders params as key_value pairs joined by dashes,
// sorted by key for determinism.
func FormatParameters(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, abbreviateKey(k)+"_"+sanitizeValue(params[k]))
	}
	return strings.Join(pairs, "-")
}

func abbreviateKey(key string) string {
	if abbr, ok := abbreviations[strings.ToLower(key)]; ok {
		return abbr
	}
	runes := []rune(key)
	if len(runes) > maxKeyLen {
		return string(runes[:maxKeyLen])
	}
	return key
}

// sanitizeValue stringifies a parameter value and makes it filename-safe.
// Spaces become underscores, visually distinct from the dash pair
// separator.
func sanitizeValue(value any) string {
	str := stringify(value)
	str = invalidChars.ReplaceAllString(str, "")
	str = strings.ReplaceAll(str, " ", "_")
	str = underscoreRuns.ReplaceAllString(str, "_")
	if runes := []rune(str); len(runes) > maxValueLen {
		str = string(runes[:maxValueLen])
	}
	return str
}

// stringify renders values the way they appear in job payloads. JSON
// decoding hands numbers over as float64, so integral floats print without
// a fraction.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncate shrinks an over-long name back under MaxLength. The timestamp
// and user id are never shortened; the query name and the parameter block
// share what is left in a 40/60 split, parameters favored since they carry
// the uniqueness.
func truncate(timestamp, userID, queryName, paramBlock, ext string) string {
	// Room for the extension and the three joining dashes.
	available := MaxLength - len(ext) - 3
	remaining := available - len(timestamp) - len(userID)

	if paramBlock == "" {
		maxQuery := remaining - 1
		if len(queryName) > maxQuery {
			queryName = queryName[:maxQuery]
		}
		return timestamp + "-" + userID + "-" + queryName + ext
	}

	queryBudget := int(float64(remaining) * 0.4)
	paramBudget := remaining - queryBudget - 1

	if len(queryName) > queryBudget {
		cut := queryName[:queryBudget]
		// Prefer ending on a separator if one falls near the cut point.
		if lastDash := strings.LastIndex(cut, "-"); float64(lastDash) > float64(queryBudget)*0.7 {
			cut = cut[:lastDash]
		}
		queryName = cut
	}

	if len(paramBlock) > paramBudget {
		paramBlock = truncateParams(paramBlock, paramBudget)
	}

	return timestamp + "-" + userID + "-" + queryName + "-" + paramBlock + ext
}

// truncateParams keeps as many complete key_value pairs as fit in maxLen.
// It never emits a half-written pair, except that a first pair which is
// alone too long is hard-cut to the budget.
func truncateParams(paramBlock string, maxLen int) string {
	pairs := strings.Split(paramBlock, "-")

	kept := make([]string, 0, len(pairs))
	length := 0
	for _, pair := range pairs {
		needed := len(pair)
		if len(kept) > 0 {
			needed++ // separator
		}
		if length+needed <= maxLen {
			kept = append(kept, pair)
			length += needed
			continue
		}
		if len(kept) == 0 {
			kept = append(kept, pair[:maxLen])
		}
		break
	}
	return strings.Join(kept, "-")
}

// Components is the result of Extract.
type Components struct {
	Timestamp string
	UserID    string
	QueryName string
	Params    string
	Extension string
}

// Extract splits a generated filename back into its components. It is a
// best-effort diagnostic inverse: heavily truncated names may not round-trip
// losslessly, but the timestamp and user id are always recovered for
// non-truncated inputs.
func Extract(name string) (Components, error) {
	base := name
	ext := ""
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		base = name[:idx]
		ext = name[idx:]
	}

	parts := strings.Split(base, "-")
	if len(parts) < 3 {
		return Components{}, fmt.Errorf("invalid filename format: %s", name)
	}

	c := Components{
		Timestamp: parts[0] + "-" + parts[1],
		UserID:    parts[2],
		Extension: ext,
	}

	// The first token containing an underscore starts the parameter block;
	// everything before it belongs to the query name.
	var nameParts, paramParts []string
	inParams := false
	for _, part := range parts[3:] {
		if inParams || strings.Contains(part, "_") {
			inParams = true
			paramParts = append(paramParts, part)
		} else {
			nameParts = append(nameParts, part)
		}
	}
	c.QueryName = strings.Join(nameParts, "-")
	c.Params = strings.Join(paramParts, "-")

	return c, nil
}
