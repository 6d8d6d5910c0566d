package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ParseBrandCounts pulls the brand→count object out of free-form model output.
//
// The span from the first '{' to the last '}' is decoded. Keys are normalized with
// NormalizeBrand; entries whose value is not a positive number are dropped, fractional
// counts are truncated, and a later duplicate key overwrites the earlier count in place.
func ParseBrandCounts(raw string) ([]BrandCount, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, &Error{Kind: KindParse, Op: "parse", Err: ErrNoJSON}
	}
	span := []byte(raw[start : end+1])
	if !json.Valid(span) {
		return nil, &Error{Kind: KindParse, Op: "parse", Err: fmt.Errorf("invalid JSON in model output: %.80q", span)}
	}
	return decodeBrandObject(span)
}

func decodeBrandObject(data []byte) ([]BrandCount, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: "parse", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &Error{Kind: KindShape, Op: "parse", Err: fmt.Errorf("expected a JSON object, got %v", tok)}
	}

	var out []BrandCount
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &Error{Kind: KindParse, Op: "parse", Err: err}
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, &Error{Kind: KindParse, Op: "parse", Err: err}
		}
		count, ok := positiveCount(value)
		if !ok {
			continue
		}
		name := NormalizeBrand(key)
		if name == "" {
			continue
		}
		if i, seen := index[name]; seen {
			out[i].Count = count
			continue
		}
		index[name] = len(out)
		out = append(out, BrandCount{Name: name, Count: count})
	}
	return out, nil
}

// positiveCount accepts JSON numbers that truncate to a count in 1..MaxInt32.
func positiveCount(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f <= 0 {
		return 0, false
	}
	f = math.Trunc(f)
	if f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
