package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// receiptPrompt is shared by the LLM extractors
const receiptPrompt = `You are analyzing a photo of a receipt. Read all of the text and return ONLY a JSON object with these keys:

- "expense-type": exactly one of "needs" (groceries, household essentials), "wants" (restaurants, entertainment, luxury items) or "savings" (gas, bills, utilities)
- "date": the purchase date in YYYY-MM-DD format; use today's date if none is readable
- "total": the final amount paid as it appears on the receipt, for example "$42.75"; when several totals appear use the last or most logical one
- "expense-name": a short name for the purchase based on the merchant or the most expensive items

Ignore unreadable characters, repeated letters and garbled text. Do not include any text before or after the JSON and do not use markdown code blocks.`

// ExpenseTypes are the categories an expense can be filed under
var ExpenseTypes = []string{"needs", "wants", "savings"}

const (
	defaultExpenseType = "needs"
	defaultTotal       = "0.00"
	defaultExpenseName = "Unknown Expense"
)

// parseResultJSON pulls the JSON object out of a model response
func parseResultJSON(text string) (Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var result Result
	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	decoder.UseNumber()
	if err := decoder.Decode(&result); err == nil {
		return result, nil
	}

	// Small models often emit almost-JSON (single quotes, trailing commas, bare words)
	result = parseLoosePairs(text)
	if len(result) == 0 {
		return nil, fmt.Errorf("unmarshaling json: no key/value pairs in %q", text)
	}
	return result, nil
}

var loosePair = regexp.MustCompile(`["']?([A-Za-z][A-Za-z _-]*)["']?\s*:\s*["']?([^"',}\n]+)["']?`)

// parseLoosePairs reads key: value pairs from a JSON-like object
func parseLoosePairs(text string) Result {
	result := Result{}
	for _, m := range loosePair.FindAllStringSubmatch(text, -1) {
		key := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		if key != "" && value != "" {
			result[key] = value
		}
	}
	return result
}

// Clean applies the server-side defaults to a model result: the expense type
// is coerced to one of ExpenseTypes and missing fields get placeholder values.
func Clean(r Result, now time.Time) Result {
	cleaned := Result{
		KeyExpenseType: closestExpenseType(r.text(KeyExpenseType)),
		KeyDate:        now.Format("2006-01-02"),
		KeyTotal:       defaultTotal,
		KeyExpenseName: defaultExpenseName,
	}
	if r.present(KeyDate) {
		cleaned[KeyDate] = r.text(KeyDate)
	}
	if r.present(KeyTotal) {
		cleaned[KeyTotal] = r[KeyTotal]
	}
	if r.present(KeyExpenseName) {
		cleaned[KeyExpenseName] = strings.TrimSpace(r.text(KeyExpenseName))
	}
	return cleaned
}

// closestExpenseType returns the best match from ExpenseTypes with a
// similarity of at least 0.6, or "needs". Equal scores go to the
// lexically greater candidate.
func closestExpenseType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	best, bestScore := "", 0.6
	for _, candidate := range ExpenseTypes {
		if value == candidate {
			return candidate
		}
		score := similarity(candidate, value)
		if score > bestScore || (score == bestScore && candidate > best) {
			best, bestScore = candidate, score
		}
	}
	if best == "" {
		return defaultExpenseType
	}
	return best
}

// similarity is the Ratcliff/Obershelp ratio 2*M/T, where M counts the
// bytes in the matching blocks found by recursively taking the longest
// common substring. The score is not symmetric in a and b.
// The autojunk heuristic for inputs of 200 bytes or more is not applied.
func similarity(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 1
	}
	return 2 * float64(matchedBytes(a, b)) / float64(len(a)+len(b))
}

func matchedBytes(a, b string) int {
	i, j, k := longestMatch(a, b)
	if k == 0 {
		return 0
	}
	return k + matchedBytes(a[:i], b[:j]) + matchedBytes(a[i+k:], b[j+k:])
}

// longestMatch finds the longest common substring, earliest in a and then in b
func longestMatch(a, b string) (besti, bestj, bestk int) {
	prev := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 0; j < len(b); j++ {
			if a[i] != b[j] {
				continue
			}
			k := prev[j] + 1
			cur[j+1] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev = cur
	}
	return besti, bestj, bestk
}
