package gateway

import (
	"encoding/json"
	"strings"
)

type questionItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ParseQuestions decodes the question generator output. It expects a JSON array of
// {"question","answer"} objects and falls back to blank-line separated
// "question? answer" blocks. At most count pairs are returned.
func ParseQuestions(raw string, count int) []QA {
	raw = stripFences(raw)
	out := make([]QA, 0, count)

	var items []questionItem
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		for _, it := range items {
			q := strings.TrimSpace(it.Question)
			if q == "" {
				continue
			}
			out = append(out, QA{Question: q, Answer: strings.TrimSpace(it.Answer)})
		}
		return limit(out, count)
	}

	for _, block := range strings.Split(raw, "\n\n") {
		i := strings.IndexByte(block, '?')
		if i < 0 {
			continue
		}
		q := strings.TrimSpace(block[:i+1])
		if q == "?" {
			continue
		}
		out = append(out, QA{Question: q, Answer: strings.TrimSpace(block[i+1:])})
	}
	return limit(out, count)
}

func limit(qas []QA, count int) []QA {
	if count > 0 && len(qas) > count {
		return qas[:count]
	}
	return qas
}
