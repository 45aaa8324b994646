package ranking

import "fmt"

// Suggestions returns follow-up queries built around the primary subject.
// Queries without a subject get none.
func Suggestions(pq *ParsedQuery) []string {
	subject, ok := pq.Primary()
	if !ok {
		return nil
	}
	return []string{
		fmt.Sprintf("How to grow %s", subject),
		fmt.Sprintf("%s care guide", subject),
		fmt.Sprintf("When to plant %s", subject),
		fmt.Sprintf("%s problems", subject),
		fmt.Sprintf("Harvesting %s", subject),
	}
}
