package files

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Similarity scores two strings from 0 to 100 ignoring case, punctuation and
// token order. The score is the indel ratio 2*M/(len(a)+len(b)) of the
// token-sorted forms, where M is their longest common subsequence, so an
// extra suffix on one name costs less than a substitution would.
func Similarity(a, b string) int {
	ra := []rune(sortedTokens(a))
	rb := []rune(sortedTokens(b))
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	m := commonSubsequence(ra, rb)
	ratio := 2 * float64(m) / float64(len(ra)+len(rb))
	return int(math.RoundToEven(100 * ratio))
}

func commonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// sortedTokens lowercases s, splits it on anything that is not a letter,
// digit or underscore, and joins the sorted tokens with single spaces.
func sortedTokens(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	tokens := strings.Fields(cleaned)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
