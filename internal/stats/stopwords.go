package stats

// stopwords are common English function words excluded from the histogram.
var stopwords = toSet([]string{
	"about", "above", "after", "again", "against", "all", "am", "an", "and", "any",
	"are", "aren", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "cannot", "could", "couldn", "did", "didn",
	"do", "does", "doesn", "doing", "don", "down", "during", "each", "few", "for",
	"from", "further", "had", "hadn", "has", "hasn", "have", "haven", "having", "he",
	"her", "here", "hers", "herself", "him", "himself", "his", "how", "if", "in",
	"into", "is", "isn", "it", "its", "itself", "let", "ll", "me", "more",
	"most", "mustn", "my", "myself", "no", "nor", "not", "of", "off", "on",
	"once", "only", "or", "other", "ought", "our", "ours", "ourselves", "out", "over",
	"own", "re", "same", "shan", "she", "should", "shouldn", "so", "some", "such",
	"than", "that", "the", "their", "theirs", "them", "themselves", "then", "there", "these",
	"they", "this", "those", "through", "to", "too", "under", "until", "up", "ve",
	"very", "was", "wasn", "we", "were", "weren", "what", "when", "where", "which",
	"while", "who", "whom", "why", "with", "won", "would", "wouldn", "you", "your",
	"yours", "yourself", "yourselves",
})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether word (already lower-cased) is a stopword.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
