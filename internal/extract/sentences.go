package extract

import "strings"

// sentenceTerminators close a sentence when a token ends with one of them.
const sentenceTerminators = ".!?"

// Reconstruct assembles cleaned fragments into sentences. The fragments are
// flattened into a single token stream in order; a sentence closes after
// every token ending with a terminator, and any tokens left at the end form
// a final partial sentence. Every token lands in exactly one sentence, so no
// recognized text is lost in reconstruction.
func Reconstruct(fragments []string) []string {
	var sentences []string
	var current []string

	for _, fragment := range fragments {
		for _, token := range strings.Fields(fragment) {
			current = append(current, token)
			if endsSentence(token) {
				sentences = append(sentences, strings.Join(current, " "))
				current = nil
			}
		}
	}

	if len(current) > 0 {
		sentences = append(sentences, strings.Join(current, " "))
	}

	return sentences
}

// endsSentence reports whether a token's last byte is a sentence terminator.
// The terminators are ASCII, so a byte comparison is safe on UTF-8 input.
func endsSentence(token string) bool {
	if token == "" {
		return false
	}
	return strings.ContainsAny(token[len(token)-1:], sentenceTerminators)
}
