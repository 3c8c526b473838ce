package encoder

import (
	"fmt"
	"strings"
)

// encoded holds tokenized inputs ready for ONNX inference. All slices are
// flat: [batchSize * seqLen].
type encoded struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
}

// tokenizer performs BERT-style WordPiece tokenization.
type tokenizer struct {
	vocab     *vocab
	maxSeqLen int
}

// newTokenizer creates a tokenizer from a vocab.txt file. maxSeqLen caps
// the sequence length including the [CLS] and [SEP] markers.
func newTokenizer(vocabPath string, maxSeqLen int) (*tokenizer, error) {
	if maxSeqLen < 8 {
		return nil, fmt.Errorf("tokenizer: max seq len %d too small", maxSeqLen)
	}
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v, maxSeqLen: maxSeqLen}, nil
}

// encode converts a single text into [CLS] + subword IDs + [SEP], truncated
// to maxSeqLen. The returned slices have length maxSeqLen, zero padded, and
// the second return is the count of real (non-padding) positions.
func (t *tokenizer) encode(text string) (ids, mask []int64, realLen int) {
	tokens := t.subwords(t.basicTokenize(text))
	if max := t.maxSeqLen - 2; len(tokens) > max {
		tokens = tokens[:max]
	}

	ids = make([]int64, t.maxSeqLen)
	mask = make([]int64, t.maxSeqLen)

	ids[0] = t.vocab.clsID
	mask[0] = 1
	for i, tok := range tokens {
		ids[i+1] = t.vocab.lookup(tok)
		mask[i+1] = 1
	}
	ids[len(tokens)+1] = t.vocab.sepID
	mask[len(tokens)+1] = 1
	// Trailing positions stay zero: padID=0 by BERT convention, mask=0.

	return ids, mask, len(tokens) + 2
}

// encodeBatch tokenizes multiple texts and packs them into flat slices
// padded to the longest sequence in the batch (capped at maxSeqLen).
func (t *tokenizer) encodeBatch(texts []string) encoded {
	n := len(texts)
	if n == 0 {
		return encoded{}
	}

	allIDs := make([][]int64, n)
	allMasks := make([][]int64, n)
	maxLen := 0
	for i, text := range texts {
		ids, mask, realLen := t.encode(text)
		allIDs[i] = ids
		allMasks[i] = mask
		if realLen > maxLen {
			maxLen = realLen
		}
	}

	batchSize := int64(n)
	seqLen := int64(maxLen)
	total := batchSize * seqLen

	out := encoded{
		inputIDs:      make([]int64, total),
		attentionMask: make([]int64, total),
		tokenTypeIDs:  make([]int64, total), // single-segment input: all zeros
		batchSize:     batchSize,
		seqLen:        seqLen,
	}
	for i := 0; i < n; i++ {
		off := int64(i) * seqLen
		copy(out.inputIDs[off:off+seqLen], allIDs[i][:seqLen])
		copy(out.attentionMask[off:off+seqLen], allMasks[i][:seqLen])
	}
	return out
}

// basicTokenize applies BERT's BasicTokenizer: clean, isolate CJK
// characters, lowercase, strip accents, then split on whitespace and
// punctuation.
func (t *tokenizer) basicTokenize(text string) []string {
	text = cleanText(text)
	text = isolateCJK(text)
	text = strings.ToLower(text)
	text = stripAccents(text)

	var tokens []string
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, splitOnPunctuation(word)...)
	}
	return tokens
}

// subwords applies greedy longest-match-first WordPiece to each basic token.
func (t *tokenizer) subwords(tokens []string) []string {
	var out []string
	for _, token := range tokens {
		if len(token) == 0 {
			continue
		}
		out = append(out, t.wordpieceToken(token)...)
	}
	return out
}

// wordpieceToken decomposes a single basic token into WordPiece subwords.
// Tokens that cannot be fully decomposed collapse to [UNK], matching the
// reference BERT implementation.
func (t *tokenizer) wordpieceToken(token string) []string {
	runes := []rune(token)
	if len(runes) > 200 {
		return []string{"[UNK]"}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.contains(sub) {
				pieces = append(pieces, sub)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{"[UNK]"}
		}
		start = end
	}
	return pieces
}
