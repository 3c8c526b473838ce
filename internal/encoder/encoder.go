// Package encoder wraps the frozen sentence-encoder backbone: WordPiece
// tokenization, ONNX inference, and attention-mask-weighted mean pooling.
package encoder

import "fmt"

// Encoder produces pooled sentence vectors from text. The trainer and the
// inference facade depend on this interface so tests can substitute a
// deterministic fake.
type Encoder interface {
	// EncodeBatch returns one pooled vector per input text, aligned in
	// row order.
	EncodeBatch(texts []string) ([][]float32, error)
	// Dim returns the dimensionality of the pooled vectors.
	Dim() int
	Close() error
}

// ONNXEncoder runs a BERT-style transformer through ONNX Runtime and mean
// pools the token states into sentence vectors. The backbone is frozen:
// fine-tuning happens in the trunk and heads that consume these vectors.
type ONNXEncoder struct {
	session *onnxSession
	tok     *tokenizer
}

// New loads the ONNX model and vocabulary. maxSeqLen caps tokenized
// sequences, [CLS] and [SEP] included.
func New(modelPath, vocabPath string, maxSeqLen int) (*ONNXEncoder, error) {
	sess, err := newONNXSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	tok, err := newTokenizer(vocabPath, maxSeqLen)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("encoder: %w", err)
	}
	return &ONNXEncoder{session: sess, tok: tok}, nil
}

// Dim returns the backbone's hidden size.
func (e *ONNXEncoder) Dim() int {
	return int(e.session.hiddenDim)
}

// Encode returns the pooled vector for a single text.
func (e *ONNXEncoder) Encode(text string) ([]float32, error) {
	vecs, err := e.EncodeBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch tokenizes, runs inference, and mean pools a batch of texts.
func (e *ONNXEncoder) EncodeBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	batch := e.tok.encodeBatch(texts)

	hidden, err := e.session.infer(
		batch.inputIDs, batch.attentionMask, batch.tokenTypeIDs,
		batch.batchSize, batch.seqLen,
	)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	pooled := meanPool(hidden, batch.attentionMask, batch.batchSize, batch.seqLen, e.session.hiddenDim)

	dim := e.session.hiddenDim
	out := make([][]float32, batch.batchSize)
	for i := int64(0); i < batch.batchSize; i++ {
		vec := make([]float32, dim)
		copy(vec, pooled[i*dim:(i+1)*dim])
		out[i] = vec
	}
	return out, nil
}

// Close releases the ONNX Runtime session.
func (e *ONNXEncoder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
