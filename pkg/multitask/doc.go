// Package multitask exposes the trained multi-task sentence classifier:
// one frozen sentence-encoder backbone shared by a topic head and a
// sentiment head.
//
// Create a Classifier once and reuse it; loading the ONNX backbone and the
// checkpoint is expensive. A Classifier is safe for sequential use; guard it
// with a mutex if predictions are issued from multiple goroutines.
//
//	clf, err := multitask.New(
//		multitask.WithModelPath("models/model.onnx"),
//		multitask.WithVocabPath("models/vocab.txt"),
//		multitask.WithCheckpointDir("checkpoints/latest"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer clf.Close()
//
//	pred, err := clf.Predict("Stocks rallied after the earnings report.")
package multitask
