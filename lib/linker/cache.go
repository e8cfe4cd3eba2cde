package linker

import "sync"

// vectorStore caches the embedded vocabulary of each namespace for one run.
// It must not outlive the run: a different document may carry a different
// vocabulary.
type vectorStore struct {
	store map[string][][]float32
	mut   *sync.RWMutex
}

func newVectorStore() *vectorStore {
	return &vectorStore{
		store: make(map[string][][]float32),
		mut:   &sync.RWMutex{},
	}
}

func (v *vectorStore) Get(namespace string) ([][]float32, bool) {
	v.mut.RLock()
	defer v.mut.RUnlock()

	vectors, ok := v.store[namespace]
	return vectors, ok
}

func (v *vectorStore) Set(namespace string, vectors [][]float32) {
	v.mut.Lock()
	defer v.mut.Unlock()

	v.store[namespace] = vectors
}
