package memory

import (
	"testing"

	"github.com/marmos91/objfs/pkg/store/index"
	indextesting "github.com/marmos91/objfs/pkg/store/index/testing"
)

// TestMemoryIndex runs the complete index conformance suite against MemoryIndex.
func TestMemoryIndex(t *testing.T) {
	suite := &indextesting.IndexTestSuite{
		NewIndex: func(t *testing.T) index.Index {
			return NewMemoryIndex(MemoryIndexConfig{})
		},
	}

	suite.Run(t)
}

func TestMemoryIndex_FirstID(t *testing.T) {
	idx := NewMemoryIndex(MemoryIndexConfig{FirstID: 100})

	id, err := idx.Put(t.Context(), "", index.Attributes{})
	if err != nil {
		t.Fatalf("put root: %v", err)
	}
	if id != 100 {
		t.Fatalf("expected first id 100, got %d", id)
	}
}
