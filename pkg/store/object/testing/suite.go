// Package testing provides conformance suites for object.Backend and
// object.Versioner implementations.
package testing

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BackendTestSuite is a conformance suite for object.Backend implementations.
//
// Usage:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &testing.BackendTestSuite{
//	        NewBackend: func(t *testing.T) object.Backend {
//	            return mybackend.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type BackendTestSuite struct {
	// NewBackend creates a fresh, empty backend for each test
	NewBackend func(t *testing.T) object.Backend
}

// Run executes all backend tests.
func (suite *BackendTestSuite) Run(t *testing.T) {
	t.Run("StorageID", suite.testStorageID)
	t.Run("WriteRead", suite.testWriteRead)
	t.Run("Overwrite", suite.testOverwrite)
	t.Run("EmptyObject", suite.testEmptyObject)
	t.Run("UnknownSize", suite.testUnknownSize)
	t.Run("ReadMissing", suite.testReadMissing)
	t.Run("Delete", suite.testDelete)
	t.Run("DeleteMissing", suite.testDeleteMissing)
	t.Run("Isolation", suite.testIsolation)
}

func (suite *BackendTestSuite) testStorageID(t *testing.T) {
	b := suite.NewBackend(t)
	assert.NotEmpty(t, b.StorageID())
	assert.Equal(t, b.StorageID(), b.StorageID())
}

func (suite *BackendTestSuite) testWriteRead(t *testing.T) {
	b := suite.NewBackend(t)

	data := []byte("hello object store")
	WriteObject(t, b, "urn:oid:1", data)

	assert.Equal(t, data, ReadObject(t, b, "urn:oid:1"))
}

func (suite *BackendTestSuite) testOverwrite(t *testing.T) {
	b := suite.NewBackend(t)

	WriteObject(t, b, "urn:oid:1", []byte("first version, longer"))
	WriteObject(t, b, "urn:oid:1", []byte("second"))

	assert.Equal(t, []byte("second"), ReadObject(t, b, "urn:oid:1"))
}

func (suite *BackendTestSuite) testEmptyObject(t *testing.T) {
	b := suite.NewBackend(t)

	WriteObject(t, b, "urn:oid:7", []byte{})
	assert.Empty(t, ReadObject(t, b, "urn:oid:7"))
}

func (suite *BackendTestSuite) testUnknownSize(t *testing.T) {
	b := suite.NewBackend(t)

	// io.MultiReader hides any Seek/Len methods of the underlying readers
	r := io.MultiReader(strings.NewReader("abc"), strings.NewReader("def"))
	require.NoError(t, b.WriteObject(context.Background(), "urn:oid:2", r, -1))

	assert.Equal(t, []byte("abcdef"), ReadObject(t, b, "urn:oid:2"))
}

func (suite *BackendTestSuite) testReadMissing(t *testing.T) {
	b := suite.NewBackend(t)

	_, err := b.ReadObject(context.Background(), "urn:oid:404")
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func (suite *BackendTestSuite) testDelete(t *testing.T) {
	b := suite.NewBackend(t)
	WriteObject(t, b, "urn:oid:3", []byte("x"))

	require.NoError(t, b.DeleteObject(context.Background(), "urn:oid:3"))

	_, err := b.ReadObject(context.Background(), "urn:oid:3")
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func (suite *BackendTestSuite) testDeleteMissing(t *testing.T) {
	b := suite.NewBackend(t)

	err := b.DeleteObject(context.Background(), "urn:oid:404")
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func (suite *BackendTestSuite) testIsolation(t *testing.T) {
	b := suite.NewBackend(t)

	WriteObject(t, b, "urn:oid:1", []byte("one"))
	WriteObject(t, b, "urn:oid:10", []byte("ten"))
	require.NoError(t, b.DeleteObject(context.Background(), "urn:oid:1"))

	assert.Equal(t, []byte("ten"), ReadObject(t, b, "urn:oid:10"))
}

// ============================================================================
// Helpers
// ============================================================================

// WriteObject writes data with a known size and fails the test on error.
func WriteObject(t *testing.T, b object.Backend, urn string, data []byte) {
	t.Helper()
	require.NoError(t, b.WriteObject(context.Background(), urn, bytes.NewReader(data), int64(len(data))))
}

// ReadObject reads a whole object and fails the test on error.
func ReadObject(t *testing.T, b object.Backend, urn string) []byte {
	t.Helper()

	rc, err := b.ReadObject(context.Background(), urn)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}
