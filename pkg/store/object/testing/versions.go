package testing

import (
	"context"
	"io"
	"testing"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// VersionerTestSuite is a conformance suite for object.Versioner.
//
// The same scenarios hold for snapshot based versioners (a version exists
// once SaveVersion is called) and for natively versioned buckets (every
// write is a version), because each write below is followed by SaveVersion.
type VersionerTestSuite struct {
	// NewVersioner returns a fresh backend and the versioner operating on it
	NewVersioner func(t *testing.T) (object.Backend, object.Versioner)
}

// Run executes all versioner tests.
func (suite *VersionerTestSuite) Run(t *testing.T) {
	t.Run("SaveAndList", suite.testSaveAndList)
	t.Run("GetVersion", suite.testGetVersion)
	t.Run("ContentOfVersion", suite.testContentOfVersion)
	t.Run("Restore", suite.testRestore)
	t.Run("UnknownVersion", suite.testUnknownVersion)
	t.Run("SaveMissingObject", suite.testSaveMissing)
	t.Run("NoVersions", suite.testNoVersions)
}

func (suite *VersionerTestSuite) writeAndSave(t *testing.T, b object.Backend, v object.Versioner, urn, content string) {
	t.Helper()
	WriteObject(t, b, urn, []byte(content))
	require.NoError(t, v.SaveVersion(context.Background(), urn))
}

func (suite *VersionerTestSuite) testSaveAndList(t *testing.T) {
	b, v := suite.NewVersioner(t)
	suite.writeAndSave(t, b, v, "urn:oid:1", "v1")
	suite.writeAndSave(t, b, v, "urn:oid:1", "v2")

	versions, err := v.GetVersions(context.Background(), "urn:oid:1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.NotEqual(t, versions[0].ID, versions[1].ID)
	assert.Equal(t, int64(2), versions[0].Size)
}

func (suite *VersionerTestSuite) testGetVersion(t *testing.T) {
	b, v := suite.NewVersioner(t)
	suite.writeAndSave(t, b, v, "urn:oid:1", "hello")

	versions, err := v.GetVersions(context.Background(), "urn:oid:1")
	require.NoError(t, err)
	require.Len(t, versions, 1)

	got, err := v.GetVersion(context.Background(), "urn:oid:1", versions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, versions[0].ID, got.ID)
	assert.Equal(t, int64(5), got.Size)
}

func (suite *VersionerTestSuite) testContentOfVersion(t *testing.T) {
	b, v := suite.NewVersioner(t)
	suite.writeAndSave(t, b, v, "urn:oid:1", "old")
	suite.writeAndSave(t, b, v, "urn:oid:1", "new")

	versions, err := v.GetVersions(context.Background(), "urn:oid:1")
	require.NoError(t, err)
	require.Len(t, versions, 2)

	assert.Equal(t, "new", readVersion(t, v, "urn:oid:1", versions[0].ID))
	assert.Equal(t, "old", readVersion(t, v, "urn:oid:1", versions[1].ID))
}

func (suite *VersionerTestSuite) testRestore(t *testing.T) {
	b, v := suite.NewVersioner(t)
	suite.writeAndSave(t, b, v, "urn:oid:1", "original")
	suite.writeAndSave(t, b, v, "urn:oid:1", "changed")

	versions, err := v.GetVersions(context.Background(), "urn:oid:1")
	require.NoError(t, err)
	require.Len(t, versions, 2)

	require.NoError(t, v.RestoreVersion(context.Background(), "urn:oid:1", versions[1].ID))
	assert.Equal(t, []byte("original"), ReadObject(t, b, "urn:oid:1"))
}

func (suite *VersionerTestSuite) testUnknownVersion(t *testing.T) {
	b, v := suite.NewVersioner(t)
	suite.writeAndSave(t, b, v, "urn:oid:1", "x")

	_, err := v.GetVersion(context.Background(), "urn:oid:1", "999999")
	assert.ErrorIs(t, err, object.ErrVersionNotFound)

	_, err = v.GetContentOfVersion(context.Background(), "urn:oid:1", "999999")
	assert.ErrorIs(t, err, object.ErrVersionNotFound)

	err = v.RestoreVersion(context.Background(), "urn:oid:1", "999999")
	assert.ErrorIs(t, err, object.ErrVersionNotFound)
}

func (suite *VersionerTestSuite) testSaveMissing(t *testing.T) {
	_, v := suite.NewVersioner(t)

	err := v.SaveVersion(context.Background(), "urn:oid:404")
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func (suite *VersionerTestSuite) testNoVersions(t *testing.T) {
	_, v := suite.NewVersioner(t)

	versions, err := v.GetVersions(context.Background(), "urn:oid:404")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func readVersion(t *testing.T, v object.Versioner, urn, id string) string {
	t.Helper()

	rc, err := v.GetContentOfVersion(context.Background(), urn, id)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}
