package minio

import (
	"errors"
	"testing"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing bucket", Config{Endpoint: "localhost:9000"}, "bucket is required"},
		{"missing endpoint", Config{Bucket: "b"}, "endpoint is required"},
		{"missing access key", Config{Bucket: "b", Endpoint: "e"}, "access key is required"},
		{"missing secret key", Config{Bucket: "b", Endpoint: "e", AccessKey: "a"}, "secret key is required"},
		{"complete", Config{Bucket: "b", Endpoint: "e", AccessKey: "a", SecretKey: "s"}, ""},
		{"client given", Config{Bucket: "b", Client: &minio.Client{}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	notFound := minio.ErrorResponse{Code: "NoSuchKey"}
	assert.ErrorIs(t, translate(notFound), object.ErrObjectNotFound)

	noVersion := minio.ErrorResponse{Code: "NoSuchVersion"}
	assert.ErrorIs(t, translate(noVersion), object.ErrObjectNotFound)

	other := errors.New("connection reset")
	err := translate(other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, object.ErrObjectNotFound)
}

func TestWrapVersionNotFound(t *testing.T) {
	m := &MinioBackend{}

	err := m.wrap("read", "urn:oid:1", "v1", minio.ErrorResponse{Code: "NoSuchVersion"})
	assert.ErrorIs(t, err, object.ErrVersionNotFound)

	err = m.wrap("read", "urn:oid:1", "", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}
