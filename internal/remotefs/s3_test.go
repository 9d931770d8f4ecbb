package remotefs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viddup/viddup/internal/remotefs"
)

func TestNewS3SourceRequiresBucket(t *testing.T) {
	_, err := remotefs.NewS3Source(remotefs.Options{})
	require.Error(t, err)
}
