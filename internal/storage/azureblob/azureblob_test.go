package azureblob

import (
	"context"
	"os"
	"testing"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"
	"audio-interviewer/internal/storage/storagetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresContainerAndCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{ConnectionString: "UseDevelopmentStorage=true"})
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))

	_, err = New(context.Background(), Options{Container: "audio"})
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	st := &Store{container: "audio"}

	_, err := st.Download(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.True(t, errors.Is(st.Delete(context.Background(), "not-a-uuid"), storage.ErrNotFound))
}

// TestAzureStore runs against Azurite or a real account when
// AZURE_STORAGE_TEST_CONNECTION_STRING is set.
func TestAzureStore(t *testing.T) {
	conn := os.Getenv("AZURE_STORAGE_TEST_CONNECTION_STRING")
	if conn == "" {
		t.Skip("AZURE_STORAGE_TEST_CONNECTION_STRING not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := New(ctx, Options{ConnectionString: conn, Container: "audio-test-" + uuid.NewString()[:8]})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = st.client.DeleteContainer(context.Background(), st.container, nil) })

	storagetest.RunBlobs(t, st)
}
