package bootstrap

import (
	"errors"
	"testing"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/infra/blob"
	"github.com/waggle-sensor/facilities/internal/modules/service"
	"go.uber.org/zap"
)

func TestBuildContainer_ConfigAndLogger(t *testing.T) {
	t.Setenv("FACILITIES_APP_NAME", "facilities-test")

	inj := BuildContainer()
	cfg, err := do.Invoke[*config.Config](inj)
	require.NoError(t, err)
	assert.Equal(t, "facilities-test", cfg.App.Name)

	log, err := do.Invoke[*zap.Logger](inj)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestBuildContainer_ObjectStoreIsLazy(t *testing.T) {
	t.Setenv("FACILITIES_S3_BUCKET", "inventory")
	t.Setenv("FACILITIES_S3_ENDPOINT", "http://localhost:9000")

	inj := BuildContainer()
	store, err := do.Invoke[service.BlobStore](inj)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, "inventory", store.(*blob.S3Deps).Bucket)
}

func TestClose_RunsInReverseOrder(t *testing.T) {
	inj := BuildContainer()
	c := do.MustInvoke[*closers](inj)

	var order []int
	c.add(func() error { order = append(order, 1); return nil })
	c.add(func() error { order = append(order, 2); return errors.New("boom") })

	err := Close(inj)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []int{2, 1}, order)

	// a second close has nothing left to release
	assert.NoError(t, Close(inj))
}
