package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/docker/docker/api/types/registry"
	"github.com/stretchr/testify/assert"
)

func newTestDocker(eng *fakeEngine) *Docker {
	return &Docker{ctx: context.Background(), cli: eng}
}

func TestRemoveSkipsImageInUse(t *testing.T) {
	eng := newFakeEngine()
	eng.inUse["src/app:v1"] = []string{"c0ffee", "deadbe"}

	docker := newTestDocker(eng)

	// The safety check is idempotent: a second call produces the same
	// skip outcome and still no removal.
	assert.NoError(t, docker.remove("src/app:v1"))
	assert.NoError(t, docker.remove("src/app:v1"))

	assert.Equal(t, []string{
		"containers src/app:v1",
		"containers src/app:v1",
	}, eng.ops)
}

func TestRemoveDeletesUnusedImage(t *testing.T) {
	eng := newFakeEngine()
	docker := newTestDocker(eng)

	assert.NoError(t, docker.remove("src/app:v1"))

	assert.Equal(t, []string{
		"containers src/app:v1",
		"remove src/app:v1",
	}, eng.ops)
}

func TestAuthorizeEncodesRegistryAuth(t *testing.T) {
	docker := newTestDocker(newFakeEngine())

	encoded := docker.authorize(authorization{
		username: "deployer",
		password: "secret",
	})

	decoded, err := base64.URLEncoding.DecodeString(encoded)
	assert.NoError(t, err)

	var authConfig registry.AuthConfig
	assert.NoError(t, json.Unmarshal(decoded, &authConfig))
	assert.Equal(t, "deployer", authConfig.Username)
	assert.Equal(t, "secret", authConfig.Password)
}

func TestLoginTargetsTheRequestedRegistry(t *testing.T) {
	eng := newFakeEngine()
	docker := newTestDocker(eng)

	err := docker.login("artifactory.example.com", authorization{
		username: "deployer",
		password: "secret",
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"login artifactory.example.com deployer"}, eng.ops)
}
