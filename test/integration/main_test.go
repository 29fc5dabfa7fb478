package integration_test

import (
	"sync"
	"testing"

	"crmchat_backend/test/helpers"
)

var (
	serverOnce sync.Once
	testServer *helpers.TestServer
)

// GetTestServer lazily boots one shared application instance for the suite.
func GetTestServer(t *testing.T) *helpers.TestServer {
	t.Helper()
	serverOnce.Do(func() {
		testServer = helpers.NewTestServer(t)
	})
	if testServer == nil {
		t.Skip("DATABASE_URL not set; skipping integration tests")
	}
	return testServer
}
