package personalization

import (
	"testing"

	"go.uber.org/goleak"
)

// Batch personalization fans out goroutines; none may outlive a call.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
