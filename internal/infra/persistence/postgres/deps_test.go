package postgres

import (
	"testing"

	"swimeeter/testutil"
)

func TestImportsStayWithinPersistenceLayer(t *testing.T) {
	testutil.AssertFirstPartyImportsWithin(t, ".", "swimeeter/pkg/domain", "swimeeter/internal/infra/persistence/memory")
}
