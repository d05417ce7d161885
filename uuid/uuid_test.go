package uuid_test

import (
	"testing"

	"github.com/rimmartin/loom/test"
	"github.com/rimmartin/loom/uuid"
)

func TestUUIDConversion(t *testing.T) {
	id := uuid.NewV4()
	idStr := id.String()

	idParsed, err := uuid.Parse(idStr)
	if err != nil {
		t.Fatal(err)
	}

	test.AssertTrue(t, id, idParsed)
}

func BenchmarkUUIDToString(b *testing.B) {
	for range b.N {
		id := uuid.NewV4()
		idStr := id.String()
		uuid.Parse(idStr)
	}
}
