package optimistic_test

import (
	"testing"

	"github.com/ValentinKolb/dBook/lib/optimistic"
	storetesting "github.com/ValentinKolb/dBook/lib/optimistic/testing"
)

func Test(t *testing.T) {
	storetesting.RunRecordStoreTests(t, "MemoryStore", func(opts optimistic.StoreOptions[storetesting.Item]) optimistic.IRecordStore[storetesting.Item] {
		return optimistic.NewRecordStore(opts)
	})
}
