// Package testing provides a conformance suite for optimistic.IRecordStore implementations.
//
// Usage:
//
//	func Test(t *testing.T) {
//		storetesting.RunRecordStoreTests(t, "MemoryStore", func(opts optimistic.StoreOptions[storetesting.Item]) optimistic.IRecordStore[storetesting.Item] {
//			return optimistic.NewRecordStore(opts)
//		})
//	}
package testing
