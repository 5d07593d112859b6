package btree

import (
	"testing"

	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/value"
)

func newTestTree(t *testing.T) *BTree {
	t.Helper()
	p := pager.OpenMemory()
	bt, err := Create(p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return bt
}

func TestInsertThenGet_ReturnsStoredRow(t *testing.T) {
	bt := newTestTree(t)
	row := value.Row{value.Int(7), value.Text("seven")}
	if err := bt.Insert(7, row); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, found, err := bt.Get(7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected key 7 to be found")
	}
	if got[0].Integer != 7 || string(got[1].Bytes) != "seven" {
		t.Fatalf("got %+v", got)
	}
}

func TestGet_MissingKeyReturnsNotFound(t *testing.T) {
	bt := newTestTree(t)
	_, found, err := bt.Get(123)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expected key 123 to be absent from an empty tree")
	}
}

func TestInsert_ReplacesExistingKey(t *testing.T) {
	bt := newTestTree(t)
	if err := bt.Insert(1, value.Row{value.Int(1)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := bt.Insert(1, value.Row{value.Int(2)}); err != nil {
		t.Fatalf("Insert replace: %v", err)
	}
	got, found, err := bt.Get(1)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got[0].Integer != 2 {
		t.Fatalf("got %d, want 2 (replaced)", got[0].Integer)
	}
}

func TestScanAll_ReturnsAscendingKeyOrder(t *testing.T) {
	bt := newTestTree(t)
	order := []uint64{50, 10, 30, 20, 40}
	for _, k := range order {
		if err := bt.Insert(k, value.Row{value.Int(int64(k))}); err != nil {
			t.Fatalf("Insert %d: %v", k, err)
		}
	}
	keys, rows, err := bt.ScanAll()
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	want := []uint64{10, 20, 30, 40, 50}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("key[%d] = %d, want %d", i, keys[i], k)
		}
		if rows[i][0].Integer != int64(k) {
			t.Fatalf("row[%d] = %d, want %d", i, rows[i][0].Integer, k)
		}
	}
}

func TestScanAll_ClonesRowsIndependentlyOfTree(t *testing.T) {
	bt := newTestTree(t)
	if err := bt.Insert(1, value.Row{value.Text("original")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, rows, err := bt.ScanAll()
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	rows[0][0].Bytes[0] = 'X'
	got, _, err := bt.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got[0].Bytes[0] == 'X' {
		t.Fatal("mutating a scanned row should not affect the stored row")
	}
}

func TestUpdateByKey_ReplacesRow(t *testing.T) {
	bt := newTestTree(t)
	bt.Insert(1, value.Row{value.Int(1)})
	ok, err := bt.UpdateByKey(1, value.Row{value.Int(99)})
	if err != nil {
		t.Fatalf("UpdateByKey: %v", err)
	}
	if !ok {
		t.Fatal("expected UpdateByKey to find key 1")
	}
	got, _, _ := bt.Get(1)
	if got[0].Integer != 99 {
		t.Fatalf("got %d, want 99", got[0].Integer)
	}
}

func TestUpdateByKey_MissingKeyReturnsFalse(t *testing.T) {
	bt := newTestTree(t)
	ok, err := bt.UpdateByKey(404, value.Row{value.Int(1)})
	if err != nil {
		t.Fatalf("UpdateByKey: %v", err)
	}
	if ok {
		t.Fatal("expected false for a key never inserted")
	}
}

func TestDeleteByKey_RemovesRowAndPreservesOthers(t *testing.T) {
	bt := newTestTree(t)
	for i := uint64(0); i < 5; i++ {
		bt.Insert(i, value.Row{value.Int(int64(i))})
	}
	ok, err := bt.DeleteByKey(2)
	if err != nil {
		t.Fatalf("DeleteByKey: %v", err)
	}
	if !ok {
		t.Fatal("expected key 2 to be found and deleted")
	}
	if _, found, _ := bt.Get(2); found {
		t.Fatal("key 2 should be gone after delete")
	}
	for _, k := range []uint64{0, 1, 3, 4} {
		if _, found, _ := bt.Get(k); !found {
			t.Fatalf("key %d should still be present", k)
		}
	}
}

func TestDeleteByKey_MissingKeyReturnsFalse(t *testing.T) {
	bt := newTestTree(t)
	ok, err := bt.DeleteByKey(1)
	if err != nil {
		t.Fatalf("DeleteByKey: %v", err)
	}
	if ok {
		t.Fatal("expected false deleting a key never inserted")
	}
}

func TestInsert_ManyRowsForcesSplitsAndStaysSearchable(t *testing.T) {
	bt := newTestTree(t)
	var splits int
	bt.SetSplitHook(func() { splits++ })

	const n = 10000
	for i := uint64(0); i < n; i++ {
		row := value.Row{value.Int(int64(i)), value.Text("row")}
		if err := bt.Insert(i, row); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if splits == 0 {
		t.Fatal("expected SetSplitHook to fire while loading 10000 rows into an order-64 tree")
	}

	for _, probe := range []uint64{0, 1, n / 2, n - 1} {
		row, found, err := bt.Get(probe)
		if err != nil {
			t.Fatalf("Get %d: %v", probe, err)
		}
		if !found {
			t.Fatalf("expected key %d to be present after %d inserts", probe, n)
		}
		if row[0].Integer != int64(probe) {
			t.Fatalf("Get %d returned row for %d", probe, row[0].Integer)
		}
	}

	keys, _, err := bt.ScanAll()
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(keys) != n {
		t.Fatalf("got %d keys, want %d", len(keys), n)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] <= keys[i-1] {
			t.Fatalf("keys not strictly ascending at index %d: %d <= %d", i, keys[i], keys[i-1])
		}
	}
}

func TestOpen_ReattachesToExistingRoot(t *testing.T) {
	p := pager.OpenMemory()
	bt, err := Create(p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := bt.Insert(1, value.Row{value.Text("hello")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	root := bt.Root()

	reopened := Open(p, root)
	row, found, err := reopened.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || string(row[0].Bytes) != "hello" {
		t.Fatalf("reopened tree did not find the row written before Open: found=%v row=%+v", found, row)
	}
}
