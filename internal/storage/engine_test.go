package storage

import (
	"path/filepath"
	"testing"

	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/value"
)

func testSchema() TableSchema {
	return TableSchema{Columns: []Column{
		{Name: "id", Type: TypeInteger},
		{Name: "name", Type: TypeText},
	}}
}

func TestCreateTable_ThenGetTable_RoundTrips(t *testing.T) {
	eng := NewEngine(pager.OpenMemory())
	if err := eng.CreateTable("users", testSchema(), false); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	tbl, err := eng.GetTable("users")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if tbl.Name != "users" {
		t.Fatalf("got name %q", tbl.Name)
	}
}

func TestCreateTable_DuplicateWithoutIfNotExistsIsError(t *testing.T) {
	eng := NewEngine(pager.OpenMemory())
	if err := eng.CreateTable("users", testSchema(), false); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := eng.CreateTable("users", testSchema(), false); err == nil {
		t.Fatal("expected an error on duplicate CREATE TABLE")
	}
}

func TestCreateTable_DuplicateWithIfNotExistsIsSilent(t *testing.T) {
	eng := NewEngine(pager.OpenMemory())
	if err := eng.CreateTable("users", testSchema(), false); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := eng.CreateTable("users", testSchema(), true); err != nil {
		t.Fatalf("expected no error with IF NOT EXISTS, got %v", err)
	}
}

func TestGetTable_MissingNameReturnsError(t *testing.T) {
	eng := NewEngine(pager.OpenMemory())
	if _, err := eng.GetTable("ghost"); err == nil {
		t.Fatal("expected ErrTableNotFound")
	}
}

func TestDropTable_RemovesIt(t *testing.T) {
	eng := NewEngine(pager.OpenMemory())
	eng.CreateTable("t", testSchema(), false)
	if err := eng.DropTable("t"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := eng.GetTable("t"); err == nil {
		t.Fatal("expected table to be gone after DropTable")
	}
}

func TestTable_InsertAssignsIncreasingRowIDs(t *testing.T) {
	eng := NewEngine(pager.OpenMemory())
	eng.CreateTable("t", testSchema(), false)
	tbl, _ := eng.GetTable("t")

	k1, err := tbl.Insert(value.Row{value.Int(1), value.Text("a")})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	k2, err := tbl.Insert(value.Row{value.Int(2), value.Text("b")})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if k2 != k1+1 {
		t.Fatalf("got row ids %d, %d; want consecutive", k1, k2)
	}
}

func TestEngine_BootstrapThenSaveAndLoadCatalog_RoundTrips(t *testing.T) {
	p := pager.OpenMemory()
	eng := NewEngine(p)
	if err := eng.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := eng.CreateTable("t", testSchema(), false); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	tbl, _ := eng.GetTable("t")
	if _, err := tbl.Insert(value.Row{value.Int(1), value.Text("alice")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := eng.SaveCatalog(); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}

	eng2 := NewEngine(p)
	if err := eng2.LoadCatalog(); err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	tbl2, err := eng2.GetTable("t")
	if err != nil {
		t.Fatalf("GetTable after reload: %v", err)
	}
	if len(tbl2.Schema.Columns) != 2 || tbl2.Schema.Columns[1].Name != "name" {
		t.Fatalf("schema not recovered correctly: %+v", tbl2.Schema)
	}
	row, found, err := tbl2.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || string(row[1].Bytes) != "alice" {
		t.Fatalf("row not recovered: found=%v row=%+v", found, row)
	}

	// The row-id counter must also have been recovered so a fresh insert
	// does not collide with the already-stored row.
	k, err := tbl2.Insert(value.Row{value.Int(2), value.Text("bob")})
	if err != nil {
		t.Fatalf("Insert after reload: %v", err)
	}
	if k != 1 {
		t.Fatalf("got next row id %d, want 1", k)
	}
}

func TestEngine_CatalogRoundTrip_AcrossDiskReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.db")

	p, err := pager.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	eng := NewEngine(p)
	if err := eng.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	eng.CreateTable("widgets", testSchema(), false)
	tbl, _ := eng.GetTable("widgets")
	tbl.Insert(value.Row{value.Int(1), value.Text("gear")})
	if err := eng.SaveCatalog(); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := pager.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p2.Close()
	eng2 := NewEngine(p2)
	if p2.NextPageID() == CatalogPageID {
		t.Fatal("a reopened database with a saved catalog should not look brand new")
	}
	if err := eng2.LoadCatalog(); err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	tbl2, err := eng2.GetTable("widgets")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	row, found, err := tbl2.Get(0)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if string(row[1].Bytes) != "gear" {
		t.Fatalf("got %q, want gear", row[1].Bytes)
	}
}
