// Package relite is a single-process, embedded, file-backed relational
// data engine: a pager-managed page cache over a file, a clustered B-tree
// keyed by a monotonically increasing row id, a write-ahead log for atomic
// transactions, and a small SQL front end (CREATE TABLE, INSERT, SELECT,
// UPDATE, DELETE) with positional prepared-statement parameters.
//
// # Basic usage
//
//	conn := relite.OpenMemory(relite.DefaultConfig(), nil)
//	defer conn.Close()
//
//	conn.Execute("CREATE TABLE t (id INTEGER, name TEXT)")
//	conn.Execute("INSERT INTO t VALUES (1, 'alice')")
//
//	res, err := conn.Execute("SELECT * FROM t")
//	for _, row := range res.Rows {
//	    fmt.Println(row)
//	}
//
// # Disk-backed databases and transactions
//
//	conn, err := relite.Open("demo.db", relite.DefaultConfig(), nil)
//	conn.Begin()
//	conn.Execute("INSERT INTO k VALUES (1)")
//	conn.Commit()
//
// # Prepared statements
//
//	stmt, _ := conn.Prepare("INSERT INTO u VALUES (?)")
//	stmt.BindParameter(0, relite.Int(7))
//	stmt.Step()
package relite
