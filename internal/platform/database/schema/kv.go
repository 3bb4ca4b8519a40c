// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the persistent stores so
// queries never spell them out by hand.
package schema

import "strings"

// KVTable describes a key/value table.
type KVTable struct {
	Table     string
	Key       string
	Value     string
	UpdatedAt string
}

// LocalKV is the table of the SQLite store file.
var LocalKV = KVTable{
	Table:     "kv",
	Key:       "key",
	Value:     "value",
	UpdatedAt: "updated_at",
}

// ClientKV is the table created by the PostgreSQL migrations.
var ClientKV = KVTable{
	Table:     "client_kv",
	Key:       "key",
	Value:     "value",
	UpdatedAt: "updated_at",
}

func (t KVTable) Columns() []string {
	return []string{t.Key, t.Value, t.UpdatedAt}
}

// ColumnList returns the columns joined for an INSERT or SELECT list.
func (t KVTable) ColumnList() string {
	return strings.Join(t.Columns(), ", ")
}
