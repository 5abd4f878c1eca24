package ddl

// PlacemarkTable is the fixed layout every storage backend loads into.
// Column order matches storage.Columns.
func PlacemarkTable(fqn string) TableDef {
	return TableDef{
		FQN: fqn,
		Columns: []ColumnDef{
			{Name: "line_number", Kind: KindInt},
			{Name: "name", Kind: KindText, Nullable: true},
			{Name: "description", Kind: KindText, Nullable: true},
			{Name: "latitude", Kind: KindFloat},
			{Name: "longitude", Kind: KindFloat},
			{Name: "extended_data", Kind: KindText, Nullable: true},
		},
	}
}
