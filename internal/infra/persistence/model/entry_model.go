package model

// EntryModel is the GORM-specific struct for the 'kv_entries' table.
// SQLite compares BLOB keys with memcmp, which gives the same ordering as
// the other key-value drivers.
type EntryModel struct {
	Key   []byte `gorm:"column:entry_key;type:blob;primaryKey"`
	Value []byte `gorm:"column:entry_value;type:blob;not null"`
}

// TableName explicitly sets the table name for GORM.
func (EntryModel) TableName() string {
	return "kv_entries"
}
