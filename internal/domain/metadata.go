package domain

// Metadata is a single-row-per-key settings table. Values are JSON-encoded
// scalars; the only key the ledger itself owns is "schema_version".
type Metadata struct {
	Key   string `json:"key"   gorm:"type:varchar(64);primaryKey"`
	Value string `json:"value" gorm:"type:text;not null"`
}

// TableName returns the database table name for Metadata.
func (Metadata) TableName() string { return "metadata" }

// MetadataSchemaVersion is the metadata key holding the integer schema
// version marker.
const MetadataSchemaVersion = "schema_version"
