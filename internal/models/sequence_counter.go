package models

// SequenceCounter holds the last issued display-ID number for one
// (entity kind, year) partition, e.g. "TRX-OP-25". Incrementing the row
// inside the caller's database transaction is what serializes concurrent
// allocations in the same partition.
type SequenceCounter struct {
	Partition string `gorm:"primaryKey" json:"partition"`
	Value     int64  `gorm:"not null" json:"value"`
}
