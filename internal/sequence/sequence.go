// Package sequence allocates the human-readable sequential display IDs
// shown to users next to the opaque database identifiers, e.g.
// "OP-25-0007" or "TRX-CA-25-0003".
//
// IDs are numbered independently per (entity kind, 2-digit year)
// partition. Allocation is an atomic increment of a per-partition counter
// row executed inside the caller's database transaction, so the issued
// number commits or rolls back together with the row that uses it. The
// unique index on display_id is the backstop: if two allocations ever
// race to the same number, the insert fails and the caller retries.
package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budgetdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entity identifies one independently numbered display-ID family.
type Entity string

const (
	EntityOpexPlan         Entity = "OP"
	EntityCapexPlan        Entity = "CA"
	EntityOpexTransaction  Entity = "TRX-OP"
	EntityCapexTransaction Entity = "TRX-CA"
)

// PlanEntity returns the plan ID family for a budget kind.
func PlanEntity(kind models.BudgetKind) Entity {
	if kind == models.BudgetKindCapex {
		return EntityCapexPlan
	}
	return EntityOpexPlan
}

// TransactionEntity returns the transaction ID family for a budget kind.
func TransactionEntity(kind models.BudgetKind) Entity {
	if kind == models.BudgetKindCapex {
		return EntityCapexTransaction
	}
	return EntityOpexTransaction
}

// Partition returns the counter partition key for an entity and year,
// e.g. "TRX-OP-25". The year source differs by entity: plans are
// partitioned by their fiscal year, transactions by the calendar year at
// creation time. That asymmetry comes from the source system and is
// preserved; the caller picks the year, the allocator does not.
func Partition(e Entity, year int) string {
	return fmt.Sprintf("%s-%02d", e, year%100)
}

// Format renders the display ID for allocation n in a partition. Each
// entity owns its format; they are not to be unified silently even where
// they currently agree. The suffix widens past 9999 rather than wrap,
// which is why seed() orders by length before value.
func Format(e Entity, year int, n int64) string {
	return fmt.Sprintf("%s-%04d", Partition(e, year), n)
}

// ParseSuffix extracts the numeric counter suffix from a display ID.
func ParseSuffix(displayID string) (int64, error) {
	i := strings.LastIndex(displayID, "-")
	if i < 0 || i == len(displayID)-1 {
		return 0, fmt.Errorf("display ID %q has no counter suffix", displayID)
	}
	n, err := strconv.ParseInt(displayID[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("display ID %q has a non-numeric suffix: %w", displayID, err)
	}
	return n, nil
}

// Allocator issues display IDs from per-partition counter rows.
//
// NextID must be called inside the database transaction that inserts the
// row carrying the ID; the datastore's row lock on the counter is the
// only coordination point between concurrent allocations.
type Allocator struct{}

// NewAllocator creates an Allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// NextID returns the next display ID in the (entity, year) partition.
func (a *Allocator) NextID(tx *gorm.DB, e Entity, year int) (string, error) {
	key := Partition(e, year)

	var ctr models.SequenceCounter
	err := tx.Where("partition = ?", key).First(&ctr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seed, seedErr := a.seed(tx, e, key)
		if seedErr != nil {
			return "", seedErr
		}
		// A concurrent first allocation may create the row between the
		// read and this insert; DoNothing keeps whichever seed won.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.SequenceCounter{Partition: key, Value: seed}).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	// Atomic increment against the persisted value. Under concurrency the
	// row lock holds until the surrounding transaction commits, which
	// serializes allocations in the same partition.
	res := tx.Model(&models.SequenceCounter{}).
		Where("partition = ?", key).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return "", res.Error
	}

	if err := tx.Where("partition = ?", key).First(&ctr).Error; err != nil {
		return "", err
	}

	return Format(e, year, ctr.Value), nil
}

// seed recovers the counter for partitions populated before counter rows
// existed: read the highest display ID already present (soft-deleted rows
// included, their IDs are never reused) and continue after it. Within one
// suffix width the zero padding makes the lexicographic maximum the
// numeric maximum; ordering by length first keeps that true once suffixes
// widen past four digits.
func (a *Allocator) seed(tx *gorm.DB, e Entity, key string) (int64, error) {
	var ids []string
	if err := tx.Unscoped().
		Model(modelFor(e)).
		Where("display_id LIKE ?", key+"-%").
		Order("length(display_id) DESC, display_id DESC").
		Limit(1).
		Pluck("display_id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ParseSuffix(ids[0])
}

// modelFor maps an entity to the table its display IDs live in.
func modelFor(e Entity) interface{} {
	switch e {
	case EntityOpexPlan, EntityCapexPlan:
		return &models.BudgetPlan{}
	default:
		return &models.Transaction{}
	}
}
