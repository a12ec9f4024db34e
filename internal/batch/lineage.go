package batch

import (
	"iter"

	"traceflow-backend/internal/models"

	"gorm.io/gorm"
)

// Ancestors returns a restartable sequence of the lineage edges reachable by
// walking parent edges up from batchID, breadth first. Each batch is
// expanded at most once, so the walk terminates even if the edge set were
// ever to contain a cycle.
func Ancestors(db *gorm.DB, batchID uint) iter.Seq2[models.BatchLineage, error] {
	return walkLineage(db, batchID, "child_batch_id", func(e models.BatchLineage) uint {
		return e.ParentBatchID
	})
}

// Descendants is the mirror of Ancestors, walking child edges down from
// batchID.
func Descendants(db *gorm.DB, batchID uint) iter.Seq2[models.BatchLineage, error] {
	return walkLineage(db, batchID, "parent_batch_id", func(e models.BatchLineage) uint {
		return e.ChildBatchID
	})
}

// walkLineage loads edges level by level from the store, keyed on nearColumn
// and following farEnd to the next frontier. Edges within a level come back
// in id order, so traversal is deterministic.
func walkLineage(db *gorm.DB, start uint, nearColumn string, farEnd func(models.BatchLineage) uint) iter.Seq2[models.BatchLineage, error] {
	return func(yield func(models.BatchLineage, error) bool) {
		visited := map[uint]bool{start: true}
		frontier := []uint{start}

		for len(frontier) > 0 {
			var edges []models.BatchLineage
			if err := db.Where(nearColumn+" IN ?", frontier).Order("id").Find(&edges).Error; err != nil {
				yield(models.BatchLineage{}, err)
				return
			}

			var next []uint
			for _, e := range edges {
				if !yield(e, nil) {
					return
				}
				far := farEnd(e)
				if !visited[far] {
					visited[far] = true
					next = append(next, far)
				}
			}
			frontier = next
		}
	}
}
