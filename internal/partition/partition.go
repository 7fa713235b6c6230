// Package partition решает, какой экземпляр может захватить task.
//
// Правило: task принадлежит экземпляру с индексом i, если
// groupid == i или trancheid == i. Пересечение допускается: один task
// может подходить нескольким экземплярам, гонка разрешается условной
// записью в хранилище, а не здесь.
package partition

import "github.com/shaiso/Tranche/internal/domain"

// Eligible возвращает true, если экземпляр instanceIndex может захватить task.
func Eligible(groupID, trancheID, instanceIndex int) bool {
	return groupID == instanceIndex || trancheID == instanceIndex
}

// Filter оставляет tasks, подходящие экземпляру. Порядок сохраняется.
func Filter(tasks []domain.Task, instanceIndex int) []domain.Task {
	var out []domain.Task
	for _, t := range tasks {
		if Eligible(t.GroupID, t.TrancheID, instanceIndex) {
			out = append(out, t)
		}
	}
	return out
}
