package demo

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/fydp-portal/internal/model"
)

var (
	firstNames = []string{
		"Ahmed", "Mohamed", "Ali", "Hassan", "Omar", "Youssef", "Khaled", "Ibrahim",
		"Fatima", "Aisha", "Mariam", "Zainab", "Sarah", "Layla", "Noor", "Hana",
		"John", "Michael", "David", "James", "Robert", "William", "Richard", "Joseph",
		"Emily", "Emma", "Olivia", "Sophia", "Isabella", "Charlotte", "Amelia", "Mia",
	}
	lastNames = []string{
		"Hassan", "Ali", "Mohamed", "Ibrahim", "Ahmed", "Omar", "Khalil", "Mahmoud",
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Anderson", "Taylor", "Thomas", "Jackson", "White", "Harris", "Martin", "Thompson",
	}
)

// freeShare - доля кандидатов, ещё не состоящих в группе.
const freeShare = 0.6

// GenerateStudents создаёт n кандидатов. Один и тот же seed даёт один и тот же список.
func GenerateStudents(n int, seed int64) []model.Student {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	out := make([]model.Student, 0, n)
	for i := 1; i <= n; i++ {
		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]
		status := model.StudentStatusInGroup
		if rng.Float64() < freeShare {
			status = model.StudentStatusFree
		}
		out = append(out, model.Student{
			ID:     fmt.Sprintf("student_%d", i),
			Name:   first + " " + last,
			Email:  strings.ToLower(first) + "." + strings.ToLower(last) + "@university.edu",
			Status: status,
		})
	}
	return out
}
