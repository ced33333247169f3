package groupform

import (
	"slices"
	"strings"

	"github.com/fydp-portal/internal/model"
)

const DefaultPageSize = 20

type StatusFilter string

const (
	FilterAll          StatusFilter = "all"
	FilterFree         StatusFilter = "free"
	FilterInvited      StatusFilter = "invited"
	FilterInMyGroup    StatusFilter = "in_my_group"
	FilterInOtherGroup StatusFilter = "in_other_group"
)

type SortOrder string

const (
	SortAZ SortOrder = "a-z"
	SortZA SortOrder = "z-a"
)

// Query - параметры таблицы кандидатов. Пустые поля означают all, a-z и первую страницу.
type Query struct {
	Search string
	Status StatusFilter
	Sort   SortOrder
	Page   int
}

type Page struct {
	Students   []model.Student
	Total      int // после фильтрации, до пагинации
	Page       int
	TotalPages int
}

// View возвращает страницу кандидатов по запросу.
func (w *Workflow) View(q Query) Page {
	return Paginate(Filter(w.Students(), q), q.Page, w.pageSize)
}

// Filter применяет поиск по имени (без учёта регистра), фильтр состояния и сортировку.
func Filter(students []model.Student, q Query) []model.Student {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]model.Student, 0, len(students))
	for _, s := range students {
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		if !matchStatus(s, q.Status) {
			continue
		}
		out = append(out, s)
	}
	desc := q.Sort == SortZA
	slices.SortStableFunc(out, func(a, b model.Student) int {
		c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		if desc {
			return -c
		}
		return c
	})
	return out
}

func matchStatus(s model.Student, f StatusFilter) bool {
	switch f {
	case "", FilterAll:
		return true
	case FilterFree:
		return s.DisplayState() == model.DisplayFree
	case FilterInvited:
		return s.DisplayState() == model.DisplayInvited
	case FilterInMyGroup:
		return s.DisplayState() == model.DisplayInMyGroup
	case FilterInOtherGroup:
		return s.DisplayState() == model.DisplayInOtherGroup
	default:
		return false
	}
}

// Paginate режет список на страницы; номер страницы приводится к [1, TotalPages].
func Paginate(students []model.Student, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(students)
	pages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}
	if last := max(pages, 1); page > last {
		page = last
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := min(start+size, total)
	return Page{
		Students:   students[start:end],
		Total:      total,
		Page:       page,
		TotalPages: pages,
	}
}
