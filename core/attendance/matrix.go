package attendance

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/stg-academy/haksa/core/course"
)

type (
	RowUser struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Class string `json:"class"`
	}

	// Row is one roster line of the matrix: a user plus their record (or
	// absence) for every lecture column.
	Row struct {
		User RowUser `json:"user"`
		// Cells indexes records by lecture id; a missing key means no
		// record exists yet for that lecture.
		Cells map[int]*Attendance `json:"cells"`
	}

	// Matrix is the roster × lecture grid built from a flat record list.
	Matrix struct {
		rows     []*Row
		byUser   map[int]*Row
		lectures []course.Lecture

		sortKey string
		sortAsc bool
	}
)

// BuildMatrix groups records by user and indexes each group by lecture.
// The first record seen for a user establishes the row's display name and
// class; when one user has duplicate records for one lecture, the later
// record in input order wins the cell. An empty record list yields an
// empty matrix.
func BuildMatrix(records []Attendance, lectures []course.Lecture) *Matrix {
	m := &Matrix{
		byUser:   make(map[int]*Row),
		lectures: lectures,
	}
	for i := range records {
		att := records[i]
		row, ok := m.byUser[att.UserID]
		if !ok {
			row = &Row{
				User:  RowUser{ID: att.UserID, Name: att.UserName, Class: att.UserClass},
				Cells: make(map[int]*Attendance),
			}
			m.byUser[att.UserID] = row
			m.rows = append(m.rows, row)
		}
		row.Cells[att.LectureID] = &att
	}
	return m
}

func (m *Matrix) Lectures() []course.Lecture { return m.lectures }

// Cell returns the record for a (user, lecture) pair, or nil.
func (m *Matrix) Cell(userID, lectureID int) *Attendance {
	if row, ok := m.byUser[userID]; ok {
		return row.Cells[lectureID]
	}
	return nil
}

// SortBy sets the sort key; repeating the current key toggles direction,
// switching keys resets to ascending. Only "name" is supported.
func (m *Matrix) SortBy(key string) {
	if key == m.sortKey {
		m.sortAsc = !m.sortAsc
		return
	}
	m.sortKey = key
	m.sortAsc = true
}

// Rows projects the matrix: a case-insensitive substring search over name
// and class is applied first, then the current sort. Name ordering is
// locale-aware (Korean collation).
func (m *Matrix) Rows(search string) []Row {
	search = strings.ToLower(strings.TrimSpace(search))

	rows := make([]Row, 0, len(m.rows))
	for _, row := range m.rows {
		if search != "" &&
			!strings.Contains(strings.ToLower(row.User.Name), search) &&
			!strings.Contains(strings.ToLower(row.User.Class), search) {
			continue
		}
		rows = append(rows, *row)
	}

	if m.sortKey == "name" {
		cl := collate.New(language.Korean)
		sort.SliceStable(rows, func(i, j int) bool {
			less := cl.CompareString(rows[i].User.Name, rows[j].User.Name) < 0
			if m.sortAsc {
				return less
			}
			return cl.CompareString(rows[j].User.Name, rows[i].User.Name) < 0
		})
	}
	return rows
}
