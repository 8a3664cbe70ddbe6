package attendance

import (
	"context"
	"errors"
)

var ErrSaveInFlight = errors.New("a save is already in flight")

// CellEdit drives one matrix cell through the create-or-update decision.
// The decision is based solely on whether the cell carried a record when
// the edit was opened: an existing record is updated in place, anything
// else creates a fresh one.
type CellEdit struct {
	svc  *Service
	cell Cell

	Status Status
	Note   string

	saving bool
}

// OpenEdit seeds an edit from the cell's existing record; a cell without
// one starts at PRESENT with an empty note.
func (svc *Service) OpenEdit(cell Cell) *CellEdit {
	e := &CellEdit{svc: svc, cell: cell, Status: StatusPresent}
	if cell.Attendance != nil {
		e.Status = cell.Attendance.Status
		e.Note = cell.Attendance.Note.String
	}
	return e
}

// Saving reports whether a save is in flight; callers disable further
// cell interactions while it is.
func (e *CellEdit) Saving() bool { return e.saving }

// Save commits the edit. On failure the edit state is left intact so the
// caller can surface the error and retry; on success the caller is expected
// to reload the lecture's attendance list rather than patch locally.
func (e *CellEdit) Save(ctx context.Context) (Attendance, error) {
	if e.saving {
		return Attendance{}, ErrSaveInFlight
	}
	e.saving = true
	defer func() { e.saving = false }()

	if e.cell.Attendance != nil {
		return e.svc.Update(ctx, e.cell.Attendance.ID, UpdateAttendance{Status: e.Status, Note: e.Note})
	}
	return e.svc.Create(ctx, e.cell.LectureID, NewAttendance{
		UserID: e.cell.UserID,
		Status: e.Status,
		Note:   e.Note,
	})
}

// BulkEdit applies one shared {status, note} pair uniformly across many
// cells. Each cell keeps its own create-or-update decision, computed from
// the state captured when the bulk edit was opened.
type BulkEdit struct {
	svc   *Service
	cells []Cell

	Status Status
	Note   string

	saving bool
}

func (svc *Service) OpenBulkEdit(cells []Cell) *BulkEdit {
	return &BulkEdit{svc: svc, cells: cells, Status: StatusPresent}
}

func (b *BulkEdit) Saving() bool { return b.saving }

// CellResult reports the outcome of one cell within a bulk save.
type CellResult struct {
	Cell       Cell        `json:"cell"`
	Attendance *Attendance `json:"attendance,omitempty"`
	Err        error       `json:"-"`
}

// BulkResult reports a best-effort bulk save: cells that succeeded before
// a failure stay committed.
type BulkResult []CellResult

// Failed returns the results of cells whose save did not commit.
func (rs BulkResult) Failed() []CellResult {
	var failed []CellResult
	for _, r := range rs {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Save commits each cell independently and reports per-cell outcomes.
// No ordering is guaranteed beyond the captured-at-open decision rule.
func (b *BulkEdit) Save(ctx context.Context) (BulkResult, error) {
	if b.saving {
		return nil, ErrSaveInFlight
	}
	b.saving = true
	defer func() { b.saving = false }()

	results := make(BulkResult, 0, len(b.cells))
	for _, cell := range b.cells {
		var att Attendance
		var err error
		if cell.Attendance != nil {
			att, err = b.svc.Update(ctx, cell.Attendance.ID, UpdateAttendance{Status: b.Status, Note: b.Note})
		} else {
			att, err = b.svc.Create(ctx, cell.LectureID, NewAttendance{
				UserID: cell.UserID,
				Status: b.Status,
				Note:   b.Note,
			})
		}
		res := CellResult{Cell: cell, Err: err}
		if err == nil {
			res.Attendance = &att
		}
		results = append(results, res)
	}
	return results, nil
}
