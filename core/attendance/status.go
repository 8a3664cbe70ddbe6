package attendance

// Status is a recorded attendance state. The zero value is not a valid
// recorded status; "no record yet" is expressed as a nil *Attendance,
// never persisted.
type Status string

const (
	StatusPresent    Status = "PRESENT"
	StatusAbsent     Status = "ABSENT"
	StatusLate       Status = "LATE"
	StatusEarlyLeave Status = "EARLY_LEAVE"
	StatusExcused    Status = "EXCUSED"
)

// StatusMeta carries the fixed display metadata of a Status.
type StatusMeta struct {
	Status     Status `json:"status,omitempty"`
	Label      string `json:"label"`
	ShortLabel string `json:"short_label"`
	Color      string `json:"color"`
	Bg         string `json:"bg"`
	Border     string `json:"border"`
}

var (
	// noneMeta renders a cell that has no backing record.
	noneMeta = StatusMeta{
		Label:      "Not recorded",
		ShortLabel: "-",
		Color:      "text-gray-400",
		Bg:         "bg-gray-50",
		Border:     "border-gray-200",
	}

	statusMetas = map[Status]StatusMeta{
		StatusPresent: {
			Status:     StatusPresent,
			Label:      "Present",
			ShortLabel: "P",
			Color:      "text-green-700",
			Bg:         "bg-green-50",
			Border:     "border-green-300",
		},
		StatusAbsent: {
			Status:     StatusAbsent,
			Label:      "Absent",
			ShortLabel: "A",
			Color:      "text-red-700",
			Bg:         "bg-red-50",
			Border:     "border-red-300",
		},
		StatusLate: {
			Status:     StatusLate,
			Label:      "Late",
			ShortLabel: "L",
			Color:      "text-yellow-700",
			Bg:         "bg-yellow-50",
			Border:     "border-yellow-300",
		},
		StatusEarlyLeave: {
			Status:     StatusEarlyLeave,
			Label:      "Early leave",
			ShortLabel: "E",
			Color:      "text-orange-700",
			Bg:         "bg-orange-50",
			Border:     "border-orange-300",
		},
		StatusExcused: {
			Status:     StatusExcused,
			Label:      "Excused",
			ShortLabel: "X",
			Color:      "text-blue-700",
			Bg:         "bg-blue-50",
			Border:     "border-blue-300",
		},
	}

	// editableStatuses is the ordered option list offered by edit widgets.
	editableStatuses = []Status{
		StatusPresent,
		StatusAbsent,
		StatusLate,
		StatusEarlyLeave,
		StatusExcused,
	}
)

// IsValid reports whether s is an assignable status.
func (s Status) IsValid() bool {
	_, ok := statusMetas[s]
	return ok
}

// Meta returns the display metadata for s. Unknown or empty statuses
// resolve to the "not recorded" entry; it never fails.
func (s Status) Meta() StatusMeta {
	if meta, ok := statusMetas[s]; ok {
		return meta
	}
	return noneMeta
}

// EditableStatuses lists all assignable statuses with their metadata,
// excluding the "not recorded" display entry.
func EditableStatuses() []StatusMeta {
	opts := make([]StatusMeta, 0, len(editableStatuses))
	for _, s := range editableStatuses {
		opts = append(opts, statusMetas[s])
	}
	return opts
}

// Tooltip renders the hover text of a matrix cell.
func Tooltip(att *Attendance) string {
	if att == nil {
		return "click to set status"
	}
	tip := "status: " + att.Status.Meta().Label
	if att.Note.Valid && att.Note.String != "" {
		tip += ", note: " + att.Note.String
	}
	return tip + ", click to edit"
}
