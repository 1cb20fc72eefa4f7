package models

// Course — программа, к которой привязаны шаблоны занятий.
// При open_enrollment = false записываться могут только участники
// из явного списка course_members.
type Course struct {
	ID             int64
	Name           string
	MinRank        string // минимальный пояс, пустая строка — без ограничения
	OpenEnrollment bool
}
