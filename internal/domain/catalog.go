package domain

type Institution struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
	IsActive  bool   `json:"is_active"`
}

type Major struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type Course struct {
	ID           int64   `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Units        float64 `json:"units"`
	Category     string  `json:"category,omitempty"`
	Subject      string  `json:"subject,omitempty"`
	Transferable bool    `json:"transferable"`
}

// InstitutionCourses is one institution and its courses, ordered by subject
// then code.
type InstitutionCourses struct {
	Institution Institution `json:"institution"`
	Courses     []Course    `json:"courses"`
}
