package model

// PointsPerReceivedDonation is credited to an institution every time a
// donation reaches the received state.
const PointsPerReceivedDonation = 10

// Institution is a charitable organization operating one or more projects.
type Institution struct {
	Base
	Name          string  `json:"nome" db:"nome"`
	Email         string  `json:"email" db:"email"`
	Phone         string  `json:"telefone" db:"telefone"`
	Description   string  `json:"descricao" db:"descricao"`
	RatingAverage float64 `json:"media_avaliacoes" db:"media_avaliacoes"`
	RatingCount   int     `json:"total_avaliacoes" db:"total_avaliacoes"`
	Points        int     `json:"pontos" db:"pontos"`
}

// Tier is the display ranking derived from an institution's points.
type Tier struct {
	Name  string `json:"nome"`
	Color string `json:"cor"`
}
